package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serve(opts Options, method, origin string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(opts))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	req := httptest.NewRequest(method, "/x", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCORSAllowListed(t *testing.T) {
	opts := Options{Origins: []string{"https://panel.example.com/"}}
	rec := serve(opts, http.MethodGet, "https://panel.example.com")
	assert.Equal(t, "https://panel.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = serve(opts, http.MethodGet, "https://evil.example.com")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSWildcardSubdomain(t *testing.T) {
	opts := Options{Origins: []string{"https://*.campus.example.edu"}}
	assert.Equal(t, "https://tutorias.campus.example.edu",
		serve(opts, http.MethodGet, "https://tutorias.campus.example.edu").Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, serve(opts, http.MethodGet, "https://campus.example.edu").Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, serve(opts, http.MethodGet, "http://tutorias.campus.example.edu").Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, serve(opts, http.MethodGet, "https://evilcampus.example.edu.attacker.io").Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	rec := serve(Options{MaxAge: time.Hour}, http.MethodOptions, "https://any.example.com")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://any.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "3600", rec.Header().Get("Access-Control-Max-Age"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}
