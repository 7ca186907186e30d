package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/tutoria-api/api/swagger"
	"github.com/noah-isme/tutoria-api/internal/handler"
	internalmiddleware "github.com/noah-isme/tutoria-api/internal/middleware"
	"github.com/noah-isme/tutoria-api/internal/models"
	"github.com/noah-isme/tutoria-api/internal/repository"
	"github.com/noah-isme/tutoria-api/internal/service"
	"github.com/noah-isme/tutoria-api/pkg/cache"
	"github.com/noah-isme/tutoria-api/pkg/config"
	"github.com/noah-isme/tutoria-api/pkg/database"
	"github.com/noah-isme/tutoria-api/pkg/export"
	"github.com/noah-isme/tutoria-api/pkg/jobs"
	"github.com/noah-isme/tutoria-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tutoria-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tutoria-api/pkg/middleware/requestid"
)

// @title Tutoria API
// @version 1.0.0
// @description Attendance check-in and dashboard metrics for hybrid tutoring sessions.
// @BasePath /api/v1
// @schemes http https

// collectionStore is the union of reads and writes the services need from the backing store.
type collectionStore interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	ListUsersByIDs(ctx context.Context, ids []models.ID) ([]models.User, error)
	ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.Session, error)
	ListAttendance(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceEvent, error)
	CreateAttendance(ctx context.Context, event *models.AttendanceEvent) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]handler.ReadinessCheck{}

	store, db, err := openStore(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to open collection store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	if db != nil {
		defer db.Close() //nolint:errcheck
		checks["postgres"] = db.PingContext
	}

	metricsSvc := service.NewMetricsService()

	var cacheRepo *repository.CacheRepository
	if cfg.Dashboard.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(client, logr)
			defer cacheRepo.Close() //nolint:errcheck
			checks["redis"] = cacheRepo.Ping
		}
	}
	cacheSvc := newCacheService(cacheRepo, metricsSvc, cfg, logr)

	invalidations := jobs.NewQueue("dashboard-invalidation", service.DashboardInvalidationHandler(cacheSvc), jobs.QueueConfig{
		Workers:       cfg.Dashboard.CacheWorkers,
		BufferSize:    16,
		MaxRetries:    3,
		RetryDelay:    time.Second,
		MaxRetryDelay: 10 * time.Second,
		Observer:      metricsSvc.RecordJob,
		Logger:        logr,
	})
	invalidations.Start(ctx)
	defer invalidations.Stop()

	location := cfg.CheckIn.Location()

	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Store:   store,
		Cache:   cacheSvc,
		Metrics: metricsSvc,
		Logger:  logr,
		Config: service.DashboardServiceConfig{
			CacheTTL:        cfg.Dashboard.CacheTTL,
			HoursPerSession: float64(cfg.Dashboard.HoursPerSession),
		},
	})
	attendanceSvc := service.NewAttendanceService(service.AttendanceServiceParams{
		Store:   store,
		Jobs:    invalidations,
		Cache:   cacheSvc,
		Metrics: metricsSvc,
		Logger:  logr,
		Config:  service.AttendanceServiceConfig{Location: location},
	})
	sessionSvc := service.NewSessionService(service.SessionServiceParams{
		Store:   store,
		Metrics: metricsSvc,
		Logger:  logr,
		Config:  service.SessionServiceConfig{CheckInBaseURL: cfg.CheckIn.BaseURL},
	})
	exportSvc := service.NewExportService(service.ExportServiceParams{
		Careers:  dashboardSvc,
		Rosters:  attendanceSvc,
		Sessions: sessionSvc,
		CSV:      export.NewCSVExporter(export.CSVOptions{Delimiter: cfg.Reports.CSVDelimiter, CRLF: cfg.Reports.CSVCRLF}),
		Logger:   logr,
		Config: service.ExportConfig{
			ProjectName: cfg.Reports.ProjectName,
			Location:    location,
		},
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, cfg.Log.SkipPaths...))
	r.Use(corsmiddleware.New(corsmiddleware.Options{Origins: cfg.CORS.AllowedOrigins}))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/metrics"))

	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.WithResponseMeta())
	registerRoutes(api, routeHandlers{
		dashboard:  handler.NewDashboardHandler(dashboardSvc, exportSvc),
		attendance: handler.NewAttendanceHandler(attendanceSvc, exportSvc),
		sessions:   handler.NewSessionHandler(sessionSvc),
		metrics:    metricsHandler,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type routeHandlers struct {
	dashboard  *handler.DashboardHandler
	attendance *handler.AttendanceHandler
	sessions   *handler.SessionHandler
	metrics    *handler.MetricsHandler
}

func registerRoutes(api *gin.RouterGroup, h routeHandlers) {
	api.GET("/dashboard/admin", h.dashboard.Admin)
	api.GET("/dashboard/reports", h.dashboard.Reports)
	api.GET("/dashboard/reports/careers/export", h.dashboard.ExportCareers)
	api.GET("/dashboard/tutors/:tutorId", h.dashboard.Tutor)
	api.GET("/subjects", h.dashboard.Subjects)

	api.POST("/attendance/checkin", h.attendance.CheckIn)

	api.GET("/tutors/:tutorId/sessions", h.sessions.ListByTutor)
	api.GET("/sessions/:sessionId", h.sessions.Get)
	api.GET("/sessions/:sessionId/checkin-link", h.sessions.CheckInLink)
	api.GET("/sessions/:sessionId/attendance", h.attendance.Roster)
	api.GET("/sessions/:sessionId/attendance/export", h.attendance.ExportRoster)

	api.GET("/metrics/summary", h.metrics.Summary)
}

func openStore(ctx context.Context, cfg *config.Config, logr *zap.Logger) (collectionStore, *sqlx.DB, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database, logr)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPostgresStore(db), db, nil
	case config.StoreDriverREST, "":
		return repository.NewRESTStore(cfg.Store, &http.Client{Timeout: cfg.Store.Timeout}), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func newCacheService(repo *repository.CacheRepository, metrics *service.MetricsService, cfg *config.Config, logr *zap.Logger) *service.CacheService {
	params := service.CacheServiceParams{
		Metrics: metrics,
		TTL:     cfg.Dashboard.CacheTTL,
		Jitter:  0.1,
		Logger:  logr,
	}
	if repo != nil {
		params.Repo = repo
		params.Enabled = true
	}
	return service.NewCacheService(params)
}
