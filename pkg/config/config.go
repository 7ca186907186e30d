package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	StoreDriverREST     = "rest"
	StoreDriverPostgres = "postgres"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Store     StoreConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Dashboard DashboardConfig
	CheckIn   CheckInConfig
	Reports   ReportsConfig
}

// StoreConfig selects and tunes the collection store backing users, sessions and attendance.
type StoreConfig struct {
	Driver         string
	BaseURL        string
	Timeout        time.Duration
	UsersPath      string
	SessionsPath   string
	AttendancePath string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectRetries  int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level     string
	Format    string
	SkipPaths []string
}

// DashboardConfig governs dashboard caching and the tutor summary.
type DashboardConfig struct {
	CacheEnabled    bool
	CacheTTL        time.Duration
	CacheWorkers    int
	HoursPerSession int
}

// CheckInConfig configures the student self check-in flow.
type CheckInConfig struct {
	BaseURL  string
	Timezone string
}

// ReportsConfig holds static labels printed on exported documents.
type ReportsConfig struct {
	ProjectName  string
	CSVDelimiter rune
	CSVCRLF      bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Store = StoreConfig{
		Driver:         strings.ToLower(v.GetString("STORE_DRIVER")),
		BaseURL:        strings.TrimRight(v.GetString("STORE_BASE_URL"), "/"),
		Timeout:        parseDuration(v.GetString("STORE_TIMEOUT"), 10*time.Second),
		UsersPath:      v.GetString("STORE_USERS_PATH"),
		SessionsPath:   v.GetString("STORE_SESSIONS_PATH"),
		AttendancePath: v.GetString("STORE_ATTENDANCE_PATH"),
	}

	cfg.Database = DatabaseConfig{
		Host:            v.GetString("DB_HOST"),
		Port:            v.GetInt("DB_PORT"),
		User:            v.GetString("DB_USER"),
		Password:        v.GetString("DB_PASSWORD"),
		Name:            v.GetString("DB_NAME"),
		SSLMode:         v.GetString("DB_SSL_MODE"),
		MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
		ConnMaxLifetime: parseDuration(v.GetString("DB_CONN_MAX_LIFETIME"), 30*time.Minute),
		ConnectRetries:  v.GetInt("DB_CONNECT_RETRIES"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:     v.GetString("LOG_LEVEL"),
		Format:    v.GetString("LOG_FORMAT"),
		SkipPaths: splitAndTrim(v.GetString("LOG_SKIP_PATHS")),
	}

	cfg.Dashboard = DashboardConfig{
		CacheEnabled:    v.GetBool("ENABLE_CACHE"),
		CacheTTL:        parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
		CacheWorkers:    v.GetInt("CACHE_WORKERS"),
		HoursPerSession: v.GetInt("HOURS_PER_SESSION"),
	}

	cfg.CheckIn = CheckInConfig{
		BaseURL:  v.GetString("CHECKIN_BASE_URL"),
		Timezone: v.GetString("CHECKIN_TIMEZONE"),
	}

	cfg.Reports = ReportsConfig{
		ProjectName:  v.GetString("REPORT_PROJECT_NAME"),
		CSVDelimiter: firstRune(v.GetString("REPORT_CSV_DELIMITER"), ','),
		CSVCRLF:      v.GetBool("REPORT_CSV_CRLF"),
	}

	return cfg, nil
}

// Location resolves the configured check-in timezone, falling back to UTC.
func (c CheckInConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("STORE_DRIVER", StoreDriverREST)
	v.SetDefault("STORE_BASE_URL", "http://localhost:3000")
	v.SetDefault("STORE_TIMEOUT", "10s")
	v.SetDefault("STORE_USERS_PATH", "/users")
	v.SetDefault("STORE_SESSIONS_PATH", "/sessions")
	v.SetDefault("STORE_ATTENDANCE_PATH", "/attendanceEvents")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "tutoria")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("DB_CONNECT_RETRIES", 3)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_SKIP_PATHS", "/health,/ready,/metrics")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")
	v.SetDefault("CACHE_WORKERS", 1)
	v.SetDefault("HOURS_PER_SESSION", 2)

	v.SetDefault("CHECKIN_BASE_URL", "http://localhost:5500/checkin.html")
	v.SetDefault("CHECKIN_TIMEZONE", "UTC")

	v.SetDefault("REPORT_PROJECT_NAME", "Tutorias con alumnos hibridas")
	v.SetDefault("REPORT_CSV_DELIMITER", ",")
	v.SetDefault("REPORT_CSV_CRLF", false)
}

// isMissingFile tolerates an absent .env, which viper reports as a plain fs error when SetConfigFile is used.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func firstRune(raw string, fallback rune) rune {
	for _, r := range strings.TrimSpace(raw) {
		return r
	}
	return fallback
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
