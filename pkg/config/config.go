package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Security  SecurityConfig
	Alerts    AlertsConfig
	Retention RetentionConfig
	Reports   ReportsConfig
	Dashboard DashboardConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SecurityConfig tunes the suspicious-activity detector.
type SecurityConfig struct {
	FailedLoginThreshold int
	FailedLoginWindow    time.Duration
	KnownLocationCount   int
	UsualHourStart       int
	UsualHourEnd         int
	AccountLockDuration  time.Duration
}

// AlertsConfig governs notification dispatch for security events.
type AlertsConfig struct {
	Enabled           bool
	SeverityThreshold string
	CooldownMinutes   int
	CooldownStore     string
	EmailRecipients   []string
	SMSRecipients     []string
	Channels          []string
	WorkerConcurrency int
	WorkerRetries     int
	RetryDelay        time.Duration
}

// RetentionConfig gates the retention administration endpoints.
type RetentionConfig struct {
	Enabled bool
}

// ReportsConfig configures asynchronous report generation.
type ReportsConfig struct {
	Enabled           bool
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupInterval   time.Duration
	WorkerConcurrency int
	WorkerRetries     int
}

// DashboardConfig governs dashboard exposure and cache tuning.
type DashboardConfig struct {
	Enabled  bool
	CacheTTL time.Duration
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Security = SecurityConfig{
		FailedLoginThreshold: v.GetInt("SECURITY_FAILED_LOGIN_THRESHOLD"),
		FailedLoginWindow:    parseDuration(v.GetString("SECURITY_FAILED_LOGIN_WINDOW"), 15*time.Minute),
		KnownLocationCount:   v.GetInt("SECURITY_KNOWN_LOCATION_COUNT"),
		UsualHourStart:       v.GetInt("SECURITY_USUAL_HOUR_START"),
		UsualHourEnd:         v.GetInt("SECURITY_USUAL_HOUR_END"),
		AccountLockDuration:  parseDuration(v.GetString("SECURITY_ACCOUNT_LOCK_DURATION"), 30*time.Minute),
	}

	cfg.Alerts = AlertsConfig{
		Enabled:           v.GetBool("ENABLE_ALERTS"),
		SeverityThreshold: v.GetString("ALERTS_SEVERITY_THRESHOLD"),
		CooldownMinutes:   v.GetInt("ALERTS_COOLDOWN_MINUTES"),
		CooldownStore:     v.GetString("ALERTS_COOLDOWN_STORE"),
		EmailRecipients:   splitAndTrim(v.GetString("ALERTS_EMAIL_RECIPIENTS")),
		SMSRecipients:     splitAndTrim(v.GetString("ALERTS_SMS_RECIPIENTS")),
		Channels:          splitAndTrim(v.GetString("ALERTS_CHANNELS")),
		WorkerConcurrency: v.GetInt("ALERTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("ALERTS_WORKER_RETRIES"),
		RetryDelay:        parseDuration(v.GetString("ALERTS_RETRY_DELAY"), 5*time.Second),
	}

	cfg.Retention = RetentionConfig{
		Enabled: v.GetBool("ENABLE_RETENTION"),
	}

	cfg.Reports = ReportsConfig{
		Enabled:           v.GetBool("ENABLE_REPORTS"),
		StorageDir:        v.GetString("REPORTS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("REPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("REPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("REPORTS_CLEANUP_INTERVAL"), time.Hour),
		WorkerConcurrency: v.GetInt("REPORTS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("REPORTS_WORKER_RETRIES"),
	}

	cfg.Dashboard = DashboardConfig{
		Enabled:  v.GetBool("ENABLE_DASHBOARD"),
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "interalpha")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SECURITY_FAILED_LOGIN_THRESHOLD", 5)
	v.SetDefault("SECURITY_FAILED_LOGIN_WINDOW", "15m")
	v.SetDefault("SECURITY_KNOWN_LOCATION_COUNT", 10)
	v.SetDefault("SECURITY_USUAL_HOUR_START", 6)
	v.SetDefault("SECURITY_USUAL_HOUR_END", 22)
	v.SetDefault("SECURITY_ACCOUNT_LOCK_DURATION", "30m")

	v.SetDefault("ENABLE_ALERTS", true)
	v.SetDefault("ALERTS_SEVERITY_THRESHOLD", "medium")
	v.SetDefault("ALERTS_COOLDOWN_MINUTES", 60)
	v.SetDefault("ALERTS_COOLDOWN_STORE", "memory")
	v.SetDefault("ALERTS_EMAIL_RECIPIENTS", "")
	v.SetDefault("ALERTS_SMS_RECIPIENTS", "")
	v.SetDefault("ALERTS_CHANNELS", "email")
	v.SetDefault("ALERTS_WORKER_CONCURRENCY", 2)
	v.SetDefault("ALERTS_WORKER_RETRIES", 3)
	v.SetDefault("ALERTS_RETRY_DELAY", "5s")

	v.SetDefault("ENABLE_RETENTION", true)

	v.SetDefault("ENABLE_REPORTS", true)
	v.SetDefault("REPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("REPORTS_SIGNED_URL_SECRET", "dev_reports_secret")
	v.SetDefault("REPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("REPORTS_CLEANUP_INTERVAL", "1h")
	v.SetDefault("REPORTS_WORKER_CONCURRENCY", 1)
	v.SetDefault("REPORTS_WORKER_RETRIES", 3)

	v.SetDefault("ENABLE_DASHBOARD", true)
	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")
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
