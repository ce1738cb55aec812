package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	LogLevel  string
	LogFormat string

	DataDir      string
	BackupDir    string
	ConfigDir    string
	StoreBackend string
	SQLitePath   string
	IOTimeout    time.Duration

	HTTPAddr string
	NodeID   int64

	DB        DBConfig
	Email     EmailConfig
	OTel      OTelConfig
	RateLimit RateLimitConfig
}

// RateLimitConfig enables redis-backed render throttling and job leases.
type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RenderRate    float64 // tokens per second per company
	RenderBurst   int
	LockTTL       time.Duration
}

// DBConfig holds the network database settings used by the postgres and
// mysql backends.
type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	Tracing  bool
}

// OTelConfig controls the OTLP trace exporter. Spans are dropped when
// Enabled is false.
type OTelConfig struct {
	Enabled     bool
	Endpoint    string
	Protocol    string // grpc or http
	Insecure    bool
	SampleRatio float64
}

// EmailConfig holds SMTP settings. Notifications fall back to the log when
// SMTPHost is empty.
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	dataDir := getenv("FOLIO_DATA_DIR", "data")

	cfg := Config{
		AppName:      getenv("APP_NAME", "folio"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		LogLevel:     strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:    strings.ToLower(getenv("LOG_FORMAT", "console")),
		DataDir:      dataDir,
		BackupDir:    getenv("FOLIO_BACKUP_DIR", filepath.Join(dataDir, "backups")),
		ConfigDir:    getenv("FOLIO_CONFIG_DIR", dataDir),
		StoreBackend: normalizeBackend(getenv("FOLIO_STORE_BACKEND", BackendFile)),
		SQLitePath:   getenv("FOLIO_SQLITE_PATH", filepath.Join(dataDir, "folio.db")),
		IOTimeout:    getenvDuration("FOLIO_IO_TIMEOUT", 5*time.Second),
		HTTPAddr:     getenv("FOLIO_HTTP_ADDR", "127.0.0.1:8080"),
		NodeID:       getenvInt64("FOLIO_NODE_ID", 1),
		DB: DBConfig{
			Host:     getenv("DB_HOST", "localhost"),
			Port:     getenv("DB_PORT", "5432"),
			Name:     getenv("DB_NAME", "folio"),
			User:     getenv("DB_USER", "folio"),
			Password: getenv("DB_PASSWORD", ""),
			SSLMode:  getenv("DB_SSL_MODE", "disable"),
			Tracing:  getenvBool("DB_TRACING", false),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:     getenv("REDIS_ADDR", ""),
			RedisPassword: getenv("REDIS_PASSWORD", ""),
			RedisDB:       int(getenvInt64("REDIS_DB", 0)),
			RenderRate:    getenvFloat("RATE_LIMIT_RENDER_RATE", 2),
			RenderBurst:   int(getenvInt64("RATE_LIMIT_RENDER_BURST", 10)),
			LockTTL:       getenvDuration("RATE_LIMIT_LOCK_TTL", 5*time.Minute),
		},
		OTel: OTelConfig{
			Enabled:     getenvBool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Protocol:    strings.ToLower(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")),
			Insecure:    getenvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			SampleRatio: getenvFloat("OTEL_TRACES_SAMPLER_RATIO", 1),
		},
		Email: EmailConfig{
			SMTPHost:     getenv("SMTP_HOST", ""),
			SMTPPort:     int(getenvInt64("SMTP_PORT", 587)),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", "billing@localhost"),
		},
	}

	return cfg
}

// Debug reports whether verbose diagnostics should be enabled.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func normalizeBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case BackendSQLite, "sqlite3":
		return BackendSQLite
	case BackendPostgres, "postgresql":
		return BackendPostgres
	case BackendMySQL, "mariadb":
		return BackendMySQL
	default:
		return BackendFile
	}
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func getenvBool(key string, def bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
