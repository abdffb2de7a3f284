package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	AuthJWTSecret     string
	AuthTokenTTL      time.Duration
	AdminEmail        string
	AdminName         string
	AdminPasswordHash string
	CORSAllowOrigins  []string

	ShopTimezone     string
	MigrateOnStart   bool
	SchedulerEnabled bool
	SchedulerJobs    []string
	SnowflakeNode    int64

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis     RedisConfig
	RateLimit RateLimitConfig
	MetalRate MetalRateConfig
	Telemetry TelemetryConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a redis address is configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type RateLimitConfig struct {
	BillCreatePerMinute float64
	BillCreateBurst     int
	PDFPerMinute        float64
	PDFBurst            int
}

// TelemetryConfig controls log output and the OTLP exporters.
type TelemetryConfig struct {
	LogLevel      string
	LogFormat     string
	OTelEnabled   bool
	OTLPEndpoint  string
	OTLPProtocol  string
	SamplingRatio float64
}

type MetalRateConfig struct {
	SpotURL        string
	FXURL          string
	RequestTimeout time.Duration
	RefreshEvery   time.Duration
	StaleAfter     time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "jewelbill"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		AuthJWTSecret:     strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		AuthTokenTTL:      getenvDuration("AUTH_TOKEN_TTL", 24*time.Hour),
		AdminEmail:        strings.ToLower(strings.TrimSpace(getenv("ADMIN_EMAIL", "admin@palaniappajewellers.com"))),
		AdminName:         getenv("ADMIN_NAME", "Administrator"),
		AdminPasswordHash: strings.TrimSpace(getenv("ADMIN_PASSWORD_HASH", "")),
		CORSAllowOrigins:  parseList(getenv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ShopTimezone:      getenv("SHOP_TIMEZONE", "Asia/Kolkata"),
		MigrateOnStart:    getenvBool("MIGRATE_ON_START", true),
		SchedulerEnabled:  getenvBool("SCHEDULER_ENABLED", true),
		SnowflakeNode:     getenvInt64("SNOWFLAKE_NODE", 1),
		SchedulerJobs:     parseList(getenv("SCHEDULER_JOBS", "")),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "jewelbill"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 20)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 60)),
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       int(getenvInt64("REDIS_DB", 0)),
		},
		RateLimit: RateLimitConfig{
			BillCreatePerMinute: getenvFloat("RATE_LIMIT_BILL_CREATE_PER_MINUTE", 30),
			BillCreateBurst:     int(getenvInt64("RATE_LIMIT_BILL_CREATE_BURST", 10)),
			PDFPerMinute:        getenvFloat("RATE_LIMIT_PDF_PER_MINUTE", 60),
			PDFBurst:            int(getenvInt64("RATE_LIMIT_PDF_BURST", 20)),
		},
		MetalRate: MetalRateConfig{
			SpotURL:        strings.TrimSpace(getenv("METAL_RATES_SPOT_URL", "https://api.metals.live/v1/spot")),
			FXURL:          strings.TrimSpace(getenv("METAL_RATES_FX_URL", "https://api.exchangerate-api.com/v4/latest/USD")),
			RequestTimeout: getenvDuration("METAL_RATES_REQUEST_TIMEOUT", 10*time.Second),
			RefreshEvery:   getenvDuration("METAL_RATES_REFRESH_INTERVAL", 6*time.Hour),
			StaleAfter:     getenvDuration("METAL_RATES_STALE_AFTER", 12*time.Hour),
		},
	}
	cfg.Telemetry = TelemetryConfig{
		LogLevel:      strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
		LogFormat:     strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
		OTelEnabled:   getenvBool("OTEL_ENABLED", cfg.IsProduction()),
		OTLPEndpoint:  strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")),
		OTLPProtocol:  strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
		SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
	}

	return cfg
}

// IsProduction reports whether the service runs with production defaults.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// Location resolves the shop timezone used for bill dates.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(c.ShopTimezone))
	if err != nil {
		return time.UTC
	}
	return loc
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
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

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed <= 0 {
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

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
