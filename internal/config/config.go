package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Engine       EngineConfig
	Events       EventsConfig
	Notification NotificationConfig
	Auth         AuthConfig
	Logger       LoggerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	QueueKey string
}

// EngineConfig configures the analysis engine client. An empty APIKey
// means the engine is unavailable; the client must detect that before
// attempting any call.
type EngineConfig struct {
	APIKey         string
	Model          string
	BaseURL        string
	TimeoutSeconds int
}

// Configured reports whether a credential is present.
func (e EngineConfig) Configured() bool {
	return e.APIKey != ""
}

// Timeout returns the per-call deadline for the engine.
func (e EngineConfig) Timeout() time.Duration {
	if e.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// EventsConfig controls the optional AMQP domain-event bridge. An
// empty URL disables the bridge.
type EventsConfig struct {
	AMQPURL  string
	Exchange string
}

// NotificationConfig holds SMTP settings for the notification sink.
type NotificationConfig struct {
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	From     string
}

// Enabled reports whether outbound mail is configured.
func (n NotificationConfig) Enabled() bool {
	return n.SMTPHost != ""
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "triage-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			QueueKey: getEnv("TRIAGE_QUEUE_KEY", "triage:pending"),
		},
		Engine: EngineConfig{
			APIKey:         os.Getenv("ENGINE_API_KEY"),
			Model:          getEnv("ENGINE_MODEL", "gemini-2.5-flash"),
			BaseURL:        getEnv("ENGINE_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			TimeoutSeconds: getEnvAsInt("ENGINE_TIMEOUT_SECONDS", 30),
		},
		Events: EventsConfig{
			AMQPURL:  os.Getenv("EVENTS_AMQP_URL"),
			Exchange: getEnv("EVENTS_EXCHANGE", "triage.events"),
		},
		Notification: NotificationConfig{
			SMTPHost: os.Getenv("SMTP_HOST"),
			SMTPPort: getEnv("SMTP_PORT", "587"),
			SMTPUser: os.Getenv("SMTP_USER"),
			SMTPPass: os.Getenv("SMTP_PASS"),
			From:     getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
