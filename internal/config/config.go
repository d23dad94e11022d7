package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/spec-kit/suggestion-box/internal/domain"
)

// Store drivers.
const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Mail drivers.
const (
	MailSMTP     = "smtp"
	MailSendgrid = "sendgrid"
	MailLog      = "log"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App         AppConfig
	Store       StoreConfig
	Mongo       MongoConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	Logger      LoggerConfig
	Auth        AuthConfig
	Mail        MailConfig
	Departments DepartmentConfig
	Escalation  EscalationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	CORSAllowOrigins      string
}

// StoreConfig selects the suggestion store backend.
type StoreConfig struct {
	Driver string
}

// MongoConfig holds document store connection values.
type MongoConfig struct {
	URI                   string
	Database              string
	Collection            string
	ConnectTimeoutSeconds int
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

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines identity provider parameters.
type AuthConfig struct {
	GoogleClientID string
	PrincipalEmail string
}

// MailConfig holds mail transport settings.
type MailConfig struct {
	Driver         string
	Host           string
	Port           int
	Secure         bool
	User           string
	Password       string
	From           string
	SendgridAPIKey string
}

// DepartmentConfig maps each fixed department key to its head's address.
type DepartmentConfig struct {
	Heads map[domain.Category]string
}

// EscalationConfig tunes the reminder sweep.
type EscalationConfig struct {
	Enabled     bool
	Interval    time.Duration
	FirstAfter  time.Duration
	SecondAfter time.Duration
}

// departmentEnv lists the env variable for each department key.
var departmentEnv = map[domain.Category]string{
	domain.CategoryAcademics:      "HOD_ACADEMICS",
	domain.CategoryFacilities:     "HOD_FACILITIES",
	domain.CategoryStudentLife:    "HOD_STUDENTLIFE",
	domain.CategoryTechnology:     "HOD_TECH",
	domain.CategorySafety:         "HOD_SAFETY",
	domain.CategoryAdministration: "HOD_ADMINISTRATION",
	domain.CategoryOther:          "HOD_OTHER",
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	heads := make(map[domain.Category]string, len(departmentEnv))
	for category, key := range departmentEnv {
		heads[category] = strings.TrimSpace(os.Getenv(key))
	}

	mailUser := os.Getenv("EMAIL_USER")
	mailHost := getEnv("EMAIL_HOST", "smtp.gmail.com")
	mailDriver := getEnv("MAIL_DRIVER", "")
	if mailDriver == "" {
		mailDriver = MailSMTP
		if mailUser == "" {
			mailDriver = MailLog
		}
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "suggestion-box"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("PORT", "5000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			CORSAllowOrigins:      getEnv("CORS_ALLOW_ORIGINS", "*"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getEnv("STORE_DRIVER", StoreMongo)),
		},
		Mongo: MongoConfig{
			URI:                   os.Getenv("MONGO_URI"),
			Database:              getEnv("MONGO_DATABASE", "suggestionbox"),
			Collection:            getEnv("MONGO_COLLECTION", "suggestions"),
			ConnectTimeoutSeconds: getEnvAsInt("MONGO_CONNECT_TIMEOUT_SECONDS", 10),
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
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),
			PrincipalEmail: strings.TrimSpace(os.Getenv("PRINCIPAL_EMAIL")),
		},
		Mail: MailConfig{
			Driver:         strings.ToLower(mailDriver),
			Host:           mailHost,
			Port:           getEnvAsInt("EMAIL_PORT", 587),
			Secure:         getEnvAsBool("EMAIL_SECURE", false),
			User:           mailUser,
			Password:       os.Getenv("EMAIL_PASS"),
			From:           getEnv("EMAIL_FROM", mailUser),
			SendgridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		},
		Departments: DepartmentConfig{Heads: heads},
		Escalation: EscalationConfig{
			Enabled:     getEnvAsBool("ESCALATION_ENABLED", true),
			Interval:    getEnvAsDuration("ESCALATION_INTERVAL", time.Hour),
			FirstAfter:  getEnvAsDuration("ESCALATION_FIRST_AFTER", 48*time.Hour),
			SecondAfter: getEnvAsDuration("ESCALATION_SECOND_AFTER", 96*time.Hour),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks driver selections and their required settings.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("MONGO_URI is required for store driver %q", c.Store.Driver)
		}
	case StorePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for store driver %q", c.Store.Driver)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	switch c.Mail.Driver {
	case MailSMTP:
		if c.Mail.Host == "" {
			return fmt.Errorf("EMAIL_HOST is required for mail driver %q", c.Mail.Driver)
		}
	case MailSendgrid:
		if c.Mail.SendgridAPIKey == "" {
			return fmt.Errorf("SENDGRID_API_KEY is required for mail driver %q", c.Mail.Driver)
		}
	case MailLog:
	default:
		return fmt.Errorf("unknown MAIL_DRIVER %q", c.Mail.Driver)
	}

	if c.Escalation.Interval <= 0 {
		return fmt.Errorf("ESCALATION_INTERVAL must be positive")
	}
	return nil
}

// Directory builds the immutable department table.
func (c *Config) Directory() *domain.Directory {
	return domain.NewDirectory(c.Auth.PrincipalEmail, c.Departments.Heads)
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

// ConnectTimeout returns the Mongo connect timeout.
func (m MongoConfig) ConnectTimeout() time.Duration {
	if m.ConnectTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(m.ConnectTimeoutSeconds) * time.Second
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
