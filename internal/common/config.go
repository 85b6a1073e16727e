package common

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	LLM      LLMConfig
	Registry RegistryConfig
	Ingest   IngestConfig
	Ledger   LedgerConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Events   EventsConfig
	Server   ServerConfig
	LogLevel string `validate:"oneof=debug info warn error"`
}

// LLMConfig holds generation-provider configuration
type LLMConfig struct {
	Provider        string        `validate:"oneof=anthropic openai"`
	AnthropicAPIKey string        `validate:"required_if=Provider anthropic"`
	OpenAIAPIKey    string        `validate:"required_if=Provider openai"`
	Model           string        `validate:"required"`
	BaseURL         string        `validate:"omitempty,url"`
	Temperature     float32       `validate:"gte=0,lte=2"`
	MaxTokens       int           `validate:"gt=0"`
	Timeout         time.Duration `validate:"gt=0"`
	RatePerMinute   int           `validate:"gte=0"`
}

// RegistryConfig holds FHIR registry configuration
type RegistryConfig struct {
	BaseURL      string        `validate:"required,url"`
	TokenURL     string        `validate:"omitempty,url"`
	ClientID     string        `validate:"required_with=ClientSecret"`
	ClientSecret string        `validate:"required_with=ClientID"`
	Timeout      time.Duration `validate:"gt=0"`
	// DefaultPractitionerID is used when a document names no provider.
	DefaultPractitionerID string
}

// IngestConfig holds batch input configuration
type IngestConfig struct {
	DocumentsDir   string
	PatientID      string
	SkipHidden     bool
	Workers        int           `validate:"gte=1,lte=64"`
	ProcessTimeout time.Duration `validate:"gt=0"`
}

// LedgerConfig holds processing-ledger database configuration
type LedgerConfig struct {
	DSN             string `validate:"required"`
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// StorageConfig holds object-store configuration for bucket sources
type StorageConfig struct {
	Endpoint  string `validate:"omitempty,hostname_port"`
	AccessKey string `validate:"required_with=Endpoint"`
	SecretKey string `validate:"required_with=Endpoint"`
	Bucket    string `validate:"required_with=Endpoint"`
	Prefix    string
	UseSSL    bool
}

// RedisConfig enables the cross-process practitioner lock when Addr is set
type RedisConfig struct {
	Addr     string `validate:"omitempty,hostname_port"`
	Password string
	DB       int
	LockTTL  time.Duration `validate:"gt=0"`
}

// EventsConfig enables AMQP document events when URL is set
type EventsConfig struct {
	URL        string `validate:"omitempty,url"`
	Exchange   string `validate:"required_with=URL"`
	RoutingKey string
}

// ServerConfig holds daemon configuration
type ServerConfig struct {
	GRPCAddr     string `validate:"required"`
	PollInterval time.Duration
}

// LoadConfig loads .env.local / .env (without overriding the process
// environment) and then builds the configuration from environment variables.
func LoadConfig() *Config {
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("config.dotenv_load_failed", "file", f, "error", err)
		}
	}

	return &Config{
		LLM: LLMConfig{
			Provider:        strings.ToLower(getEnv("LLM_PROVIDER", "anthropic")),
			AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
			OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
			Model:           getEnv("LLM_MODEL", "claude-3-5-sonnet-20241022"),
			BaseURL:         getEnv("LLM_BASE_URL", ""),
			Temperature:     getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			MaxTokens:       getEnvAsInt("LLM_MAX_TOKENS", 4096),
			Timeout:         getEnvAsDuration("LLM_TIMEOUT", 90*time.Second),
			RatePerMinute:   getEnvAsInt("LLM_RATE_PER_MINUTE", 30),
		},
		Registry: RegistryConfig{
			BaseURL:               getEnv("REGISTRY_BASE_URL", "https://api.medplum.com/fhir/R4"),
			TokenURL:              getEnv("REGISTRY_TOKEN_URL", "https://api.medplum.com/oauth2/token"),
			ClientID:              getEnv("REGISTRY_CLIENT_ID", getEnv("MEDPLUM_CLIENT_ID", "")),
			ClientSecret:          getEnv("REGISTRY_CLIENT_SECRET", getEnv("MEDPLUM_CLIENT_SECRET", "")),
			Timeout:               getEnvAsDuration("REGISTRY_TIMEOUT", 30*time.Second),
			DefaultPractitionerID: getEnv("PRACTITIONER_ID", ""),
		},
		Ingest: IngestConfig{
			DocumentsDir:   getEnv("DOCUMENTS_DIR", "./documents"),
			PatientID:      getEnv("PATIENT_ID", ""),
			SkipHidden:     getEnvAsBool("SKIP_HIDDEN", true),
			Workers:        getEnvAsInt("WORKERS", 4),
			ProcessTimeout: getEnvAsDuration("PROCESS_TIMEOUT", 3*time.Minute),
		},
		Ledger: LedgerConfig{
			DSN:             getEnv("LEDGER_DSN", "file:./tmp/ledger.db?_pragma=foreign_keys(1)"),
			MaxConns:        getEnvAsInt32("LEDGER_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("LEDGER_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("LEDGER_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("LEDGER_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("LEDGER_DIAL_TIMEOUT", 3*time.Second),
		},
		Storage: StorageConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			Prefix:    getEnv("MINIO_PREFIX", ""),
			UseSSL:    getEnvAsBool("MINIO_USE_SSL", true),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			LockTTL:  getEnvAsDuration("REDIS_LOCK_TTL", 30*time.Second),
		},
		Events: EventsConfig{
			URL:        getEnv("AMQP_URL", ""),
			Exchange:   getEnv("AMQP_EXCHANGE", "clinical-docs"),
			RoutingKey: getEnv("AMQP_ROUTING_KEY", "document.processed"),
		},
		Server: ServerConfig{
			GRPCAddr:     getEnv("GRPC_ADDR", ":8080"),
			PollInterval: getEnvAsDuration("POLL_INTERVAL", 0),
		},
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

var validate = validator.New()

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return NewAppError("CONFIG_ERROR", fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()), ErrInvalidInput)
		}
		return NewAppError("CONFIG_ERROR", "invalid configuration", err)
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
