package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	LLMProviderOpenAI = "openai"
	LLMProviderOllama = "ollama"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Billing  BillingConfig
	Cache    CacheConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	LLMLogFilePath     string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JWTSecret          string
	StorageDriver      string // "postgres" or "memory"
	OtelEnabled        bool
	OtelEndpoint       string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	LLMProvider    string // "openai" or "ollama"
	LLMModel       string
	OpenAIBaseURL  string
	OpenAIAPIKey   string
	OllamaBaseURL  string
	Temperature    float64
	MaxTokens      int
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration // Max idle time between two reads of the stream
}

type BillingConfig struct {
	CostPerTokenCents  float64
	UsageResetInterval time.Duration
	ReconcileTopic     string
	ReconcileAttempts  int
	ReconcileBackoff   time.Duration
}

type CacheConfig struct {
	TemplateTTL time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			LLMLogFilePath:     getEnv("LLM_LOG_FILE_PATH", "logs/llm_stream.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3001"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			JWTSecret:          getEnv("JWT_SECRET", ""),
			StorageDriver:      getEnv("STORAGE_DRIVER", StorageDriverPostgres),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			LLMProvider:    getEnv("LLM_PROVIDER", LLMProviderOpenAI),
			LLMModel:       getEnv("LLM_MODEL", "gpt-4-turbo-preview"),
			OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
			OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			Temperature:    getEnvAsFloat("LLM_TEMPERATURE", 0.7),
			MaxTokens:      getEnvAsInt("LLM_MAX_TOKENS", 2000),
			ConnectTimeout: getEnvAsDuration("LLM_CONNECT_TIMEOUT", 10*time.Second),
			ReadTimeout:    getEnvAsDuration("LLM_READ_TIMEOUT", 30*time.Second),
		},
		Billing: BillingConfig{
			CostPerTokenCents:  getEnvAsFloat("COST_PER_TOKEN_CENTS", 0.002),
			UsageResetInterval: getEnvAsDuration("USAGE_RESET_INTERVAL", time.Hour),
			ReconcileTopic:     getEnv("RECONCILE_TOPIC", "chat.turn.reconcile"),
			ReconcileAttempts:  getEnvAsInt("RECONCILE_MAX_ATTEMPTS", 5),
			ReconcileBackoff:   getEnvAsDuration("RECONCILE_BACKOFF", 2*time.Second),
		},
		Cache: CacheConfig{
			TemplateTTL: getEnvAsDuration("TEMPLATE_CACHE_TTL", 5*time.Minute),
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.App.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.App.StorageDriver {
	case StorageDriverPostgres:
		if c.Database.Connection == "" {
			errs = append(errs, errors.New("DB_CONNECTION_STRING is required for the postgres storage driver"))
		}
	case StorageDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unsupported STORAGE_DRIVER %q", c.App.StorageDriver))
	}

	switch c.Ai.LLMProvider {
	case LLMProviderOpenAI, LLMProviderOllama:
	default:
		errs = append(errs, fmt.Errorf("unsupported LLM_PROVIDER %q", c.Ai.LLMProvider))
	}
	if c.Ai.ConnectTimeout <= 0 || c.Ai.ReadTimeout <= 0 {
		errs = append(errs, errors.New("LLM timeouts must be positive"))
	}
	if c.Ai.MaxTokens <= 0 {
		errs = append(errs, errors.New("LLM_MAX_TOKENS must be positive"))
	}
	if c.Ai.Temperature < 0 || c.Ai.Temperature > 2 {
		errs = append(errs, errors.New("LLM_TEMPERATURE must be within [0, 2]"))
	}

	if c.Billing.CostPerTokenCents < 0 {
		errs = append(errs, errors.New("COST_PER_TOKEN_CENTS must not be negative"))
	}
	if c.Billing.UsageResetInterval <= 0 {
		errs = append(errs, errors.New("USAGE_RESET_INTERVAL must be positive"))
	}
	if c.Billing.ReconcileAttempts <= 0 {
		errs = append(errs, errors.New("RECONCILE_MAX_ATTEMPTS must be positive"))
	}

	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
