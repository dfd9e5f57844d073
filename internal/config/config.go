package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Storage StorageConfig
	Session SessionConfig
	Ai      AIConfig
	Events  EventsConfig
	Tracing TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	EventLogFilePath   string
	CorsAllowedOrigins string
	FrontendBuildDir   string
	BodyLimitMB        int
}

type StorageConfig struct {
	UploadDir  string
	PromptsDir string
}

type SessionConfig struct {
	Store           string // "memory" or "redis"
	TTL             time.Duration
	CleanupInterval time.Duration
	RedisURL        string
}

type AIConfig struct {
	LLMProvider   string // "openai", "ollama" or "gemini"
	LLMModel      string
	OpenAIBaseURL string
	OpenAIKey     string
	OllamaBaseURL string
	GeminiKey     string
	Temperature   float64
	Timeout       time.Duration
}

type EventsConfig struct {
	Topic        string
	NatsURL      string // empty disables NATS forwarding
	StreamMaxAge time.Duration
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string // OTLP/HTTP host:port
	ServiceName string
	SampleRatio float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	provider := getEnv("LLM_PROVIDER", "openai")

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			EventLogFilePath:   getEnv("EVENT_LOG_FILE_PATH", "logs/events.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			FrontendBuildDir:   getEnv("FRONTEND_BUILD_DIR", "../frontend/build"),
			BodyLimitMB:        getEnvAsInt("BODY_LIMIT_MB", 20),
		},
		Storage: StorageConfig{
			UploadDir:  getEnv("UPLOAD_DIR", os.TempDir()),
			PromptsDir: getEnv("PROMPTS_DIR", "prompts"),
		},
		Session: SessionConfig{
			Store:           getEnv("SESSION_STORE", "memory"),
			TTL:             getEnvAsDuration("SESSION_TTL", time.Hour),
			CleanupInterval: getEnvAsDuration("SESSION_CLEANUP_INTERVAL", 10*time.Minute),
			RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Ai: AIConfig{
			LLMProvider:   provider,
			LLMModel:      getEnv("LLM_MODEL", defaultModel(provider)),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
			OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			GeminiKey:     getEnv("GOOGLE_GEMINI_API_KEY", ""),
			Temperature:   getEnvAsFloat("LLM_TEMPERATURE", 0),
			Timeout:       getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		},
		Events: EventsConfig{
			Topic:        getEnv("EVENTS_TOPIC", "DOCFILL_EVENTS"),
			NatsURL:      getEnv("NATS_URL", ""),
			StreamMaxAge: getEnvAsDuration("NATS_STREAM_MAX_AGE", 72*time.Hour),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "docfill-backend"),
			SampleRatio: getEnvAsFloat("OTEL_SAMPLE_RATIO", 1),
		},
	}
}

func defaultModel(provider string) string {
	switch provider {
	case "ollama":
		return "llama3"
	case "gemini":
		return "gemini-2.0-flash"
	default:
		return "gpt-4o-mini"
	}
}

// APIKey returns the key for the configured provider.
func (c AIConfig) APIKey() string {
	switch c.LLMProvider {
	case "gemini":
		return c.GeminiKey
	default:
		return c.OpenAIKey
	}
}

// BaseURL returns the endpoint for the configured provider.
func (c AIConfig) BaseURL() string {
	switch c.LLMProvider {
	case "ollama":
		return c.OllamaBaseURL
	default:
		return c.OpenAIBaseURL
	}
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

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
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
	if value, err := time.ParseDuration(strValue); err == nil && value > 0 {
		return value
	}
	return fallback
}
