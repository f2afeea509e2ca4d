package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	JWTSecret        string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	CORSOrigins      []string
	Languages        []string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIOrg     string
	GeminiAPIKey  string
	GeminiBaseURL string
	FalAPIKey     string
	FalBaseURL    string
	QwenAPIKey    string
	QwenBaseURL   string

	ScriptModel   string
	PromptModel   string
	ImageModel    string
	ModelCacheTTL time.Duration

	CostScript        int
	CostPrompts       int
	CostImagePerScene int

	PresetsPath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StorageDriver  string
	StoragePath    string
	StorageBaseURL string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool
	MinioPublicURL string

	StaleRunAfter   time.Duration
	SweepInterval   time.Duration
	ProviderTimeout time.Duration
	StartingCredits int
}

// LoadDotEnv loads a .env file when one exists. Variables already set in the
// environment win.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// IsLocal reports whether the process runs without external infrastructure.
func (c *Config) IsLocal() bool {
	return c != nil && c.AppEnv == "local"
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 600)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSOrigins:      getEnvList("CORS_ALLOWED_ORIGINS", nil),
		Languages:        getEnvList("SUPPORTED_LANGUAGES", []string{"en", "id", "es", "pt", "fr", "de"}),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIOrg:     os.Getenv("OPENAI_ORG"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		FalAPIKey:     os.Getenv("FAL_API_KEY"),
		FalBaseURL:    getEnv("FAL_BASE_URL", "https://fal.run"),
		QwenAPIKey:    os.Getenv("QWEN_API_KEY"),
		QwenBaseURL:   os.Getenv("QWEN_BASE_URL"),

		ScriptModel:   getEnv("SCRIPT_MODEL", "openai:gpt-4o-mini"),
		PromptModel:   getEnv("PROMPT_MODEL", "openai:gpt-4o-mini"),
		ImageModel:    getEnv("IMAGE_MODEL", "fal:fal-ai/flux/schnell"),
		ModelCacheTTL: getEnvDuration("MODEL_CACHE_TTL", 5*time.Minute),

		CostScript:        getEnvInt("COST_SCRIPT", 1),
		CostPrompts:       getEnvInt("COST_PROMPTS", 1),
		CostImagePerScene: getEnvInt("COST_IMAGE_PER_SCENE", 1),

		PresetsPath: os.Getenv("PRESETS_PATH"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		StorageDriver:  strings.ToLower(getEnv("STORAGE_DRIVER", "none")),
		StoragePath:    getEnv("STORAGE_PATH", "./data/assets"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),
		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "shorts"),
		MinioRegion:    os.Getenv("MINIO_REGION"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioPublicURL: os.Getenv("MINIO_PUBLIC_BASE_URL"),

		StaleRunAfter:   getEnvDuration("STALE_RUN_AFTER", 30*time.Minute),
		SweepInterval:   getEnvDuration("SWEEP_INTERVAL", time.Minute),
		ProviderTimeout: getEnvDuration("PROVIDER_TIMEOUT", 120*time.Second),
		StartingCredits: getEnvInt("LOCAL_STARTING_CREDITS", 100),
	}

	if cfg.IsLocal() {
		if cfg.JWTSecret == "" {
			cfg.JWTSecret = "local-dev-secret"
		}
		return cfg, nil
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	switch cfg.StorageDriver {
	case "none", "file":
	case "minio":
		if cfg.MinioEndpoint == "" {
			return nil, fmt.Errorf("MINIO_ENDPOINT is required when STORAGE_DRIVER=minio")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
