package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	LLM        LLMConfig
	Classifier ClassifierConfig
	Import     ImportConfig
	Logger     LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxUploadMB  int
}

type DatabaseConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	DBName      string
	SSLMode     string
	AutoMigrate bool
}

// JWTConfig holds the secret shared with the managed auth service.
// Tokens are issued there; this service only verifies them.
type JWTConfig struct {
	SecretKey string
	// TokenTTL applies to development tokens minted by importctl.
	TokenTTL time.Duration
}

// LLMConfig selects and configures the chat backend used for classification.
type LLMConfig struct {
	Provider    string // deepseek, gigachat or gemini
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	// MaxRetries is the total number of model calls per prompt.
	MaxRetries  int
	RetryDelay  time.Duration
	Temperature float64
	MaxTokens   int

	GigaChatScope              string
	GigaChatInsecureSkipVerify bool
}

type ClassifierConfig struct {
	BatchSize           int
	BatchDelay          time.Duration
	RetryAttempts       int
	RetryDelay          time.Duration
	AutoApplyConfidence float64
	QueueSize           int
	Workers             int
}

type ImportConfig struct {
	DefaultCurrency string
	PreviewRows     int
}

func Load() (*Config, error) {
	// .env is optional; plain environment variables work the same (Docker/K8s)
	for _, envFile := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	provider := getEnv("LLM_PROVIDER", "deepseek")

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(getEnvInt("SERVER_READ_TIMEOUT", 30)) * time.Second,
			WriteTimeout: time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT", 30)) * time.Second,
			MaxUploadMB:  getEnvInt("MAX_UPLOAD_MB", 10),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			DBName:      getEnv("DB_NAME", "fintrack"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			AutoMigrate: getEnvBool("DB_AUTO_MIGRATE", true),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			TokenTTL:  time.Duration(getEnvInt("JWT_TOKEN_TTL_HOURS", 24)) * time.Hour,
		},
		LLM: LLMConfig{
			Provider:                   provider,
			APIKey:                     getEnv("LLM_API_KEY", ""),
			BaseURL:                    getEnv("LLM_BASE_URL", "https://api.deepseek.com/v1"),
			Model:                      getEnv("LLM_MODEL", defaultModel(provider)),
			Timeout:                    time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 120)) * time.Second,
			MaxRetries:                 getEnvInt("LLM_MAX_RETRIES", 3),
			RetryDelay:                 time.Duration(getEnvInt("LLM_RETRY_DELAY_MS", 2000)) * time.Millisecond,
			Temperature:                getEnvFloat("LLM_TEMPERATURE", 0.3),
			MaxTokens:                  getEnvInt("LLM_MAX_TOKENS", 2000),
			GigaChatScope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			GigaChatInsecureSkipVerify: getEnvBool("GIGACHAT_INSECURE_SKIP_VERIFY", true),
		},
		Classifier: ClassifierConfig{
			BatchSize:           getEnvInt("CLASSIFIER_BATCH_SIZE", 10),
			BatchDelay:          time.Duration(getEnvInt("CLASSIFIER_BATCH_DELAY_MS", 1000)) * time.Millisecond,
			RetryAttempts:       getEnvInt("CLASSIFIER_RETRY_ATTEMPTS", 3),
			RetryDelay:          time.Duration(getEnvInt("CLASSIFIER_RETRY_DELAY_MS", 1000)) * time.Millisecond,
			AutoApplyConfidence: getEnvFloat("AUTO_APPLY_MIN_CONFIDENCE", 0.8),
			QueueSize:           getEnvInt("CLASSIFY_QUEUE_SIZE", 100),
			Workers:             getEnvInt("CLASSIFY_WORKERS", 2),
		},
		Import: ImportConfig{
			DefaultCurrency: getEnv("IMPORT_DEFAULT_CURRENCY", "USD"),
			PreviewRows:     getEnvInt("IMPORT_PREVIEW_ROWS", 10),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func defaultModel(provider string) string {
	switch provider {
	case "gigachat":
		return "GigaChat"
	case "gemini":
		return "gemini-2.5-flash"
	default:
		return "deepseek-chat"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}
