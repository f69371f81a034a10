package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort       string
	ModelName     string
	LLMURL        string
	JWTSecret     string
	TokenTTLHours int // lifetime of issued login tokens

	// Conversation history settings
	HistoryBackend string // "file" or "redis"
	HistoryDir     string
	TTLSeconds     int
	MaxMessages    int // history window passed to the model

	RedisHost     string
	RedisPort     string
	RedisDB       int
	RedisPassword string

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
}

// LoadConfig reads .env (or .env.$ENV when ENV is set) and overlays system
// environment variables on top of the defaults.
func LoadConfig() Config {
	envFile := ".env"
	if runtime := os.Getenv("ENV"); runtime != "" {
		envFile = ".env." + runtime
	}
	// Missing env file is fine in containers: everything comes from the
	// real environment.
	_ = godotenv.Load(envFile)

	return Config{
		AppPort:       getEnv("APP_PORT", "8000"),
		ModelName:     getEnv("MODEL_NAME", "gpt-oss:120b-cloud"),
		LLMURL:        getEnv("LLM_URL", "http://localhost:11434/api"),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		TokenTTLHours: getEnvInt("TOKEN_TTL_HOURS", 24),

		HistoryBackend: getEnv("HISTORY_BACKEND", "redis"),
		HistoryDir:     getEnv("HISTORY_DIR", "./memories"),
		TTLSeconds:     getEnvInt("TTL_SECONDS", 3600),
		MaxMessages:    getEnvInt("MAX_MSG", 12),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		DBUser:     getEnv("DB_USER", ""),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBHost:     getEnv("DB_HOST", ""),
		DBPort:     getEnv("DB_PORT", ""),
		DBName:     getEnv("DB_NAME", ""),

		MinIOEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinIOBucket:    getEnv("MINIO_BUCKET", "convo-images"),
	}
}

// RedisAddr is the host:port form the redis client wants.
func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
