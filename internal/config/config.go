package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string

	LogLevel  string
	LogFormat string

	GraphQLEndpoint string
	GraphQLTimeout  time.Duration

	// JWTSecret is the HMAC secret the remote API signs access tokens with.
	JWTSecret string

	RedisURL        string
	CommentCacheTTL time.Duration
	MaxCommentPages int
	CommentPageSize int

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	WorkerCount int

	PaymentPollInterval time.Duration
	PaymentPollTimeout  time.Duration

	ExpoPushURL string
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		GraphQLEndpoint: os.Getenv("GRAPHQL_ENDPOINT"),
		GraphQLTimeout:  getDuration("GRAPHQL_TIMEOUT", 15*time.Second),

		JWTSecret: os.Getenv("JWT_SECRET"),

		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379"),
		CommentCacheTTL: getDuration("COMMENT_CACHE_TTL", 10*time.Minute),
		MaxCommentPages: getInt("MAX_COMMENT_PAGES", 20),
		CommentPageSize: getInt("COMMENT_PAGE_SIZE", 50),

		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  getEnv("DB_SSLMODE", "require"),

		WorkerCount: getInt("WORKER_COUNT", 2),

		PaymentPollInterval: getDuration("PAYMENT_POLL_INTERVAL", 3*time.Second),
		PaymentPollTimeout:  getDuration("PAYMENT_POLL_TIMEOUT", 2*time.Minute),

		ExpoPushURL: getEnv("EXPO_PUSH_URL", "https://exp.host/--/api/v2/push/send"),
	}

	if cfg.GraphQLEndpoint == "" {
		return nil, fmt.Errorf("GRAPHQL_ENDPOINT is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}

// getDuration accepts Go duration strings ("30s") or plain seconds ("30").
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
