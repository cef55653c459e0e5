package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JwtSecret string
	JwtTTL    time.Duration

	// Server
	ApiPort        string
	ServiceApiPort string

	// Email
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string
	EmailLogFile    string

	// App Defaults
	AppName               string
	MessageMaxLength      int
	NotificationInboxSize int
	NotificationInboxTTL  time.Duration
	MatchRecomputeDelay   time.Duration
	MockServices          bool
	LogEmails             bool

	// Rate Limiting Defaults
	RateLimitSoftBucketSize int
	RateLimitSoftRefillRate int // tokens per second
	RateLimitHardBucketSize int
	RateLimitHardRefillRate int // tokens per second
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{
		RunMode: runMode,
	}

	var err error

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	getInt := func(key, defaultValue string) (int, error) {
		v, err := strconv.Atoi(getEnv(key, defaultValue))
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return v, nil
	}

	getBool := func(key string) (bool, error) {
		v, err := strconv.ParseBool(getEnv(key, "false"))
		if err != nil {
			return false, fmt.Errorf("invalid %s: %w", key, err)
		}
		return v, nil
	}

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "bookbuddy")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.JwtSecret, err = getRequiredEnv("JWT_SECRET")
	if err != nil {
		return nil, err
	}
	cfg.ApiPort = getEnv("API_PORT", "8080")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "noreply@bookbuddy.example.com")
	cfg.EmailLogFile = getEnv("EMAIL_LOG_FILE", "logs/emails.log")
	cfg.AppName = getEnv("APP_NAME", "BookBuddy")

	if cfg.RedisDB, err = getInt("REDIS_DB", "0"); err != nil {
		return nil, err
	}
	if cfg.SmtpPort, err = getInt("SMTP_PORT", "587"); err != nil {
		return nil, err
	}

	jwtTTLSeconds, err := strconv.ParseInt(getEnv("JWT_TTL_SECONDS", "3600"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL_SECONDS: %w", err)
	}
	cfg.JwtTTL = time.Duration(jwtTTLSeconds) * time.Second

	if cfg.MessageMaxLength, err = getInt("MESSAGE_MAX_LENGTH", "2000"); err != nil {
		return nil, err
	}
	if cfg.NotificationInboxSize, err = getInt("NOTIFICATION_INBOX_SIZE", "50"); err != nil {
		return nil, err
	}

	inboxTTLHours, err := getInt("NOTIFICATION_INBOX_TTL_HOURS", "168")
	if err != nil {
		return nil, err
	}
	cfg.NotificationInboxTTL = time.Duration(inboxTTLHours) * time.Hour

	recomputeDelaySeconds, err := getInt("MATCH_RECOMPUTE_DELAY_SECONDS", "5")
	if err != nil {
		return nil, err
	}
	cfg.MatchRecomputeDelay = time.Duration(recomputeDelaySeconds) * time.Second

	if cfg.MockServices, err = getBool("MOCK_SERVICES"); err != nil {
		return nil, err
	}
	if cfg.LogEmails, err = getBool("LOG_EMAILS"); err != nil {
		return nil, err
	}

	// Rate Limiting
	if cfg.RateLimitSoftBucketSize, err = getInt("RATE_LIMIT_SOFT_BUCKET_SIZE", "5"); err != nil {
		return nil, err
	}
	if cfg.RateLimitSoftRefillRate, err = getInt("RATE_LIMIT_SOFT_REFILL_RATE", "2"); err != nil {
		return nil, err
	}
	if cfg.RateLimitHardBucketSize, err = getInt("RATE_LIMIT_HARD_BUCKET_SIZE", "20"); err != nil {
		return nil, err
	}
	if cfg.RateLimitHardRefillRate, err = getInt("RATE_LIMIT_HARD_REFILL_RATE", "10"); err != nil {
		return nil, err
	}

	return cfg, nil
}
