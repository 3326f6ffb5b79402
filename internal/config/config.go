package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	RunMode string // from the command line, not env

	// MongoDB
	MongoURI          string
	MongoDbName       string
	MongoTransactions bool // requires a replica set

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
	CorsOrigins    []string

	// Logging
	LogJSON  bool
	LogDebug bool

	// Email
	EmailProvider   string // smtp, mailgun, log, redis
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string
	MailgunDomain   string
	MailgunAPIKey   string
	LogEmailsPath   string

	// AWS S3
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsS3Bucket        string
	ImageBaseS3URL     string
	ImageMaxDimension  int
	ImageMaxSizeMB     int
	ImageUploadURLTTL  time.Duration

	// Notifications
	KafkaBrokers            []string
	KafkaEventsTopic        string
	FirebaseCredentialsFile string
	EventWorkers            int
	EventQueueSize          int
	EventSendTimeoutSeconds int

	// App
	AppName              string
	AppBaseURL           string
	DefaultLocale        string
	PasswordMinLength    int
	MatchOnRequestCreate bool
	MatchCandidatePage   int64

	// Rate limiting
	RateLimitSoftBucketSize int
	RateLimitSoftRefillRate int // tokens per second
	RateLimitHardBucketSize int
	RateLimitHardRefillRate int // tokens per second
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("MONGO_DB_NAME", "carlink")
	v.SetDefault("MONGO_TRANSACTIONS", true)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_TTL_SECONDS", 3600)
	v.SetDefault("API_PORT", "8080")
	v.SetDefault("SERVICE_API_PORT", "12345")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("LOG_JSON", false)
	v.SetDefault("LOG_DEBUG", false)
	v.SetDefault("EMAIL_PROVIDER", "log")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_FROM_ADDRESS", "noreply@carlink.example.com")
	v.SetDefault("IMAGE_MAX_DIMENSION", 2048)
	v.SetDefault("IMAGE_MAX_SIZE_MB", 10)
	v.SetDefault("IMAGE_UPLOAD_URL_TTL_SECONDS", 900)
	v.SetDefault("KAFKA_EVENTS_TOPIC", "marketplace-events")
	v.SetDefault("EVENT_WORKERS", 4)
	v.SetDefault("EVENT_QUEUE_SIZE", 256)
	v.SetDefault("EVENT_SEND_TIMEOUT_SECONDS", 10)
	v.SetDefault("APP_NAME", "Carlink")
	v.SetDefault("APP_BASE_URL", "http://localhost:3000")
	v.SetDefault("DEFAULT_LOCALE", "en-US")
	v.SetDefault("PASSWORD_MIN_LENGTH", 8)
	v.SetDefault("MATCH_ON_REQUEST_CREATE", true)
	v.SetDefault("MATCH_CANDIDATE_PAGE_SIZE", 200)
	v.SetDefault("RATE_LIMIT_SOFT_BUCKET_SIZE", 2)
	v.SetDefault("RATE_LIMIT_SOFT_REFILL_RATE", 1)
	v.SetDefault("RATE_LIMIT_HARD_BUCKET_SIZE", 8)
	v.SetDefault("RATE_LIMIT_HARD_REFILL_RATE", 4)
}

// Load reads .env (if present) and the process environment.
// runMode comes from the command line.
func Load(runMode string) (*Config, error) {
	_ = godotenv.Load()
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return fromViper(v, runMode)
}

func fromViper(v *viper.Viper, runMode string) (*Config, error) {
	cfg := &Config{
		RunMode:                 runMode,
		MongoURI:                v.GetString("MONGO_URI"),
		MongoDbName:             v.GetString("MONGO_DB_NAME"),
		MongoTransactions:       v.GetBool("MONGO_TRANSACTIONS"),
		RedisAddr:               v.GetString("REDIS_ADDR"),
		RedisPassword:           v.GetString("REDIS_PASSWORD"),
		RedisDB:                 v.GetInt("REDIS_DB"),
		JwtSecret:               v.GetString("JWT_SECRET"),
		JwtTTL:                  time.Duration(v.GetInt64("JWT_TTL_SECONDS")) * time.Second,
		ApiPort:                 v.GetString("API_PORT"),
		ServiceApiPort:          v.GetString("SERVICE_API_PORT"),
		CorsOrigins:             splitList(v.GetString("CORS_ORIGINS")),
		LogJSON:                 v.GetBool("LOG_JSON"),
		LogDebug:                v.GetBool("LOG_DEBUG"),
		EmailProvider:           strings.ToLower(v.GetString("EMAIL_PROVIDER")),
		SmtpHost:                v.GetString("SMTP_HOST"),
		SmtpPort:                v.GetInt("SMTP_PORT"),
		SmtpUsername:            v.GetString("SMTP_USERNAME"),
		SmtpPassword:            v.GetString("SMTP_PASSWORD"),
		SmtpFromAddress:         v.GetString("SMTP_FROM_ADDRESS"),
		MailgunDomain:           v.GetString("MAILGUN_DOMAIN"),
		MailgunAPIKey:           v.GetString("MAILGUN_API_KEY"),
		LogEmailsPath:           v.GetString("LOG_EMAILS"),
		AwsAccessKeyID:          v.GetString("AWS_ACCESS_KEY_ID"),
		AwsSecretAccessKey:      v.GetString("AWS_SECRET_ACCESS_KEY"),
		AwsRegion:               v.GetString("AWS_REGION"),
		AwsS3Bucket:             v.GetString("AWS_S3_BUCKET"),
		ImageBaseS3URL:          v.GetString("IMAGE_BASE_S3_URL"),
		ImageMaxDimension:       v.GetInt("IMAGE_MAX_DIMENSION"),
		ImageMaxSizeMB:          v.GetInt("IMAGE_MAX_SIZE_MB"),
		ImageUploadURLTTL:       time.Duration(v.GetInt64("IMAGE_UPLOAD_URL_TTL_SECONDS")) * time.Second,
		KafkaBrokers:            splitList(v.GetString("KAFKA_BROKERS")),
		KafkaEventsTopic:        v.GetString("KAFKA_EVENTS_TOPIC"),
		FirebaseCredentialsFile: v.GetString("FIREBASE_CREDENTIALS_FILE"),
		EventWorkers:            v.GetInt("EVENT_WORKERS"),
		EventQueueSize:          v.GetInt("EVENT_QUEUE_SIZE"),
		EventSendTimeoutSeconds: v.GetInt("EVENT_SEND_TIMEOUT_SECONDS"),
		AppName:                 v.GetString("APP_NAME"),
		AppBaseURL:              strings.TrimRight(v.GetString("APP_BASE_URL"), "/"),
		DefaultLocale:           v.GetString("DEFAULT_LOCALE"),
		PasswordMinLength:       v.GetInt("PASSWORD_MIN_LENGTH"),
		MatchOnRequestCreate:    v.GetBool("MATCH_ON_REQUEST_CREATE"),
		MatchCandidatePage:      v.GetInt64("MATCH_CANDIDATE_PAGE_SIZE"),
		RateLimitSoftBucketSize: v.GetInt("RATE_LIMIT_SOFT_BUCKET_SIZE"),
		RateLimitSoftRefillRate: v.GetInt("RATE_LIMIT_SOFT_REFILL_RATE"),
		RateLimitHardBucketSize: v.GetInt("RATE_LIMIT_HARD_BUCKET_SIZE"),
		RateLimitHardRefillRate: v.GetInt("RATE_LIMIT_HARD_REFILL_RATE"),
	}

	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("missing required environment variable: MONGO_URI")
	}
	if cfg.JwtSecret == "" {
		return nil, fmt.Errorf("missing required environment variable: JWT_SECRET")
	}
	if cfg.JwtTTL <= 0 {
		return nil, fmt.Errorf("invalid JWT_TTL_SECONDS: must be positive")
	}
	switch cfg.EmailProvider {
	case "smtp", "mailgun", "log", "redis":
	default:
		return nil, fmt.Errorf("invalid EMAIL_PROVIDER %q", cfg.EmailProvider)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
