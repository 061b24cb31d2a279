package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds configuration for the gateway.
type Config struct {
	AppEnv    string
	HTTPPort  string
	JWTSecret []byte
	Database  DatabaseConfig
	Redis     RedisConfig
	Provider  ProviderConfig
	Artifacts ArtifactConfig
	Audit     AuditConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	ProviderCacheSize int
	ProviderCacheTTL  time.Duration
	RuleCacheSize     int
	RuleCacheTTL      time.Duration

	// Base64-encoded AES key for provider credentials
	EncryptionKey string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ProviderConfig holds provider call settings
type ProviderConfig struct {
	SubmitTimeout time.Duration
	FetchTimeout  time.Duration
}

// ArtifactConfig holds durable artifact storage settings
type ArtifactConfig struct {
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3AccessKeyID   string
	S3SecretKey     string
	S3UsePathStyle  bool
	PublicBaseURL   string
	InternalHosts   []string
	DownloadTimeout time.Duration
}

// AuditConfig holds the call-record queue settings
type AuditConfig struct {
	UseRedis     bool
	BatchSize    int
	BatchTimeout time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

func getEnvBool(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val == "true" || val == "1"
}

func getEnvList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Load reads configuration from the environment. A .env file in the
// working directory is picked up first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg := &Config{
		AppEnv:    getEnvString("APP_ENV", "production"),
		HTTPPort:  getEnvString("HTTP_PORT", "8080"),
		JWTSecret: []byte(getEnvString("JWT_SECRET", "supersecretkey")),
		Database: DatabaseConfig{
			URL:             dbURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),

			ProviderCacheSize: getEnvInt("CACHE_PROVIDER_SIZE", 200),
			ProviderCacheTTL:  getEnvDuration("CACHE_PROVIDER_TTL", 5*time.Minute),
			RuleCacheSize:     getEnvInt("CACHE_RULE_SIZE", 500),
			RuleCacheTTL:      getEnvDuration("CACHE_RULE_TTL", 5*time.Minute),

			EncryptionKey: getEnvString("CREDENTIAL_ENCRYPTION_KEY", ""),
		},
		Redis: RedisConfig{
			Address:      getEnvString("REDIS_ADDRESS", "localhost:6379"),
			Password:     getEnvString("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Provider: ProviderConfig{
			SubmitTimeout: getEnvDuration("PROVIDER_SUBMIT_TIMEOUT", 120*time.Second),
			FetchTimeout:  getEnvDuration("PROVIDER_FETCH_TIMEOUT", 15*time.Second),
		},
		Artifacts: ArtifactConfig{
			S3Bucket:        getEnvString("ARTIFACT_S3_BUCKET", ""),
			S3Region:        getEnvString("ARTIFACT_S3_REGION", "us-east-1"),
			S3Endpoint:      getEnvString("ARTIFACT_S3_ENDPOINT", ""),
			S3AccessKeyID:   getEnvString("ARTIFACT_S3_ACCESS_KEY_ID", ""),
			S3SecretKey:     getEnvString("ARTIFACT_S3_SECRET_KEY", ""),
			S3UsePathStyle:  getEnvBool("ARTIFACT_S3_USE_PATH_STYLE", false),
			PublicBaseURL:   getEnvString("ARTIFACT_PUBLIC_BASE_URL", ""),
			InternalHosts:   getEnvList("ARTIFACT_INTERNAL_HOSTS"),
			DownloadTimeout: getEnvDuration("ARTIFACT_DOWNLOAD_TIMEOUT", 60*time.Second),
		},
		Audit: AuditConfig{
			UseRedis:     getEnvBool("AUDIT_QUEUE_USE_REDIS", false),
			BatchSize:    getEnvInt("AUDIT_QUEUE_BATCH_SIZE", 100),
			BatchTimeout: getEnvDuration("AUDIT_QUEUE_BATCH_TIMEOUT", 5*time.Second),
			MaxRetries:   getEnvInt("AUDIT_QUEUE_MAX_RETRIES", 3),
			RetryBackoff: getEnvDuration("AUDIT_QUEUE_RETRY_BACKOFF", 1*time.Second),
		},
	}

	return cfg, nil
}
