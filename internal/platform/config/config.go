package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the portal client and the mock
// verification service.
type Config struct {
	Addr        string
	APIBaseURL  string
	HTTPTimeout time.Duration
	LogLevel    string

	Session  SessionConfig
	Redis    RedisConfig
	Workflow WorkflowConfig
	Breaker  BreakerConfig
	Kafka    KafkaConfig
	Verifier VerifierConfig
}

// SessionConfig selects and configures the durable session record backend.
type SessionConfig struct {
	Backend     string // file, redis or memory
	Dir         string
	Secret      string
	RedisPrefix string
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// WorkflowConfig holds per-stage dwell periods.
type WorkflowConfig struct {
	UploadingDwell time.Duration
	AnalyzingDwell time.Duration
	VerifyingDwell time.Duration
}

// BreakerConfig guards calls to the verification service.
type BreakerConfig struct {
	FailureThreshold int
	OpenTimeout      time.Duration
}

// KafkaConfig enables the Kafka audit sink when Brokers is non-empty.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// VerifierConfig configures the mock verification service.
type VerifierConfig struct {
	Addr               string
	JWTSigningKey      string
	TokenTTL           time.Duration
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	FrontendURL        string
}

// FromEnv builds a Config from environment variables, after loading an optional
// .env file, so main stays lean.
func FromEnv() Config {
	_ = godotenv.Load()

	home, _ := os.UserHomeDir()

	return Config{
		Addr:        getEnv("TRUSTID_ADDR", ":5173"),
		APIBaseURL:  strings.TrimRight(getEnv("TRUSTID_API_URL", "http://localhost:8000"), "/"),
		HTTPTimeout: getEnvAsDuration("TRUSTID_HTTP_TIMEOUT", 10*time.Second),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Session: SessionConfig{
			Backend:     strings.ToLower(getEnv("TRUSTID_SESSION_BACKEND", "file")),
			Dir:         getEnv("TRUSTID_SESSION_DIR", home+"/.trustid"),
			Secret:      os.Getenv("TRUSTID_SESSION_SECRET"),
			RedisPrefix: getEnv("TRUSTID_REDIS_PREFIX", "trustid"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 1),
			DialTimeout:  getEnvAsDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvAsDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvAsDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Workflow: WorkflowConfig{
			UploadingDwell: getEnvAsDuration("TRUSTID_STAGE_DWELL_UPLOADING", 2*time.Second),
			AnalyzingDwell: getEnvAsDuration("TRUSTID_STAGE_DWELL_ANALYZING", 3*time.Second),
			VerifyingDwell: getEnvAsDuration("TRUSTID_STAGE_DWELL_VERIFYING", 4*time.Second),
		},
		Breaker: BreakerConfig{
			FailureThreshold: getEnvAsInt("TRUSTID_BREAKER_FAILURES", 5),
			OpenTimeout:      getEnvAsDuration("TRUSTID_BREAKER_OPEN_TIMEOUT", 30*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(os.Getenv("KAFKA_BROKERS")),
			AuditTopic: getEnv("KAFKA_AUDIT_TOPIC", "trustid.audit"),
		},
		Verifier: VerifierConfig{
			Addr: getEnv("VERIFIER_ADDR", ":8000"),
			// Use a default for development - should be overridden in production
			JWTSigningKey:      getEnv("VERIFIER_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			TokenTTL:           getEnvAsDuration("VERIFIER_TOKEN_TTL", time.Hour),
			GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "http://localhost:8000/auth/callback"),
			FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:5173"),
		},
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
