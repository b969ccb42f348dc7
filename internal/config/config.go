package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	APIPort  string
	LogLevel string

	APIRateLimitRPS            float64
	APIRateLimitBurst          int
	APIBackpressureMaxInFlight int
	APIBackpressureWaitTimeout time.Duration

	OllamaURL      string
	OllamaGenModel string

	OracleEnabled          bool
	OracleTimeout          time.Duration
	OracleRetryMaxAttempts int
	OracleBreakerEnabled   bool

	StoragePath    string
	UploadMaxBytes int64

	AsyncEnabled        bool
	NATSURL             string
	NATSSubmitSubject   string
	NATSDecisionSubject string

	PipelineConcurrency int

	DecisionApproveThreshold float64
	DecisionRejectThreshold  float64
	DecisionHighAmount       float64

	KeywordTablesPath string

	WorkerMetricsPort string
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		APIRateLimitRPS:            mustEnvFloat("API_RATE_LIMIT_RPS", 20),
		APIRateLimitBurst:          mustEnvInt("API_RATE_LIMIT_BURST", 40),
		APIBackpressureMaxInFlight: mustEnvInt("API_BACKPRESSURE_MAX_IN_FLIGHT", 16),
		APIBackpressureWaitTimeout: time.Duration(mustEnvInt("API_BACKPRESSURE_WAIT_MS", 250)) * time.Millisecond,

		OllamaURL:      mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel: mustEnv("OLLAMA_GEN_MODEL", "llama3.1:8b"),

		OracleEnabled:          mustEnvBool("ORACLE_ENABLED", true),
		OracleTimeout:          mustEnvDuration("ORACLE_TIMEOUT", 8*time.Second),
		OracleRetryMaxAttempts: mustEnvInt("ORACLE_RETRY_MAX_ATTEMPTS", 2),
		OracleBreakerEnabled:   mustEnvBool("ORACLE_BREAKER_ENABLED", true),

		StoragePath:    mustEnv("STORAGE_PATH", "./data/claims"),
		UploadMaxBytes: int64(mustEnvInt("UPLOAD_MAX_BYTES", 50<<20)),

		AsyncEnabled:        mustEnvBool("ASYNC_ENABLED", false),
		NATSURL:             mustEnv("NATS_URL", "nats://localhost:4222"),
		NATSSubmitSubject:   mustEnv("NATS_SUBMIT_SUBJECT", "claims.submit"),
		NATSDecisionSubject: mustEnv("NATS_DECISION_SUBJECT", "claims.decided"),

		PipelineConcurrency: mustEnvInt("PIPELINE_CONCURRENCY", 4),

		DecisionApproveThreshold: mustEnvFloat("DECISION_APPROVE_THRESHOLD", 0.7),
		DecisionRejectThreshold:  mustEnvFloat("DECISION_REJECT_THRESHOLD", 0.3),
		DecisionHighAmount:       mustEnvFloat("DECISION_HIGH_AMOUNT", 500000),

		KeywordTablesPath: mustEnv("KEYWORD_TABLES_PATH", ""),

		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// mustEnvDuration accepts Go durations ("8s", "1500ms") or a bare number of seconds.
func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}
