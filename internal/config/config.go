package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort               string
	APIMaxConnections     int
	APIRateLimitRPS       float64
	APIRateLimitBurst     int
	APIMaxInFlight        int
	APIBackpressureWaitMS int
	APIMaxUploadBytes     int64
	LogLevel              string
	MetricsEnabled        bool

	OpenAIBaseURL        string
	OpenAIModel          string
	OpenAITimeoutSeconds int
	LLMRetryMaxAttempts  int
	LLMBreakerEnabled    bool

	CredentialDir    string
	CredentialKey    string
	CredentialPrefix string

	NATSURL     string
	NATSSubject string

	PDFMaxPages         int
	PDFWorkers          int
	PDFParseAttempts    int
	FallbackMinChars    int
	FallbackMaxChars    int
	ExtractSpreadsheets bool

	ProgressTickMS       int
	ProgressMaxIncrement float64
	HistoryWindow        int
	QuestionMaxChars     int
}

// Load reads the environment. When CONFIG_FILE names a YAML file, its flat keys (lower-cased
// variable names) replace the built-in defaults; environment variables still take precedence.
func Load() Config {
	src := source{overlay: loadOverlay(os.Getenv("CONFIG_FILE"))}

	return Config{
		APIPort:               src.mustEnv("API_PORT", "8080"),
		APIMaxConnections:     src.mustEnvInt("API_MAX_CONNECTIONS", 256),
		APIRateLimitRPS:       src.mustEnvFloat("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst:     src.mustEnvInt("API_RATE_LIMIT_BURST", 0),
		APIMaxInFlight:        src.mustEnvInt("API_MAX_IN_FLIGHT", 0),
		APIBackpressureWaitMS: src.mustEnvInt("API_BACKPRESSURE_WAIT_MS", 250),
		APIMaxUploadBytes:     int64(src.mustEnvInt("API_MAX_UPLOAD_BYTES", 32<<20)),
		LogLevel:              src.mustEnv("LOG_LEVEL", "info"),
		MetricsEnabled:        src.mustEnvBool("METRICS_ENABLED", true),

		OpenAIBaseURL:        src.mustEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:          src.mustEnv("OPENAI_MODEL", "gpt-5"),
		OpenAITimeoutSeconds: src.mustEnvInt("OPENAI_TIMEOUT_SECONDS", 0),
		LLMRetryMaxAttempts:  src.mustEnvInt("LLM_RETRY_MAX_ATTEMPTS", 1),
		LLMBreakerEnabled:    src.mustEnvBool("LLM_BREAKER_ENABLED", true),

		CredentialDir:    src.mustEnv("CREDENTIAL_DIR", "./data/credentials"),
		CredentialKey:    src.mustEnv("CREDENTIAL_KEY", "openai-api-key"),
		CredentialPrefix: src.mustEnv("CREDENTIAL_PREFIX", "sk-"),

		NATSURL:     src.mustEnv("NATS_URL", ""),
		NATSSubject: src.mustEnv("NATS_SUBJECT", "documents.notifications"),

		PDFMaxPages:         src.mustEnvInt("PDF_MAX_PAGES", 10),
		PDFWorkers:          src.mustEnvInt("PDF_WORKERS", 2),
		PDFParseAttempts:    src.mustEnvInt("PDF_PARSE_ATTEMPTS", 2),
		FallbackMinChars:    src.mustEnvInt("FALLBACK_MIN_CHARS", 100),
		FallbackMaxChars:    src.mustEnvInt("FALLBACK_MAX_CHARS", 2000),
		ExtractSpreadsheets: src.mustEnvBool("EXTRACT_SPREADSHEETS", false),

		ProgressTickMS:       src.mustEnvInt("PROGRESS_TICK_MS", 200),
		ProgressMaxIncrement: src.mustEnvFloat("PROGRESS_MAX_INCREMENT", 20),
		HistoryWindow:        src.mustEnvInt("HISTORY_WINDOW", 5),
		QuestionMaxChars:     src.mustEnvInt("QUESTION_MAX_CHARS", 500),
	}
}

func (c Config) OpenAITimeout() time.Duration {
	return time.Duration(c.OpenAITimeoutSeconds) * time.Second
}

func (c Config) ProgressTick() time.Duration {
	return time.Duration(c.ProgressTickMS) * time.Millisecond
}

func (c Config) BackpressureWait() time.Duration {
	return time.Duration(c.APIBackpressureWaitMS) * time.Millisecond
}

type source struct {
	overlay map[string]string
}

func loadOverlay(path string) map[string]string {
	if path == "" {
		return nil
	}
	overlay, err := readOverlay(path)
	if err != nil {
		slog.Warn("config_overlay_ignored", "path", path, "error", err.Error())
		return nil
	}
	return overlay
}

func readOverlay(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	out := make(map[string]string, len(values))
	for key, value := range values {
		switch value.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("config key %q must be a scalar", key)
		case nil:
			continue
		}
		out[strings.ToUpper(strings.TrimSpace(key))] = fmt.Sprint(value)
	}
	return out, nil
}

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.overlay[key]
}

func (s source) mustEnv(key, fallback string) string {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	return v
}

func (s source) mustEnvInt(key string, fallback int) int {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (s source) mustEnvFloat(key string, fallback float64) float64 {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func (s source) mustEnvBool(key string, fallback bool) bool {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
