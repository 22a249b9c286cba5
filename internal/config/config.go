package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server configures the control-surface binary. Optional transport
// credentials that are absent disable the corresponding channel instead of
// failing startup; status reporting surfaces the disabled channels.
type Server struct {
	BindAddr string

	TelegramToken  string
	OperatorChatID int64

	KafkaBrokers    []string
	BroadcastTopics []string

	ElasticsearchAddr  string
	ElasticsearchIndex string

	BusinessContext string
	DraftDBPath     string

	LookupTimeout time.Duration
	SendTimeout   time.Duration

	RetryMaxAttempts int
	RetryBackoffBase time.Duration
	RetryBackoffCap  time.Duration
}

// Scheduler configures the daily trigger loop.
type Scheduler struct {
	TargetURL string
	Interval  time.Duration
}

// LoadServer builds a Server config from environment variables.
func LoadServer() (*Server, error) {
	c := &Server{
		BindAddr:           getEnv("BIND_ADDR", "0.0.0.0:8080"),
		TelegramToken:      os.Getenv("TELEGRAM_TOKEN"),
		OperatorChatID:     getInt64("OPERATOR_CHAT_ID", 0),
		KafkaBrokers:       splitAndTrim(os.Getenv("KAFKA_BROKERS")),
		BroadcastTopics:    splitAndTrim(getEnv("BROADCAST_TOPICS", "")),
		ElasticsearchAddr:  os.Getenv("ELASTICSEARCH_ADDR"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "literature"),
		BusinessContext:    getEnv("BUSINESS_CONTEXT", "farmacologia prática"),
		DraftDBPath:        os.Getenv("DRAFT_DB_PATH"),
		LookupTimeout:      getDuration("LOOKUP_TIMEOUT", "10s"),
		SendTimeout:        getDuration("SEND_TIMEOUT", "15s"),
		RetryMaxAttempts:   getInt("SEND_MAX_ATTEMPTS", 1),
		RetryBackoffBase:   getDuration("SEND_BACKOFF_BASE", "1s"),
		RetryBackoffCap:    getDuration("SEND_BACKOFF_CAP", "30s"),
	}

	if c.TelegramToken != "" && c.OperatorChatID == 0 {
		return nil, fmt.Errorf("OPERATOR_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}
	if len(c.KafkaBrokers) > 0 && len(c.BroadcastTopics) == 0 {
		return nil, fmt.Errorf("BROADCAST_TOPICS must name at least one topic when KAFKA_BROKERS is set")
	}
	if c.LookupTimeout <= 0 {
		return nil, fmt.Errorf("LOOKUP_TIMEOUT must be positive")
	}
	if c.SendTimeout <= 0 {
		return nil, fmt.Errorf("SEND_TIMEOUT must be positive")
	}
	if c.RetryMaxAttempts <= 0 {
		return nil, fmt.Errorf("SEND_MAX_ATTEMPTS must be positive")
	}
	if c.RetryBackoffBase <= 0 {
		return nil, fmt.Errorf("SEND_BACKOFF_BASE must be positive")
	}
	if c.RetryBackoffCap < c.RetryBackoffBase {
		return nil, fmt.Errorf("SEND_BACKOFF_CAP cannot be below SEND_BACKOFF_BASE")
	}

	return c, nil
}

// LoadScheduler builds a Scheduler config from environment variables.
func LoadScheduler() (*Scheduler, error) {
	c := &Scheduler{
		TargetURL: strings.TrimRight(getEnv("SCHEDULER_TARGET", "http://localhost:8080"), "/"),
		Interval:  getDuration("SCHEDULER_INTERVAL", "24h"),
	}

	if c.TargetURL == "" {
		return nil, fmt.Errorf("SCHEDULER_TARGET must not be empty")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("SCHEDULER_INTERVAL must be positive")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
