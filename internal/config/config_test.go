package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/farmaciaresumida-ux/doses-farmacologia/internal/config"
)

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("BIND_ADDR", "")
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("OPERATOR_CHAT_ID", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("BROADCAST_TOPICS", "")
	t.Setenv("ELASTICSEARCH_ADDR", "")
	t.Setenv("ELASTICSEARCH_INDEX", "")
	t.Setenv("BUSINESS_CONTEXT", "")

	cfg, err := config.LoadServer()
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:8080", cfg.BindAddr)
	require.Empty(t, cfg.TelegramToken)
	require.Empty(t, cfg.KafkaBrokers)
	require.Equal(t, "literature", cfg.ElasticsearchIndex)
	require.Equal(t, "farmacologia prática", cfg.BusinessContext)
	require.Equal(t, 10*time.Second, cfg.LookupTimeout)
	require.Equal(t, 15*time.Second, cfg.SendTimeout)
	require.Equal(t, 1, cfg.RetryMaxAttempts)
}

func TestLoadServerOverrides(t *testing.T) {
	t.Setenv("BIND_ADDR", ":9090")
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("OPERATOR_CHAT_ID", "4242")
	t.Setenv("KAFKA_BROKERS", "broker-a:29092, broker-b:29093")
	t.Setenv("BROADCAST_TOPICS", "grupo-1,grupo-2")
	t.Setenv("ELASTICSEARCH_ADDR", "http://localhost:9200")
	t.Setenv("ELASTICSEARCH_INDEX", "pubs")
	t.Setenv("LOOKUP_TIMEOUT", "5s")
	t.Setenv("SEND_TIMEOUT", "20s")
	t.Setenv("SEND_MAX_ATTEMPTS", "3")
	t.Setenv("SEND_BACKOFF_BASE", "500ms")
	t.Setenv("SEND_BACKOFF_CAP", "10s")

	cfg, err := config.LoadServer()
	require.NoError(t, err)

	require.Equal(t, ":9090", cfg.BindAddr)
	require.Equal(t, int64(4242), cfg.OperatorChatID)
	require.Equal(t, []string{"broker-a:29092", "broker-b:29093"}, cfg.KafkaBrokers)
	require.Equal(t, []string{"grupo-1", "grupo-2"}, cfg.BroadcastTopics)
	require.Equal(t, "pubs", cfg.ElasticsearchIndex)
	require.Equal(t, 5*time.Second, cfg.LookupTimeout)
	require.Equal(t, 20*time.Second, cfg.SendTimeout)
	require.Equal(t, 3, cfg.RetryMaxAttempts)
	require.Equal(t, 500*time.Millisecond, cfg.RetryBackoffBase)
	require.Equal(t, 10*time.Second, cfg.RetryBackoffCap)
}

func TestLoadServerTokenWithoutOperator(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("OPERATOR_CHAT_ID", "")

	_, err := config.LoadServer()
	require.Error(t, err)
}

func TestLoadServerBrokersWithoutTopics(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("KAFKA_BROKERS", "kafka:9092")
	t.Setenv("BROADCAST_TOPICS", "")

	_, err := config.LoadServer()
	require.Error(t, err)
}

func TestLoadScheduler(t *testing.T) {
	t.Setenv("SCHEDULER_TARGET", "http://server:8080/")
	t.Setenv("SCHEDULER_INTERVAL", "12h")

	cfg, err := config.LoadScheduler()
	require.NoError(t, err)

	require.Equal(t, "http://server:8080", cfg.TargetURL)
	require.Equal(t, 12*time.Hour, cfg.Interval)
}
