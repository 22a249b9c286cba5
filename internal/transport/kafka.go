package transport

import (
	"context"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// Kafka broadcasts approved content to group channels. Each destination is a
// topic; the downstream group bridge consumes from its own topic.
type Kafka struct {
	writer *kafka.Writer
	log    *slog.Logger
}

// NewKafka builds a writer that routes messages by per-message topic.
func NewKafka(brokers []string, log *slog.Logger) *Kafka {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	return &Kafka{writer: w, log: log}
}

func (k *Kafka) Send(ctx context.Context, destination, text string) bool {
	err := k.writer.WriteMessages(ctx, kafka.Message{
		Topic: destination,
		Value: []byte(text),
	})
	if err != nil {
		k.log.Error("broadcast write failed",
			slog.String("destination", destination),
			slog.Any("err", err),
		)
		return false
	}
	return true
}

func (k *Kafka) Close() error { return k.writer.Close() }
