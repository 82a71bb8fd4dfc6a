// Package consumer reads domain events back off the Kafka topic the API produces to.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"saas-control-plane/backend/internal/telemetry/domain"
)

// MessageReader is the subset of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Handler processes one decoded event.
type Handler func(ctx context.Context, event *domain.Event) error

// NewReader returns a consumer-group reader for topic.
func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  time.Second,
	})
}

// Run fetches messages until ctx is cancelled and passes each decoded event to handle.
// Every fetched message is committed, including ones that fail to decode or to handle,
// so a single bad payload cannot stall the partition. Run returns nil on cancellation.
func Run(ctx context.Context, r MessageReader, handle Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	for {
		msg, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			logger.Warn("kafka fetch failed", "error", err)
			continue
		}

		var event domain.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Warn("dropping undecodable event", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		} else if err := handle(ctx, &event); err != nil {
			logger.Error("event handler failed", "event_type", event.EventType, "offset", msg.Offset, "error", err)
		}

		if err := r.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("kafka commit failed", "offset", msg.Offset, "error", err)
		}
	}
}

// LogHandler writes each event as one structured log line.
func LogHandler(logger *slog.Logger) Handler {
	return func(ctx context.Context, event *domain.Event) error {
		logger.InfoContext(ctx, "domain_event",
			"event_type", event.EventType,
			"source", event.Source,
			"org_id", event.OrgID,
			"user_id", event.UserID,
			"metadata", string(event.Metadata),
			"created_at", event.CreatedAt,
		)
		return nil
	}
}
