// Package producer publishes domain events to a message broker.
package producer

import (
	"context"

	"saas-control-plane/backend/internal/telemetry/domain"
)

// Producer emits domain events. Callers use it best-effort: log and ignore errors.
type Producer interface {
	// Emit sends a single event. Implementations may block briefly; call through telemetry.EmitAsync from handlers.
	Emit(ctx context.Context, event *domain.Event) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
