package telemetry

import (
	"context"
	"errors"

	"saas-control-plane/backend/internal/telemetry/domain"
)

// EventEmitter emits domain events (e.g. to OTel Logs or Kafka). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.Event) error
}

// Multi fans an event out to every non-nil emitter. All emitters are tried; errors are joined.
type Multi []EventEmitter

// NewMulti returns a Multi of the non-nil emitters.
func NewMulti(emitters ...EventEmitter) Multi {
	out := make(Multi, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

func (m Multi) Emit(ctx context.Context, event *domain.Event) error {
	var errs []error
	for _, e := range m {
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
