package eventstore

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/renderkit/internal/logfields"
)

// Sink adapts a Store to the render pipeline's event sink. Recording is
// best effort; a failed append is logged and never surfaces to the render.
type Sink struct {
	store *Store
}

// NewSink wraps store for use by the render pipeline.
func NewSink(store *Store) *Sink {
	return &Sink{store: store}
}

func (s *Sink) RecordEvent(ctx context.Context, invocationID, event string, payload map[string]any) {
	if err := s.store.Append(ctx, invocationID, event, payload); err != nil {
		slog.Warn("Event record failed", logfields.InvocationID(invocationID), logfields.Error(err))
	}
}
