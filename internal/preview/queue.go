package preview

import "context"

// Queue serializes renders: at most one runs at a time, later requests wait
// for the slot. Watch-triggered rebuilds and scheduled resyncs share one
// queue so they never overlap.
type Queue struct {
	slot chan struct{}
}

// NewQueue creates an empty render queue.
func NewQueue() *Queue {
	return &Queue{slot: make(chan struct{}, 1)}
}

// Run executes fn once the slot is free. Waiting is cancellable; a running
// render is not interrupted by callers abandoning the queue.
func (q *Queue) Run(ctx context.Context, fn func(context.Context) error) error {
	select {
	case q.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-q.slot }()
	return fn(ctx)
}
