// Package metrics collects render pipeline counters.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics can be enabled by swapping the implementation
// without touching call sites.
package metrics

import "time"

// Recorder receives pipeline events.
type Recorder interface {
	RenderStarted(incremental bool)
	FileRendered(format string, d time.Duration)
	RenderFailed()
	CacheHit()
	CacheMiss()
	ResourcesCopied(n int)
}

// NoopRecorder discards all events. It is the default everywhere.
type NoopRecorder struct{}

func (NoopRecorder) RenderStarted(bool)                 {}
func (NoopRecorder) FileRendered(string, time.Duration) {}
func (NoopRecorder) RenderFailed()                      {}
func (NoopRecorder) CacheHit()                          {}
func (NoopRecorder) CacheMiss()                         {}
func (NoopRecorder) ResourcesCopied(int)                {}
