package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyInput        = "input"
	KeyOutput       = "output"
	KeyFormat       = "format"
	KeyPath         = "path"
	KeyDir          = "dir"
	KeyProject      = "project"
	KeyEngine       = "engine"
	KeyInvocationID = "invocation_id"
	KeyDurationMS   = "duration_ms"
	KeyCount        = "count"
	KeyError        = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Input(p string) slog.Attr         { return slog.String(KeyInput, p) }
func Output(p string) slog.Attr        { return slog.String(KeyOutput, p) }
func Format(f string) slog.Attr        { return slog.String(KeyFormat, f) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Dir(d string) slog.Attr           { return slog.String(KeyDir, d) }
func Project(p string) slog.Attr       { return slog.String(KeyProject, p) }
func Engine(e string) slog.Attr        { return slog.String(KeyEngine, e) }
func InvocationID(id string) slog.Attr { return slog.String(KeyInvocationID, id) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
