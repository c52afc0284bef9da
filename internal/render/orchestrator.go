package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/renderkit/internal/logfields"
	"git.home.luguber.info/inful/renderkit/internal/metrics"
	"git.home.luguber.info/inful/renderkit/internal/project"
	"git.home.luguber.info/inful/renderkit/internal/util/sets"
)

// Options modifies render batch behavior.
type Options struct {
	// UseFreezer opts explicitly requested files into freezer-backed
	// execution caching. Without it, an incremental request marks every
	// requested file always-execute so cached results never mask an edit.
	UseFreezer bool

	// ReuseSession permits persistent execution-session reuse. It is
	// honored only for single-file batches.
	ReuseSession bool
}

// EventSink receives render lifecycle events. Failures to record are the
// sink's problem; the pipeline never blocks on it.
type EventSink interface {
	RecordEvent(ctx context.Context, invocationID, event string, payload map[string]any)
}

type noopSink struct{}

func (noopSink) RecordEvent(context.Context, string, string, map[string]any) {}

// Orchestrator sequences per-file conversion. Rendering is single-threaded
// and strictly sequential within one invocation; no render is cancellable
// once its renderer call started, and no timeout is enforced here.
type Orchestrator struct {
	renderer Renderer
	ptype    ProjectType
	recorder metrics.Recorder
	events   EventSink
}

// NewOrchestrator creates an orchestrator over the given renderer.
func NewOrchestrator(r Renderer) *Orchestrator {
	return &Orchestrator{
		renderer: r,
		ptype:    DefaultProjectType{},
		recorder: metrics.NoopRecorder{},
		events:   noopSink{},
	}
}

// WithProjectType swaps the project-type collaborator.
func (o *Orchestrator) WithProjectType(pt ProjectType) *Orchestrator {
	o.ptype = pt
	return o
}

// WithRecorder swaps the metrics recorder.
func (o *Orchestrator) WithRecorder(r metrics.Recorder) *Orchestrator {
	o.recorder = r
	return o
}

// WithEvents swaps the event sink.
func (o *Orchestrator) WithEvents(s EventSink) *Orchestrator {
	o.events = s
	return o
}

type fileJob struct {
	input         string
	alwaysExecute bool
	useFreezer    bool
}

// Render converts the requested files, or the full discovered input set when
// files is empty. Per-file failures are recorded as the result's first error
// while remaining files are still processed; fatal conditions (missing
// explicit targets, hook failures) propagate immediately.
func (o *Orchestrator) Render(ctx context.Context, proj *project.Context, files []string, opts Options) (*Result, error) {
	requested, err := o.resolveRequested(proj, files)
	if err != nil {
		return nil, err
	}

	incremental := len(files) > 0 && !sameSet(requested, proj.Files.Input)

	jobs := make([]fileJob, 0, len(requested))
	for _, input := range requested {
		jobs = append(jobs, fileJob{
			input:         input,
			alwaysExecute: incremental && !opts.UseFreezer,
			useFreezer:    opts.UseFreezer,
		})
	}

	renderAll, err := o.ptype.IncrementalRenderAll(ctx, proj, requested)
	if err != nil {
		return nil, fmt.Errorf("incremental-render-all hook: %w", err)
	}
	if renderAll {
		jobs = widenToFullSet(jobs, proj.Files.Input)
	}

	// The project root is published to the renderer as a call-scoped
	// context value; it vanishes with the call on every exit path.
	ctx = WithProjectRoot(ctx, proj.Dir)

	invocationID := uuid.NewString()
	result := &Result{
		InvocationID: invocationID,
		BaseDir:      proj.Dir,
		OutputDir:    proj.OutputDir(),
		Incremental:  incremental,
	}

	o.recorder.RenderStarted(incremental)
	o.events.RecordEvent(ctx, invocationID, "render_started", map[string]any{
		"incremental": incremental,
		"files":       len(jobs),
	})
	slog.Info("Render started",
		logfields.InvocationID(invocationID),
		logfields.Dir(proj.Dir),
		slog.Bool("incremental", incremental),
		logfields.Count(len(jobs)))

	if err := o.ptype.PreRender(ctx, proj); err != nil {
		return nil, fmt.Errorf("pre-render hook: %w", err)
	}

	// Persistent execution sessions are disabled whenever more than one
	// file is queued, to bound memory held across a batch.
	reuseSession := opts.ReuseSession && len(jobs) == 1

	for _, job := range jobs {
		rel := relOrSelf(proj.Dir, job.input)
		t0 := time.Now()
		rendered, err := o.renderer.RenderFile(ctx, FileRequest{
			Project:       proj,
			Input:         job.input,
			AlwaysExecute: job.alwaysExecute,
			UseFreezer:    job.useFreezer,
			ReuseSession:  reuseSession,
		})
		if err != nil {
			wrapped := fmt.Errorf("%w: %s: %w", ErrRender, rel, err)
			if result.FirstError == nil {
				result.FirstError = wrapped
			}
			o.recorder.RenderFailed()
			o.events.RecordEvent(ctx, invocationID, "file_failed", map[string]any{"input": rel})
			slog.Warn("File render failed", logfields.Input(rel), logfields.Error(err))
			continue
		}
		result.Files = append(result.Files, *rendered)
		o.recorder.FileRendered(rendered.FormatName, time.Since(t0))
		o.events.RecordEvent(ctx, invocationID, "file_rendered", map[string]any{
			"input":  rel,
			"output": rendered.OutputRelPath,
		})
		slog.Debug("File rendered",
			logfields.Input(rel),
			logfields.Output(rendered.OutputRelPath),
			logfields.DurationMS(float64(time.Since(t0).Milliseconds())))
	}

	if err := o.ptype.PostRender(ctx, proj, incremental, result); err != nil {
		return nil, fmt.Errorf("post-render hook: %w", err)
	}

	o.events.RecordEvent(ctx, invocationID, "render_completed", map[string]any{
		"rendered": len(result.Files),
		"failed":   result.FirstError != nil,
	})
	slog.Info("Render completed",
		logfields.InvocationID(invocationID),
		logfields.Count(len(result.Files)),
		logfields.Error(result.FirstError))
	return result, nil
}

// resolveRequested canonicalizes the request, defaulting to the full input
// set, and verifies every explicit target exists on disk.
func (o *Orchestrator) resolveRequested(proj *project.Context, files []string) ([]string, error) {
	if len(files) == 0 {
		return append([]string(nil), proj.Files.Input...), nil
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		abs := f
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(proj.Dir, abs)
		}
		abs = filepath.Clean(abs)
		if info, err := os.Stat(abs); err != nil || info.IsDir() {
			return nil, fmt.Errorf("%w: %s", project.ErrMissingInput, f)
		}
		out = append(out, abs)
	}
	return out, nil
}

// widenToFullSet expands jobs to the full input set. Files that were not in
// the original request get freezer-backed caching forced, so whole-project
// formats see every input without re-executing untouched ones.
func widenToFullSet(jobs []fileJob, full []string) []fileJob {
	byInput := make(map[string]fileJob, len(jobs))
	for _, j := range jobs {
		byInput[j.input] = j
	}
	out := make([]fileJob, 0, len(full))
	for _, input := range full {
		if j, ok := byInput[input]; ok {
			out = append(out, j)
			delete(byInput, input)
			continue
		}
		out = append(out, fileJob{input: input, useFreezer: true})
	}
	// Explicit requests outside the discovered set stay in the batch.
	for _, j := range jobs {
		if _, pending := byInput[j.input]; pending {
			out = append(out, j)
		}
	}
	return out
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	bs := sets.New(b...)
	for _, v := range a {
		if !bs.Has(v) {
			return false
		}
	}
	return true
}

func relOrSelf(base, path string) string {
	if rel, err := filepath.Rel(base, path); err == nil {
		return rel
	}
	return path
}
