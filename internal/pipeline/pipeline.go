// Package pipeline runs a complete project render: discovery, index
// refresh, per-file conversion, library freezing, and output relocation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/renderkit/internal/config"
	"git.home.luguber.info/inful/renderkit/internal/engine"
	"git.home.luguber.info/inful/renderkit/internal/freezer"
	"git.home.luguber.info/inful/renderkit/internal/fsops"
	"git.home.luguber.info/inful/renderkit/internal/index"
	"git.home.luguber.info/inful/renderkit/internal/logfields"
	"git.home.luguber.info/inful/renderkit/internal/metrics"
	"git.home.luguber.info/inful/renderkit/internal/project"
	"git.home.luguber.info/inful/renderkit/internal/relocate"
	"git.home.luguber.info/inful/renderkit/internal/render"
)

// Options select what and how one pipeline run renders.
type Options struct {
	// Files is the explicit render request; empty means the full project.
	Files []string
	// UseFreezer permits serving unchanged execution results from the
	// freezer during incremental renders.
	UseFreezer bool
	// ReuseSession permits persistent execution sessions for single-file
	// renders.
	ReuseSession bool
}

// Pipeline wires the render stages of one project together.
type Pipeline struct {
	registry *engine.Registry
	renderer render.Renderer
	ptype    render.ProjectType
	recorder metrics.Recorder
	events   render.EventSink
}

// New creates a pipeline around renderer with the default engine registry.
func New(renderer render.Renderer) *Pipeline {
	return &Pipeline{
		registry: engine.Default(),
		renderer: renderer,
		ptype:    render.DefaultProjectType{},
		recorder: metrics.NoopRecorder{},
	}
}

// WithProjectType swaps the project-type hooks.
func (p *Pipeline) WithProjectType(pt render.ProjectType) *Pipeline {
	p.ptype = pt
	return p
}

// WithRecorder swaps the metrics recorder.
func (p *Pipeline) WithRecorder(r metrics.Recorder) *Pipeline {
	p.recorder = r
	return p
}

// WithEvents installs an event sink for render lifecycle events.
func (p *Pipeline) WithEvents(s render.EventSink) *Pipeline {
	p.events = s
	return p
}

// Run renders the project rooted at dir. The returned result carries
// per-file outcomes; the error covers stage failures that stopped the run.
// Per-file render failures do not stop the run and surface as the result's
// FirstError.
func (p *Pipeline) Run(ctx context.Context, dir string, opts Options) (*render.Result, error) {
	cfg, err := config.LoadProject(dir)
	if err != nil {
		return nil, fmt.Errorf("load project config: %w", err)
	}

	proj, err := project.Discover(dir, cfg, p.registry)
	if err != nil {
		return nil, fmt.Errorf("discover project: %w", err)
	}

	p.refreshIndex(ctx, proj)

	orch := render.NewOrchestrator(p.renderer).
		WithProjectType(p.ptype).
		WithRecorder(p.recorder)
	if p.events != nil {
		orch = orch.WithEvents(p.events)
	}

	result, err := orch.Render(ctx, proj, opts.Files, render.Options{
		UseFreezer:   opts.UseFreezer,
		ReuseSession: opts.ReuseSession,
	})
	if err != nil {
		return nil, err
	}

	if err := p.placeOutputs(proj, result); err != nil {
		return result, err
	}
	return result, nil
}

// refreshIndex brings the input index up to date. Index failures degrade to
// a warning; rendering does not depend on a healthy index.
func (p *Pipeline) refreshIndex(ctx context.Context, proj *project.Context) {
	idx := index.NewCache(proj, p.registry, p.renderer).WithRecorder(p.recorder)
	for _, input := range proj.Files.Input {
		rel, err := filepath.Rel(proj.Dir, input)
		if err != nil {
			continue
		}
		entry, err := idx.Lookup(ctx, rel)
		if err != nil {
			if !errors.Is(err, index.ErrNotIndexable) {
				slog.Warn("Index refresh failed", logfields.Input(rel), logfields.Error(err))
			}
			continue
		}
		slog.Debug("Indexed input", logfields.Input(rel), slog.String("title", entry.Title))
	}
}

// placeOutputs relocates rendered artifacts into the output directory, then
// freezes and merges the shared library directory. A render that preserved
// supporting assets in the working tree also retains the library directory
// there: preserved artifacts keep referencing its contents.
func (p *Pipeline) placeOutputs(proj *project.Context, result *render.Result) error {
	cfg := proj.Config

	files, keepAny, err := relocate.NewRelocator().
		WithRecorder(p.recorder).
		Relocate(result.Files, proj.Dir, proj.OutputDir())
	if err != nil {
		return fmt.Errorf("relocate outputs: %w", err)
	}
	result.Files = files
	result.OutputDir = proj.OutputDir()

	libDir := filepath.Join(proj.Dir, cfg.Output.LibDir)
	fm := freezer.NewManager(proj, formatPrefixes(result))
	if err := fm.Freeze(libDir); err != nil {
		return fmt.Errorf("freeze library dir: %w", err)
	}

	mode := fsops.TransferMove
	if cfg.Output.KeepLib || keepAny {
		mode = fsops.TransferCopy
	}
	dstLib := filepath.Join(proj.OutputDir(), cfg.Output.LibDir)
	if err := freezer.MergeIntoOutput(libDir, dstLib, result.Incremental, mode); err != nil {
		return fmt.Errorf("merge library dir: %w", err)
	}
	return nil
}

// formatPrefixes names the formats this run produced; freezer pruning is
// limited to their library subdirectories.
func formatPrefixes(result *render.Result) []string {
	seen := map[string]bool{}
	var prefixes []string
	for _, f := range result.Files {
		if f.FormatName == "" || seen[f.FormatName] {
			continue
		}
		seen[f.FormatName] = true
		prefixes = append(prefixes, f.FormatName)
	}
	return prefixes
}
