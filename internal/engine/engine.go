// Package engine defines the conversion engine registry. An engine claims
// input files by extension and contributes discovery exclusions for the files
// it manages itself.
package engine

import (
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/renderkit/internal/markdown"
)

// Engine is one conversion engine known to the registry.
type Engine interface {
	// Name identifies the engine in project metadata and logs.
	Name() string

	// Claims reports whether the engine converts files like path.
	Claims(path string) bool

	// IgnoreGlobs returns discovery ignore patterns contributed by the engine.
	IgnoreGlobs() []string

	// AlwaysExcluded returns project-relative paths the engine manages that
	// must never be treated as inputs even when otherwise matched.
	AlwaysExcluded(projectDir string) []string

	// Partition extracts the structural summary of an input it claims.
	Partition(content []byte) (*markdown.Document, error)
}

// Registry resolves which engine, if any, claims a candidate file.
type Registry struct {
	engines []Engine
}

// NewRegistry creates a registry over the given engines. Claim order follows
// registration order; the first claiming engine wins.
func NewRegistry(engines ...Engine) *Registry {
	return &Registry{engines: engines}
}

// Default returns a registry with the built-in engines.
func Default() *Registry {
	return NewRegistry(NewMarkdownEngine())
}

// ClaimedBy returns the engine claiming path, if any.
func (r *Registry) ClaimedBy(path string) (Engine, bool) {
	for _, e := range r.engines {
		if e.Claims(path) {
			return e, true
		}
	}
	return nil, false
}

// IgnoreGlobs returns the union of all engine ignore patterns.
func (r *Registry) IgnoreGlobs() []string {
	var globs []string
	for _, e := range r.engines {
		globs = append(globs, e.IgnoreGlobs()...)
	}
	return globs
}

// AlwaysExcluded returns the union of engine-managed exclusions.
func (r *Registry) AlwaysExcluded(projectDir string) []string {
	var paths []string
	for _, e := range r.engines {
		paths = append(paths, e.AlwaysExcluded(projectDir)...)
	}
	return paths
}

// Engines returns the registered engines in claim order.
func (r *Registry) Engines() []Engine { return r.engines }

// MarkdownEngine claims plain markdown inputs and partitions them with the
// markdown package.
type MarkdownEngine struct{}

func NewMarkdownEngine() *MarkdownEngine { return &MarkdownEngine{} }

func (e *MarkdownEngine) Name() string { return "markdown" }

var markdownExtensions = []string{".md", ".markdown", ".mdown", ".mkd"}

func (e *MarkdownEngine) Claims(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, known := range markdownExtensions {
		if ext == known {
			return true
		}
	}
	return false
}

// IgnoreGlobs excludes per-file supporting asset directories from discovery;
// they are render outputs, not inputs.
func (e *MarkdownEngine) IgnoreGlobs() []string {
	return []string{"*_files"}
}

func (e *MarkdownEngine) AlwaysExcluded(string) []string { return nil }

func (e *MarkdownEngine) Partition(content []byte) (*markdown.Document, error) {
	return markdown.Parse(content)
}
