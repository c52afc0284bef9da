// Package render sequences per-file conversion for a project and assembles
// the invocation result consumed by relocation.
package render

import (
	"context"

	"git.home.luguber.info/inful/renderkit/internal/project"
)

// ResourceDescriptor declares the resources a rendered file depends on.
type ResourceDescriptor struct {
	// Globs are patterns expanded against the input's containing directory.
	Globs []string
	// Files are explicit project-relative resource paths.
	Files []string
}

// RenderedFile is the artifact record produced by converting one input.
type RenderedFile struct {
	// Input is the absolute path of the source document.
	Input string
	// OutputRelPath is the artifact's path relative to the project root.
	OutputRelPath string
	// FormatName names the target format.
	FormatName string
	// Format is the resolved format configuration.
	Format map[string]any
	// SupportingDirs are auxiliary per-file output directories (absolute).
	SupportingDirs []string
	// SelfContained marks artifacts with no external resource dependencies.
	SelfContained bool
	// KeepSupporting requests supporting assets stay in the working tree.
	KeepSupporting bool
	// Resources declares the file's resource dependencies.
	Resources ResourceDescriptor
}

// Result is the outcome of one project render invocation.
type Result struct {
	// InvocationID identifies this invocation in logs and the event log.
	InvocationID string
	// BaseDir is the project root the render ran against.
	BaseDir string
	// OutputDir is the absolute output directory, when one is configured.
	OutputDir string
	// Incremental reports whether this was a subset render.
	Incremental bool
	// Files holds the rendered outputs in input order.
	Files []RenderedFile
	// FirstError is the first per-file failure; later files were still
	// processed.
	FirstError error
}

// FileRequest is the unit of work handed to the Renderer.
type FileRequest struct {
	Project *project.Context
	// Input is the absolute path of the file to convert.
	Input string
	// AlwaysExecute forbids serving this file from cached or frozen
	// execution results.
	AlwaysExecute bool
	// UseFreezer permits freezer-backed execution caching.
	UseFreezer bool
	// ReuseSession permits keeping a persistent execution session alive
	// across this request. The orchestrator clears it whenever more than
	// one file is queued, to bound memory held by long-lived sessions.
	ReuseSession bool
}

// Renderer converts one input file into a rendered artifact. Implementations
// read the current project root from the request context.
type Renderer interface {
	RenderFile(ctx context.Context, req FileRequest) (*RenderedFile, error)

	// ResolveFormats resolves the per-format configuration of an input.
	ResolveFormats(ctx context.Context, proj *project.Context, input string) (map[string]map[string]any, error)
}

// ProjectType supplies project-kind specific behavior around a render batch.
type ProjectType interface {
	// IncrementalRenderAll reports whether an incremental request must be
	// widened to the full input set (formats requiring whole-project
	// context, e.g. a single combined multi-chapter output).
	IncrementalRenderAll(ctx context.Context, proj *project.Context, files []string) (bool, error)

	PreRender(ctx context.Context, proj *project.Context) error
	PostRender(ctx context.Context, proj *project.Context, incremental bool, result *Result) error
}

// DefaultProjectType renders every file independently. IncrementalRenderAll
// follows the project's render_all configuration flag.
type DefaultProjectType struct{}

func (DefaultProjectType) IncrementalRenderAll(_ context.Context, proj *project.Context, _ []string) (bool, error) {
	return proj.Config.RenderAll, nil
}

func (DefaultProjectType) PreRender(context.Context, *project.Context) error { return nil }

func (DefaultProjectType) PostRender(context.Context, *project.Context, bool, *Result) error {
	return nil
}
