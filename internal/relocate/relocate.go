// Package relocate moves rendered artifacts, supporting directories, and
// referenced resources into the final output tree.
//
// Relocation is destructive on the working tree by design: the in-tree
// artifact produced by a render pass is not assumed to be needed afterwards.
package relocate

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/renderkit/internal/fsops"
	"git.home.luguber.info/inful/renderkit/internal/logfields"
	"git.home.luguber.info/inful/renderkit/internal/metrics"
	"git.home.luguber.info/inful/renderkit/internal/render"
	"git.home.luguber.info/inful/renderkit/internal/util/sets"
)

// Relocator places render outputs into the output tree.
type Relocator struct {
	recorder metrics.Recorder
}

// NewRelocator creates a relocator.
func NewRelocator() *Relocator {
	return &Relocator{recorder: metrics.NoopRecorder{}}
}

// WithRecorder swaps the metrics recorder.
func (r *Relocator) WithRecorder(rec metrics.Recorder) *Relocator {
	r.recorder = rec
	return r
}

// Relocate moves each rendered artifact (and its supporting directories)
// from the working tree into outputDir, then copies the files' resources
// alongside them. It returns the rendered files with final resource lists
// and whether any supporting directory was preserved in the working tree.
//
// A destination holding stale content from a prior run is removed before the
// new artifact lands: last render wins, with no file-granularity merging.
func (r *Relocator) Relocate(files []render.RenderedFile, projectDir, outputDir string) ([]render.RenderedFile, bool, error) {
	// All containment checks run on symlink-free paths; a project reached
	// through a symlinked component must compare equal to its resolved form.
	projectDir = fsops.Canonicalize(projectDir)

	// Tracked output paths, compared before anything moves.
	outputs := sets.New[string]()
	for _, rf := range files {
		outputs.Add(fsops.Canonicalize(filepath.Join(projectDir, rf.OutputRelPath)))
	}

	// Resource sets are expanded against the working tree, so they must be
	// resolved before artifacts and supporting directories are moved away.
	finalResources := make([][]string, len(files))
	for i := range files {
		finalResources[i] = r.expandResources(&files[i], projectDir, outputs)
	}

	keepAny := false
	for i := range files {
		rf := &files[i]
		src := filepath.Join(projectDir, rf.OutputRelPath)
		dst := filepath.Join(outputDir, rf.OutputRelPath)
		if err := fsops.Transfer(src, dst, fsops.TransferMove); err != nil {
			return nil, false, fmt.Errorf("relocate %s: %w", rf.OutputRelPath, err)
		}

		mode := fsops.TransferMove
		if rf.KeepSupporting {
			mode = fsops.TransferCopy
			keepAny = true
		}
		for _, sd := range rf.SupportingDirs {
			sd = fsops.Canonicalize(sd)
			rel, err := filepath.Rel(projectDir, sd)
			if err != nil || strings.HasPrefix(rel, "..") {
				slog.Warn("Supporting directory outside project, skipped", logfields.Path(sd))
				continue
			}
			if !fsops.Exists(sd) {
				continue
			}
			if err := fsops.Transfer(sd, filepath.Join(outputDir, rel), mode); err != nil {
				return nil, false, fmt.Errorf("relocate supporting dir %s: %w", rel, err)
			}
		}
	}

	copied := 0
	for i := range files {
		rf := &files[i]
		var kept []string
		for _, rel := range finalResources[i] {
			src := filepath.Join(projectDir, rel)
			if err := fsops.CopyFile(src, filepath.Join(outputDir, rel)); err != nil {
				slog.Warn("Resource copy failed", logfields.Path(rel), logfields.Error(err))
				continue
			}
			kept = append(kept, rel)
			copied++
		}
		rf.Resources.Files = kept
	}
	r.recorder.ResourcesCopied(copied)

	return files, keepAny, nil
}

// expandResources resolves one rendered file's resource set to
// project-relative paths: declared globs against the input's directory,
// plus explicit files when the render is not self-contained. Paths equal to
// a tracked output file or under the file's own supporting directories are
// removed.
func (r *Relocator) expandResources(rf *render.RenderedFile, projectDir string, outputs sets.Set[string]) []string {
	inputDir := filepath.Dir(rf.Input)
	seen := sets.New[string]()
	var candidates []string

	add := func(abs string) {
		abs = fsops.Canonicalize(abs)
		if seen.Has(abs) {
			return
		}
		seen.Add(abs)
		candidates = append(candidates, abs)
	}

	for _, pattern := range rf.Resources.Globs {
		matches, err := filepath.Glob(filepath.Join(inputDir, pattern))
		if err != nil {
			slog.Warn("Bad resource glob", slog.String("glob", pattern), logfields.Error(err))
			continue
		}
		for _, m := range matches {
			if fsops.IsFile(m) {
				add(m)
			}
		}
	}

	if !rf.SelfContained {
		for _, declared := range rf.Resources.Files {
			abs := declared
			if !filepath.IsAbs(abs) {
				abs = filepath.Join(projectDir, abs)
			}
			if !fsops.IsFile(abs) {
				slog.Warn("Declared resource missing on disk", logfields.Path(declared), logfields.Input(rf.Input))
				continue
			}
			add(abs)
		}
	}

	var out []string
	for _, abs := range candidates {
		if outputs.Has(abs) {
			continue
		}
		if underAny(abs, rf.SupportingDirs) {
			continue
		}
		rel, err := filepath.Rel(projectDir, abs)
		if err != nil || strings.HasPrefix(rel, "..") {
			slog.Warn("Resource outside project, skipped", logfields.Path(abs))
			continue
		}
		out = append(out, rel)
	}
	return out
}

func underAny(path string, dirs []string) bool {
	for _, d := range dirs {
		d = fsops.Canonicalize(d)
		if path == d || strings.HasPrefix(path, d+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
