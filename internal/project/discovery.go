package project

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"git.home.luguber.info/inful/renderkit/internal/config"
	"git.home.luguber.info/inful/renderkit/internal/engine"
	"git.home.luguber.info/inful/renderkit/internal/fsops"
	"git.home.luguber.info/inful/renderkit/internal/logfields"
	"git.home.luguber.info/inful/renderkit/internal/resources"
	"git.home.luguber.info/inful/renderkit/internal/util/sets"
)

// Discover builds the project context for dir: the render-eligible input
// files in order of first discovery, the engines claiming them, and the
// project-level resource files.
func Discover(dir string, cfg *config.Config, reg *engine.Registry) (*Context, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve project dir: %w", ErrDiscovery, err)
	}

	d := &discovery{
		dir:      absDir,
		cfg:      cfg,
		registry: reg,
		ignore:   reg.IgnoreGlobs(),
		matcher:  loadGitignore(absDir),
	}

	var candidates []string
	if len(cfg.Render) > 0 {
		candidates, err = d.resolveRenderList()
	} else {
		candidates, err = d.walk(absDir)
	}
	if err != nil {
		return nil, err
	}

	inputs, engines := d.claim(candidates)

	ctx := &Context{
		Dir:     absDir,
		Config:  cfg,
		Engines: engines,
		Files: Files{
			Input:     inputs,
			Resources: d.projectResources(),
		},
	}
	if path := config.Find(absDir); path != "" {
		ctx.Files.Config = []string{path}
	}

	slog.Debug("Project discovered",
		logfields.Dir(absDir),
		slog.Int("inputs", len(ctx.Files.Input)),
		slog.Any("engines", ctx.Engines))
	return ctx, nil
}

type discovery struct {
	dir      string
	cfg      *config.Config
	registry *engine.Registry
	ignore   []string
	matcher  gitignore.Matcher
}

// resolveRenderList expands the explicit ordered render globs. A non-pattern
// entry that matches nothing is a missing input and fatal.
func (d *discovery) resolveRenderList() ([]string, error) {
	var out []string
	for _, pattern := range d.cfg.Render {
		matches, err := filepath.Glob(filepath.Join(d.dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("%w: render glob %q: %w", ErrDiscovery, pattern, err)
		}
		if len(matches) == 0 {
			if !strings.ContainsAny(pattern, "*?[") {
				return nil, fmt.Errorf("%w: %s", ErrMissingInput, pattern)
			}
			continue
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				return nil, fmt.Errorf("%w: %s", ErrMissingInput, m)
			}
			if d.excluded(m, info.IsDir()) {
				continue
			}
			if info.IsDir() {
				walked, err := d.walk(m)
				if err != nil {
					return nil, err
				}
				out = append(out, walked...)
				continue
			}
			out = append(out, m)
		}
	}
	return out, nil
}

// walk collects candidate files under root, excluding symbolic links, hidden
// entries, and the ignore-glob set.
func (d *discovery) walk(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if entry.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.excluded(path, entry.IsDir()) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.IsDir() {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk %s: %w", ErrDiscovery, root, err)
	}
	return out, nil
}

// excluded applies the ignore-glob set: fixed patterns, engine globs,
// version-control ignore entries, the scratch dir, and the output dir.
func (d *discovery) excluded(path string, isDir bool) bool {
	name := filepath.Base(path)

	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
		return true
	}
	if !isDir && strings.EqualFold(strings.TrimSuffix(name, filepath.Ext(name)), "README") {
		return true
	}

	rel, err := filepath.Rel(d.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return true
	}
	if rel == ScratchDirName || strings.HasPrefix(rel, ScratchDirName+string(filepath.Separator)) {
		return true
	}

	outRel := d.cfg.Output.Directory
	if outRel != "" && (rel == outRel || strings.HasPrefix(rel, outRel+string(filepath.Separator))) {
		return true
	}

	for _, g := range d.ignore {
		if ok, _ := filepath.Match(g, name); ok {
			return true
		}
		if ok, _ := filepath.Match(g, rel); ok {
			return true
		}
	}

	if d.matcher != nil && d.matcher.Match(strings.Split(rel, string(filepath.Separator)), isDir) {
		return true
	}
	return false
}

// claim filters candidates through the engine registry: unclaimed files are
// dropped silently, engine always-excluded paths are subtracted, and the
// result is de-duplicated preserving first-discovery order.
func (d *discovery) claim(candidates []string) ([]string, []string) {
	excluded := sets.New[string]()
	for _, p := range d.registry.AlwaysExcluded(d.dir) {
		if !filepath.IsAbs(p) {
			p = filepath.Join(d.dir, p)
		}
		excluded.Add(filepath.Clean(p))
	}

	seen := sets.New[string]()
	engineSeen := sets.New[string]()
	var inputs []string
	var engines []string

	for _, c := range candidates {
		abs := filepath.Clean(c)
		if seen.Has(abs) || excluded.Has(abs) {
			continue
		}
		eng, ok := d.registry.ClaimedBy(abs)
		if !ok {
			continue
		}
		seen.Add(abs)
		inputs = append(inputs, abs)
		if !engineSeen.Has(eng.Name()) {
			engineSeen.Add(eng.Name())
			engines = append(engines, eng.Name())
		}
	}
	return inputs, engines
}

// projectResources expands the configured resource globs and scans project
// metadata for file-shaped values.
func (d *discovery) projectResources() []string {
	seen := sets.New[string]()
	var out []string

	add := func(path string) {
		canon := fsops.Canonicalize(path)
		if !seen.Has(canon) {
			seen.Add(canon)
			out = append(out, canon)
		}
	}

	for _, pattern := range d.cfg.Resources {
		matches, err := filepath.Glob(filepath.Join(d.dir, pattern))
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

	if len(d.cfg.Metadata) > 0 {
		resolver := &resources.Resolver{ProjectDir: d.dir}
		for _, p := range resolver.ResolveAny(d.cfg.Metadata) {
			add(p)
		}
	}
	return out
}

// loadGitignore reads .gitignore patterns from the project tree. Failures are
// non-fatal; discovery then runs without version-control exclusions.
func loadGitignore(dir string) gitignore.Matcher {
	patterns, err := gitignore.ReadPatterns(osfs.New(dir), nil)
	if err != nil {
		slog.Debug("No usable gitignore patterns", logfields.Dir(dir), logfields.Error(err))
		return nil
	}
	if len(patterns) == 0 {
		return nil
	}
	return gitignore.NewMatcher(patterns)
}
