package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"git.home.luguber.info/inful/renderkit/internal/config"
	"git.home.luguber.info/inful/renderkit/internal/engine"
	"git.home.luguber.info/inful/renderkit/internal/project"
)

type countingResolver struct {
	calls   int
	formats map[string]map[string]any
	err     error
}

func (r *countingResolver) ResolveFormats(_ context.Context, _ *project.Context, _ string) (map[string]map[string]any, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	if r.formats != nil {
		return r.formats, nil
	}
	return map[string]map[string]any{"html": {}}, nil
}

func newTestProject(t *testing.T, withConfig bool) *project.Context {
	t.Helper()
	dir := t.TempDir()
	if withConfig {
		if err := os.WriteFile(filepath.Join(dir, "project.yml"), []byte("title: t\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := &config.Config{}
	cfg.Output.Directory = "_site"
	ctx, err := project.Discover(dir, cfg, engine.Default())
	if err != nil {
		t.Fatal(err)
	}
	return ctx
}

func writeInput(t *testing.T, proj *project.Context, rel, content string) {
	t.Helper()
	path := filepath.Join(proj.Dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLookupRegeneratesAndPersists(t *testing.T) {
	proj := newTestProject(t, false)
	writeInput(t, proj, "doc.md", "---\ntitle: Explicit\n---\n# Heading\n")
	resolver := &countingResolver{}
	cache := NewCache(proj, engine.Default(), resolver)

	entry, err := cache.Lookup(context.Background(), "doc.md")
	if err != nil {
		t.Fatal(err)
	}
	if entry.Title != "Explicit" {
		t.Errorf("title: %q", entry.Title)
	}
	if resolver.calls != 1 {
		t.Errorf("resolver calls: %d", resolver.calls)
	}
	if _, err := os.Stat(filepath.Join(proj.ScratchDir(), "index", "doc.md.json")); err != nil {
		t.Errorf("cache file not persisted: %v", err)
	}
}

func TestLookupIdempotent(t *testing.T) {
	proj := newTestProject(t, false)
	writeInput(t, proj, "doc.md", "# H\n")
	resolver := &countingResolver{}
	cache := NewCache(proj, engine.Default(), resolver)

	if _, err := cache.Lookup(context.Background(), "doc.md"); err != nil {
		t.Fatal(err)
	}
	cachePath := filepath.Join(proj.ScratchDir(), "index", "doc.md.json")
	before, err := os.Stat(cachePath)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := cache.Lookup(context.Background(), "doc.md"); err != nil {
		t.Fatal(err)
	}
	after, err := os.Stat(cachePath)
	if err != nil {
		t.Fatal(err)
	}
	if resolver.calls != 1 {
		t.Errorf("second lookup must not regenerate, resolver calls: %d", resolver.calls)
	}
	if !before.ModTime().Equal(after.ModTime()) {
		t.Error("cache file mtime must be untouched by a fresh lookup")
	}
}

func TestStalenessMtimeContract(t *testing.T) {
	proj := newTestProject(t, true)
	writeInput(t, proj, "doc.md", "# H\n")
	cache := NewCache(proj, engine.Default(), &countingResolver{})

	if _, err := cache.Lookup(context.Background(), "doc.md"); err != nil {
		t.Fatal(err)
	}

	base := time.Now().Add(-time.Hour)
	input := filepath.Join(proj.Dir, "doc.md")
	cfgFile := proj.ConfigPath()
	cacheFile := filepath.Join(proj.ScratchDir(), "index", "doc.md.json")

	// Cache newer than input and config: valid.
	mustChtimes(t, input, base.Add(50*time.Second))
	mustChtimes(t, cfgFile, base.Add(40*time.Second))
	mustChtimes(t, cacheFile, base.Add(100*time.Second))
	if cache.IsStale("doc.md") {
		t.Error("cache newer than input and config must be valid")
	}

	// Input newer than cache: stale.
	mustChtimes(t, input, base.Add(150*time.Second))
	if !cache.IsStale("doc.md") {
		t.Error("input newer than cache must invalidate")
	}

	// Config newer than cache invalidates even with unchanged input.
	mustChtimes(t, input, base.Add(50*time.Second))
	mustChtimes(t, cfgFile, base.Add(120*time.Second))
	if !cache.IsStale("doc.md") {
		t.Error("config newer than cache must invalidate")
	}
}

func TestConfigTouchInvalidatesAllEntries(t *testing.T) {
	proj := newTestProject(t, true)
	writeInput(t, proj, "a.md", "# A\n")
	writeInput(t, proj, "b.md", "# B\n")
	resolver := &countingResolver{}
	cache := NewCache(proj, engine.Default(), resolver)

	ctx := context.Background()
	for _, rel := range []string{"a.md", "b.md"} {
		if _, err := cache.Lookup(ctx, rel); err != nil {
			t.Fatal(err)
		}
	}
	if resolver.calls != 2 {
		t.Fatalf("resolver calls: %d", resolver.calls)
	}

	future := time.Now().Add(time.Hour)
	mustChtimes(t, proj.ConfigPath(), future)

	for _, rel := range []string{"a.md", "b.md"} {
		if _, err := cache.Lookup(ctx, rel); err != nil {
			t.Fatal(err)
		}
	}
	if resolver.calls != 4 {
		t.Errorf("config touch should invalidate every entry, resolver calls: %d", resolver.calls)
	}
}

func TestCorruptCacheFileIsSilentMiss(t *testing.T) {
	proj := newTestProject(t, false)
	writeInput(t, proj, "doc.md", "# H\n")
	resolver := &countingResolver{}
	cache := NewCache(proj, engine.Default(), resolver)

	ctx := context.Background()
	if _, err := cache.Lookup(ctx, "doc.md"); err != nil {
		t.Fatal(err)
	}

	cacheFile := filepath.Join(proj.ScratchDir(), "index", "doc.md.json")
	if err := os.WriteFile(cacheFile, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	mustChtimes(t, cacheFile, time.Now().Add(time.Hour))

	entry, err := cache.Lookup(ctx, "doc.md")
	if err != nil {
		t.Fatalf("corrupt cache must regenerate silently, got %v", err)
	}
	if entry.Title != "H" {
		t.Errorf("title after regeneration: %q", entry.Title)
	}
	if resolver.calls != 2 {
		t.Errorf("resolver calls: %d", resolver.calls)
	}
}

func TestNotIndexable(t *testing.T) {
	proj := newTestProject(t, false)
	writeInput(t, proj, "notes.txt", "plain\n")
	cache := NewCache(proj, engine.Default(), &countingResolver{})

	ctx := context.Background()
	if _, err := cache.Lookup(ctx, "notes.txt"); !errors.Is(err, ErrNotIndexable) {
		t.Errorf("unclaimed extension: %v", err)
	}
	if _, err := cache.Lookup(ctx, "absent.md"); !errors.Is(err, ErrNotIndexable) {
		t.Errorf("missing file: %v", err)
	}
}

func TestResolverErrorPropagates(t *testing.T) {
	proj := newTestProject(t, false)
	writeInput(t, proj, "doc.md", "# H\n")
	boom := errors.New("format resolution failed")
	cache := NewCache(proj, engine.Default(), &countingResolver{err: boom})

	if _, err := cache.Lookup(context.Background(), "doc.md"); !errors.Is(err, boom) {
		t.Fatalf("regeneration errors must propagate, got %v", err)
	}
}

func TestTitleFallbacks(t *testing.T) {
	proj := newTestProject(t, false)
	writeInput(t, proj, "getting-started.md", "no headings\n")
	cache := NewCache(proj, engine.Default(), &countingResolver{})

	entry, err := cache.Lookup(context.Background(), "getting-started.md")
	if err != nil {
		t.Fatal(err)
	}
	if entry.Title != "Getting Started" {
		t.Errorf("filename fallback title: %q", entry.Title)
	}
}

func mustChtimes(t *testing.T, path string, ts time.Time) {
	t.Helper()
	if err := os.Chtimes(path, ts, ts); err != nil {
		t.Fatal(err)
	}
}
