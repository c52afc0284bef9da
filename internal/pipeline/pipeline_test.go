package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"git.home.luguber.info/inful/renderkit/internal/fsops"
	"git.home.luguber.info/inful/renderkit/internal/render"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFullRunRendersIntoOutputDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "doc.md"), "---\ntitle: Doc\n---\n\n# Doc\n\nbody\n")
	writeFile(t, filepath.Join(dir, "guide", "setup.md"), "# Setup\n")

	p := New(render.NewMarkdownRenderer())
	result, err := p.Run(context.Background(), dir, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.FirstError != nil {
		t.Fatalf("FirstError: %v", result.FirstError)
	}
	if result.Incremental {
		t.Fatal("full run must not be incremental")
	}
	if len(result.Files) != 2 {
		t.Fatalf("rendered files = %d, want 2", len(result.Files))
	}

	out := filepath.Join(dir, "_site")
	for _, rel := range []string{"doc.html", filepath.Join("guide", "setup.html")} {
		if !fsops.IsFile(filepath.Join(out, rel)) {
			t.Fatalf("missing output artifact %s", rel)
		}
	}
	if fsops.Exists(filepath.Join(dir, "doc.html")) {
		t.Fatal("artifact must be moved out of the working tree")
	}
}

func TestIncrementalRunRendersOnlyRequested(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "# A\n")
	writeFile(t, filepath.Join(dir, "b.md"), "# B\n")

	p := New(render.NewMarkdownRenderer())
	result, err := p.Run(context.Background(), dir, Options{Files: []string{filepath.Join(dir, "a.md")}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Incremental {
		t.Fatal("subset request must be incremental")
	}
	if len(result.Files) != 1 || filepath.Base(result.Files[0].Input) != "a.md" {
		t.Fatalf("unexpected rendered set: %+v", result.Files)
	}
	if fsops.Exists(filepath.Join(dir, "_site", "b.html")) {
		t.Fatal("b.md must not be rendered")
	}
}

func TestLibraryDirMovedAndFrozen(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "doc.md"), "# Doc\n")
	writeFile(t, filepath.Join(dir, "site_libs", "html-core", "core.js"), "js")

	p := New(render.NewMarkdownRenderer())
	if _, err := p.Run(context.Background(), dir, Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	merged := filepath.Join(dir, "_site", "site_libs", "html-core", "core.js")
	if !fsops.IsFile(merged) {
		t.Fatal("library dir must be merged into the output")
	}
	if fsops.Exists(filepath.Join(dir, "site_libs")) {
		t.Fatal("library dir must be moved, not copied, by default")
	}
	frozen := filepath.Join(dir, ".renderkit", "freeze", "site_libs", "html-core", "core.js")
	if !fsops.IsFile(frozen) {
		t.Fatal("library dir must be captured in the hidden freezer before the merge")
	}
}

func TestKeepLibCopiesLibraryDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "project.yml"), "output:\n  keep_lib: true\n")
	writeFile(t, filepath.Join(dir, "doc.md"), "# Doc\n")
	writeFile(t, filepath.Join(dir, "site_libs", "html-core", "core.js"), "js")

	p := New(render.NewMarkdownRenderer())
	if _, err := p.Run(context.Background(), dir, Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !fsops.IsFile(filepath.Join(dir, "site_libs", "html-core", "core.js")) {
		t.Fatal("keep_lib must preserve the working-tree library dir")
	}
	if !fsops.IsFile(filepath.Join(dir, "_site", "site_libs", "html-core", "core.js")) {
		t.Fatal("keep_lib must still populate the output library dir")
	}
}

func TestMissingExplicitTargetFailsRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "# A\n")

	p := New(render.NewMarkdownRenderer())
	_, err := p.Run(context.Background(), dir, Options{Files: []string{filepath.Join(dir, "missing.md")}})
	if err == nil {
		t.Fatal("missing explicit target must fail the run")
	}
}

type preservingRenderer struct {
	render.Renderer
}

func (p *preservingRenderer) RenderFile(ctx context.Context, req render.FileRequest) (*render.RenderedFile, error) {
	rf, err := p.Renderer.RenderFile(ctx, req)
	if err != nil {
		return nil, err
	}
	rf.KeepSupporting = true
	return rf, nil
}

func TestPreservedSupportingAssetsRetainLibraryDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "doc.md"), "# Doc\n")
	writeFile(t, filepath.Join(dir, "site_libs", "html-core", "core.js"), "js")

	p := New(&preservingRenderer{Renderer: render.NewMarkdownRenderer()})
	if _, err := p.Run(context.Background(), dir, Options{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !fsops.IsFile(filepath.Join(dir, "site_libs", "html-core", "core.js")) {
		t.Fatal("preserved render must retain the library dir in the working tree")
	}
	if !fsops.IsFile(filepath.Join(dir, "_site", "site_libs", "html-core", "core.js")) {
		t.Fatal("library dir must still be merged into the output")
	}
}

type failingSecondRenderer struct {
	render.Renderer
	calls int
}

func (f *failingSecondRenderer) RenderFile(ctx context.Context, req render.FileRequest) (*render.RenderedFile, error) {
	f.calls++
	if f.calls == 2 {
		return nil, errors.New("engine exploded")
	}
	return f.Renderer.RenderFile(ctx, req)
}

func TestPerFileFailureSurfacesInResultNotError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "# A\n")
	writeFile(t, filepath.Join(dir, "b.md"), "# B\n")
	writeFile(t, filepath.Join(dir, "c.md"), "# C\n")

	p := New(&failingSecondRenderer{Renderer: render.NewMarkdownRenderer()})
	result, err := p.Run(context.Background(), dir, Options{})
	if err != nil {
		t.Fatalf("per-file failure must not abort the run: %v", err)
	}
	if result.FirstError == nil || !strings.Contains(result.FirstError.Error(), "engine exploded") {
		t.Fatalf("FirstError = %v", result.FirstError)
	}
	if len(result.Files) != 2 {
		t.Fatalf("remaining files must still render, got %d", len(result.Files))
	}
}
