package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "project.yml", "title: Demo\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Output.Directory != "_site" {
		t.Errorf("default output dir: got %s", cfg.Output.Directory)
	}
	if cfg.Output.LibDir != "site_libs" {
		t.Errorf("default lib dir: got %s", cfg.Output.LibDir)
	}
	if cfg.Preview.Port != 1313 {
		t.Errorf("default preview port: got %d", cfg.Preview.Port)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %s, want %s", cfg.Path(), path)
	}
}

func TestLoadRejectsAbsoluteOutputDir(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "project.yml", "output:\n  directory: /abs/path\n")

	_, err := Load(path)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadRejectsEmptyRenderEntry(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "project.yml", "render:\n  - \"  \"\n")

	_, err := Load(path)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "project.yml", "title: [unclosed\n")

	_, err := Load(path)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	if got := Find(dir); got != "" {
		t.Fatalf("expected no config file, got %s", got)
	}
	path := writeConfig(t, dir, "project.yaml", "title: x\n")
	if got := Find(dir); got != path {
		t.Fatalf("Find = %s, want %s", got, path)
	}
}

func TestLoadProjectWithoutConfigFile(t *testing.T) {
	cfg, err := LoadProject(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Output.Directory != "_site" {
		t.Error("defaults should apply when no config file exists")
	}
	if cfg.Path() != "" {
		t.Error("in-memory config should have empty Path()")
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("RENDERKIT_TEST_TITLE", "FromEnv")
	dir := t.TempDir()
	path := writeConfig(t, dir, "project.yml", "title: ${RENDERKIT_TEST_TITLE}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Title != "FromEnv" {
		t.Fatalf("env expansion failed: %q", cfg.Title)
	}
}
