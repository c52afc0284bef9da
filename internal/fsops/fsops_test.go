package fsops

import (
	"os"
	"path/filepath"
	"testing"
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

func TestTransferMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "out", "a.txt")
	writeFile(t, src, "hello")

	if err := Transfer(src, dst, TransferMove); err != nil {
		t.Fatal(err)
	}
	if Exists(src) {
		t.Fatal("source should be gone after move")
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "hello" {
		t.Fatalf("destination content wrong: %q %v", data, err)
	}
}

func TestTransferCopyDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "sub", "b.txt"), "b")

	if err := Transfer(filepath.Join(dir, "src"), filepath.Join(dir, "dst"), TransferCopy); err != nil {
		t.Fatal(err)
	}
	if !IsFile(filepath.Join(dir, "src", "sub", "b.txt")) {
		t.Fatal("copy must leave the source in place")
	}
	if !IsFile(filepath.Join(dir, "dst", "sub", "b.txt")) {
		t.Fatal("copied file missing")
	}
}

func TestTransferReplacesStaleDestination(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "new.txt"), "new")
	writeFile(t, filepath.Join(dir, "dst", "stale.txt"), "stale")

	if err := Transfer(filepath.Join(dir, "src"), filepath.Join(dir, "dst"), TransferMove); err != nil {
		t.Fatal(err)
	}
	if Exists(filepath.Join(dir, "dst", "stale.txt")) {
		t.Fatal("stale destination content must be removed, not merged")
	}
	if !IsFile(filepath.Join(dir, "dst", "new.txt")) {
		t.Fatal("new content missing after transfer")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.json")

	if err := WriteFileAtomic(path, []byte(`{"ok":true}`), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != `{"ok":true}` {
		t.Fatalf("unexpected content: %q %v", data, err)
	}
	if Exists(path + ".tmp") {
		t.Fatal("temp file should not survive")
	}
}

func TestTransferModeString(t *testing.T) {
	if TransferMove.String() != "move" || TransferCopy.String() != "copy" {
		t.Fatal("unexpected TransferMode strings")
	}
}
