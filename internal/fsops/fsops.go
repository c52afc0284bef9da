// Package fsops provides the file transfer primitives shared by artifact
// relocation and the library freezer.
//
// Move-vs-copy decisions are expressed as a single TransferMode value threaded
// through call sites instead of ad hoc booleans.
package fsops

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// TransferMode selects how a transfer affects the source tree.
type TransferMode int

const (
	// TransferMove relocates the source; it no longer exists afterwards.
	TransferMove TransferMode = iota
	// TransferCopy duplicates the source, leaving it in place.
	TransferCopy
)

func (m TransferMode) String() string {
	if m == TransferCopy {
		return "copy"
	}
	return "move"
}

// Transfer moves or copies src (file or directory) to dst.
// Parent directories of dst are created as needed. Any existing file or
// directory at dst is removed first, so the destination never merges with
// stale content.
func Transfer(src, dst string, mode TransferMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create destination parent: %w", err)
	}
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("clear destination %s: %w", dst, err)
	}

	if mode == TransferMove {
		if err := os.Rename(src, dst); err == nil {
			return nil
		}
		// Rename fails across filesystems; fall back to copy + remove.
		if err := copyAny(src, dst); err != nil {
			return err
		}
		return os.RemoveAll(src)
	}
	return copyAny(src, dst)
}

func copyAny(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}
	if info.IsDir() {
		return CopyDir(src, dst)
	}
	return CopyFile(src, dst)
}

// CopyFile copies a single regular file, preserving its permission bits.
func CopyFile(src, dst string) error {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create parent for %s: %w", dst, err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}

// CopyDir recursively copies a directory tree. Symbolic links inside the tree
// are skipped rather than followed.
func CopyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return CopyFile(path, target)
	})
}

// WriteFileAtomic writes data to path via a temp file + rename so readers
// never observe a partial write.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent for %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Canonicalize resolves path to an absolute, symlink-free form. If symlink
// resolution fails (e.g. a dangling parent), the absolute cleaned path is
// returned instead.
func Canonicalize(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsFile reports whether path names an existing regular file.
func IsFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
