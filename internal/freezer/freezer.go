// Package freezer maintains the secondary cache preserving a shared library
// directory's contents across renders, and merges library assets into the
// output tree.
package freezer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/renderkit/internal/fsops"
	"git.home.luguber.info/inful/renderkit/internal/logfields"
	"git.home.luguber.info/inful/renderkit/internal/project"
)

// VisibleFreezerDir is the opportunistic, user-visible freezer location. It
// is refreshed when already established for a project but never created by
// the freeze pass itself.
const VisibleFreezerDir = "_freeze"

// hiddenFreezerName is the freezer mirror inside the project scratch area.
const hiddenFreezerName = "freeze"

// Manager maintains the freezer mirrors of one project.
type Manager struct {
	project *project.Context

	// formatLibPrefixes identify library subdirectories owned by known
	// formats; only those are pruned when no longer referenced. Unknown
	// subdirectories may belong to formats not in this render and are
	// left alone.
	formatLibPrefixes []string
}

// NewManager creates a freezer manager for proj. prefixes names the
// format-library subdirectory prefixes subject to pruning.
func NewManager(proj *project.Context, prefixes []string) *Manager {
	return &Manager{project: proj, formatLibPrefixes: prefixes}
}

// HiddenDir returns the hidden freezer mirror of the library directory.
func (m *Manager) HiddenDir(libName string) string {
	return filepath.Join(m.project.ScratchDir(), hiddenFreezerName, libName)
}

// VisibleDir returns the visible freezer mirror of the library directory.
func (m *Manager) VisibleDir(libName string) string {
	return filepath.Join(m.project.Dir, VisibleFreezerDir, libName)
}

// Freeze copies libDir into the hidden freezer unconditionally and into the
// visible freezer only when one was already established for the project.
// Afterwards, known format-library subdirectories that are no longer
// referenced by libDir are pruned from the mirrors.
func (m *Manager) Freeze(libDir string) error {
	if !fsops.Exists(libDir) {
		return nil
	}
	libName := filepath.Base(libDir)

	if err := m.mergeInto(libDir, m.HiddenDir(libName)); err != nil {
		return fmt.Errorf("freeze into hidden mirror: %w", err)
	}

	if fsops.Exists(filepath.Join(m.project.Dir, VisibleFreezerDir)) {
		if err := m.mergeInto(libDir, m.VisibleDir(libName)); err != nil {
			return fmt.Errorf("freeze into visible mirror: %w", err)
		}
		m.prune(libDir, m.VisibleDir(libName))
	}

	m.prune(libDir, m.HiddenDir(libName))
	return nil
}

// mergeInto copies libDir's entries into the mirror one subdirectory at a
// time, preserving mirror entries the current library no longer carries
// (pruning handles those separately).
func (m *Manager) mergeInto(libDir, mirror string) error {
	entries, err := os.ReadDir(libDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		src := filepath.Join(libDir, entry.Name())
		dst := filepath.Join(mirror, entry.Name())
		if err := fsops.Transfer(src, dst, fsops.TransferCopy); err != nil {
			return err
		}
	}
	return nil
}

// prune removes mirror subdirectories owned by a known format that the
// source library no longer references, bounding cache growth.
func (m *Manager) prune(libDir, mirror string) {
	entries, err := os.ReadDir(mirror)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() || !m.ownedByKnownFormat(entry.Name()) {
			continue
		}
		if fsops.Exists(filepath.Join(libDir, entry.Name())) {
			continue
		}
		stale := filepath.Join(mirror, entry.Name())
		if err := os.RemoveAll(stale); err != nil {
			slog.Warn("Freezer prune failed", logfields.Path(stale), logfields.Error(err))
			continue
		}
		slog.Debug("Pruned unreferenced freezer entry", logfields.Path(stale))
	}
}

func (m *Manager) ownedByKnownFormat(name string) bool {
	for _, p := range m.formatLibPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// MergeIntoOutput places library assets under the output library directory.
//
// Incremental merges go one subdirectory at a time: each subdirectory of
// srcLib replaces its counterpart under dstLib while unrelated pre-existing
// subdirectories stay untouched. A full merge replaces dstLib wholesale —
// the existing directory is removed first and the source lands in one step,
// guaranteeing a clean state after a full render.
func MergeIntoOutput(srcLib, dstLib string, incremental bool, mode fsops.TransferMode) error {
	if !fsops.Exists(srcLib) {
		return nil
	}

	if !incremental {
		if err := os.RemoveAll(dstLib); err != nil {
			return fmt.Errorf("clear output library dir: %w", err)
		}
		return fsops.Transfer(srcLib, dstLib, mode)
	}

	entries, err := os.ReadDir(srcLib)
	if err != nil {
		return fmt.Errorf("read library dir: %w", err)
	}
	for _, entry := range entries {
		src := filepath.Join(srcLib, entry.Name())
		dst := filepath.Join(dstLib, entry.Name())
		if err := fsops.Transfer(src, dst, mode); err != nil {
			return fmt.Errorf("merge library entry %s: %w", entry.Name(), err)
		}
	}
	return nil
}
