// Package index maintains the per-input metadata cache. Entries are created
// lazily, persisted under the project scratch directory, and silently
// regenerated when stale. Nothing else writes these files.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/renderkit/internal/engine"
	"git.home.luguber.info/inful/renderkit/internal/fsops"
	"git.home.luguber.info/inful/renderkit/internal/logfields"
	"git.home.luguber.info/inful/renderkit/internal/markdown"
	"git.home.luguber.info/inful/renderkit/internal/metrics"
	"git.home.luguber.info/inful/renderkit/internal/project"
)

// ErrNotIndexable marks a path that is not an indexable input: it does not
// exist, is a directory, or no engine claims its extension. Callers treat
// this as "skip", not as a failure.
var ErrNotIndexable = errors.New("renderkit: not indexable")

// cacheSuffix is appended to the input's relative path to form its cache file.
const cacheSuffix = ".json"

// Entry is the cached metadata of one input file.
type Entry struct {
	Title     string                    `json:"title,omitempty"`
	Partition *markdown.Document        `json:"partition,omitempty"`
	Formats   map[string]map[string]any `json:"formats"`
}

// FormatResolver resolves the per-format configuration of an input. The
// renderer collaborator implements this.
type FormatResolver interface {
	ResolveFormats(ctx context.Context, proj *project.Context, input string) (map[string]map[string]any, error)
}

// Cache is the per-project input index.
//
// Staleness is tracked by comparing modification times: an entry is valid
// only while its cache file's mtime is at least both the input file's mtime
// and the project configuration file's mtime. The comparison is subject to
// clock skew and coarse filesystem mtime resolution; that tradeoff is the
// documented contract, and the narrow Get/Put/IsStale surface keeps a
// content-hash key swappable later without touching callers.
type Cache struct {
	project  *project.Context
	registry *engine.Registry
	resolver FormatResolver
	recorder metrics.Recorder

	titleCaser cases.Caser
}

// NewCache creates the index cache for one project.
func NewCache(proj *project.Context, reg *engine.Registry, resolver FormatResolver) *Cache {
	return &Cache{
		project:    proj,
		registry:   reg,
		resolver:   resolver,
		recorder:   metrics.NoopRecorder{},
		titleCaser: cases.Title(language.English),
	}
}

// WithRecorder swaps the metrics recorder.
func (c *Cache) WithRecorder(r metrics.Recorder) *Cache {
	c.recorder = r
	return c
}

// Lookup returns the index entry for the input at rel (project-relative),
// regenerating and persisting it when stale or missing.
func (c *Cache) Lookup(ctx context.Context, rel string) (*Entry, error) {
	abs := filepath.Join(c.project.Dir, rel)
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotIndexable, rel)
	}
	eng, ok := c.registry.ClaimedBy(abs)
	if !ok {
		return nil, fmt.Errorf("%w: no engine claims %s", ErrNotIndexable, rel)
	}

	if entry, ok, err := c.Get(rel); err != nil {
		return nil, err
	} else if ok {
		c.recorder.CacheHit()
		return entry, nil
	}
	c.recorder.CacheMiss()

	entry, err := c.regenerate(ctx, eng, rel, abs)
	if err != nil {
		return nil, err
	}
	if err := c.Put(rel, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Get returns the cached entry for rel if it is fresh. A cache file that
// fails to deserialize is treated exactly as missing.
func (c *Cache) Get(rel string) (*Entry, bool, error) {
	if c.IsStale(rel) {
		return nil, false, nil
	}
	data, err := os.ReadFile(c.cachePath(rel))
	if err != nil {
		return nil, false, nil
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		slog.Debug("Corrupt index cache entry, regenerating", logfields.Input(rel), logfields.Error(err))
		return nil, false, nil
	}
	return &entry, true, nil
}

// Put persists the entry for rel atomically.
func (c *Cache) Put(rel string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal index entry for %s: %w", rel, err)
	}
	return fsops.WriteFileAtomic(c.cachePath(rel), data, 0o644)
}

// IsStale reports whether the cache entry for rel needs regeneration: the
// cache file is absent, older than the input, or older than the project
// configuration file.
func (c *Cache) IsStale(rel string) bool {
	cacheInfo, err := os.Stat(c.cachePath(rel))
	if err != nil {
		return true
	}
	inputInfo, err := os.Stat(filepath.Join(c.project.Dir, rel))
	if err != nil {
		return true
	}
	if cacheInfo.ModTime().Before(inputInfo.ModTime()) {
		return true
	}
	if cfgPath := c.project.ConfigPath(); cfgPath != "" {
		if cfgInfo, err := os.Stat(cfgPath); err == nil && cacheInfo.ModTime().Before(cfgInfo.ModTime()) {
			return true
		}
	}
	return false
}

// cachePath derives the cache file location from the input's relative path,
// rooted under the project scratch area.
func (c *Cache) cachePath(rel string) string {
	return filepath.Join(c.project.ScratchDir(), "index", rel+cacheSuffix)
}

func (c *Cache) regenerate(ctx context.Context, eng engine.Engine, rel, abs string) (*Entry, error) {
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read input %s: %w", rel, err)
	}
	partition, err := eng.Partition(content)
	if err != nil {
		return nil, fmt.Errorf("partition %s: %w", rel, err)
	}
	formats, err := c.resolver.ResolveFormats(ctx, c.project, abs)
	if err != nil {
		return nil, fmt.Errorf("resolve formats for %s: %w", rel, err)
	}

	return &Entry{
		Title:     c.resolveTitle(formats, partition, rel),
		Partition: partition,
		Formats:   formats,
	}, nil
}

// resolveTitle prefers an explicit title in the resolved format metadata,
// then the first heading of the partition, then a cased filename stem.
func (c *Cache) resolveTitle(formats map[string]map[string]any, doc *markdown.Document, rel string) string {
	for _, fm := range formats {
		if t, ok := fm["title"].(string); ok && t != "" {
			return t
		}
	}
	if t := doc.TitleFromMetadata(); t != "" {
		return t
	}
	if t := doc.FirstHeading(); t != "" {
		return t
	}
	stem := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
	stem = strings.NewReplacer("-", " ", "_", " ").Replace(stem)
	return c.titleCaser.String(stem)
}
