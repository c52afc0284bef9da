// Package resources discovers file-path-shaped values inside arbitrary
// decoded metadata (project config metadata, format options).
//
// Metadata is modeled as a tagged union of Scalar / Sequence / Mapping and
// walked by a single recursive visitor, so new value shapes cannot silently
// bypass discovery.
package resources

import (
	"os"
	"path/filepath"
	"sort"

	"git.home.luguber.info/inful/renderkit/internal/fsops"
	"git.home.luguber.info/inful/renderkit/internal/util/sets"
)

// Kind discriminates the metadata value union.
type Kind int

const (
	KindScalar Kind = iota
	KindSequence
	KindMapping
)

// MapEntry is one key/value pair of a mapping, order-preserving.
type MapEntry struct {
	Key   string
	Value Value
}

// Value is one node of the metadata tree.
type Value struct {
	Kind     Kind
	Scalar   string // set for string scalars only
	IsString bool
	Seq      []Value
	Map      []MapEntry
}

// FromAny converts a decoded YAML/JSON value into the tagged union.
// Non-string scalars are retained as empty scalars so traversal shape stays
// faithful even though they can never name a file.
func FromAny(v any) Value {
	switch val := v.(type) {
	case string:
		return Value{Kind: KindScalar, Scalar: val, IsString: true}
	case []any:
		out := Value{Kind: KindSequence, Seq: make([]Value, 0, len(val))}
		for _, item := range val {
			out.Seq = append(out.Seq, FromAny(item))
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := Value{Kind: KindMapping, Map: make([]MapEntry, 0, len(val))}
		for _, k := range keys {
			out.Map = append(out.Map, MapEntry{Key: k, Value: FromAny(val[k])})
		}
		return out
	default:
		return Value{Kind: KindScalar}
	}
}

// Resolver finds metadata values that name existing files.
type Resolver struct {
	// ProjectDir anchors relative path candidates.
	ProjectDir string

	// IgnoreKeys are mapping keys whose subtrees are skipped entirely, to
	// avoid treating unrelated string-valued configuration as file resources.
	IgnoreKeys sets.Set[string]
}

// Resolve walks v and returns the canonicalized paths of every string scalar
// that names an existing, non-directory file, either absolutely or relative
// to the project root. Results are de-duplicated, first occurrence wins.
func (r *Resolver) Resolve(v Value) []string {
	seen := sets.New[string]()
	var out []string
	r.visit(v, seen, &out)
	return out
}

// ResolveAny is a convenience wrapper over FromAny + Resolve.
func (r *Resolver) ResolveAny(v any) []string {
	return r.Resolve(FromAny(v))
}

func (r *Resolver) visit(v Value, seen sets.Set[string], out *[]string) {
	switch v.Kind {
	case KindScalar:
		if !v.IsString || v.Scalar == "" {
			return
		}
		if path, ok := r.asFile(v.Scalar); ok && !seen.Has(path) {
			seen.Add(path)
			*out = append(*out, path)
		}
	case KindSequence:
		for _, item := range v.Seq {
			r.visit(item, seen, out)
		}
	case KindMapping:
		for _, entry := range v.Map {
			if r.IgnoreKeys.Has(entry.Key) {
				continue
			}
			r.visit(entry.Value, seen, out)
		}
	}
}

func (r *Resolver) asFile(candidate string) (string, bool) {
	path := candidate
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.ProjectDir, path)
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return fsops.Canonicalize(path), true
}
