package engine

import (
	"testing"

	"git.home.luguber.info/inful/renderkit/internal/markdown"
)

type fakeEngine struct {
	name     string
	ext      string
	ignores  []string
	excluded []string
}

func (f *fakeEngine) Name() string { return f.name }
func (f *fakeEngine) Claims(path string) bool {
	return len(path) > len(f.ext) && path[len(path)-len(f.ext):] == f.ext
}
func (f *fakeEngine) IgnoreGlobs() []string                        { return f.ignores }
func (f *fakeEngine) AlwaysExcluded(string) []string               { return f.excluded }
func (f *fakeEngine) Partition([]byte) (*markdown.Document, error) { return &markdown.Document{}, nil }

func TestMarkdownEngineClaims(t *testing.T) {
	e := NewMarkdownEngine()
	cases := []struct {
		path string
		want bool
	}{
		{"doc.md", true},
		{"doc.MD", true},
		{"doc.markdown", true},
		{"doc.mkd", true},
		{"doc.txt", false},
		{"doc.html", false},
	}
	for _, tc := range cases {
		if got := e.Claims(tc.path); got != tc.want {
			t.Errorf("Claims(%s) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestRegistryClaimOrder(t *testing.T) {
	first := &fakeEngine{name: "first", ext: ".md"}
	reg := NewRegistry(first, NewMarkdownEngine())

	e, ok := reg.ClaimedBy("a.md")
	if !ok || e.Name() != "first" {
		t.Fatalf("first registered engine should win, got %v ok=%v", e, ok)
	}

	if _, ok := reg.ClaimedBy("a.rst"); ok {
		t.Fatal("no engine should claim .rst")
	}
}

func TestRegistryUnions(t *testing.T) {
	a := &fakeEngine{name: "a", ext: ".a", ignores: []string{"x*"}, excluded: []string{"gen/a.md"}}
	b := &fakeEngine{name: "b", ext: ".b", ignores: []string{"y*"}}
	reg := NewRegistry(a, b)

	if got := reg.IgnoreGlobs(); len(got) != 2 {
		t.Fatalf("IgnoreGlobs union: %v", got)
	}
	if got := reg.AlwaysExcluded("/p"); len(got) != 1 || got[0] != "gen/a.md" {
		t.Fatalf("AlwaysExcluded union: %v", got)
	}
}
