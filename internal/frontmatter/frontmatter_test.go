package frontmatter

import (
	"errors"
	"testing"
)

func TestSplitNoFrontmatter(t *testing.T) {
	meta, body, had, err := Split([]byte("# Title\n\nbody\n"))
	if err != nil {
		t.Fatal(err)
	}
	if had || meta != nil {
		t.Fatal("expected no frontmatter")
	}
	if string(body) != "# Title\n\nbody\n" {
		t.Fatalf("body altered: %q", body)
	}
}

func TestSplitBasic(t *testing.T) {
	in := []byte("---\ntitle: Hello\n---\n# Body\n")
	meta, body, had, err := Split(in)
	if err != nil {
		t.Fatal(err)
	}
	if !had {
		t.Fatal("frontmatter not detected")
	}
	if string(meta) != "title: Hello\n" {
		t.Fatalf("meta: %q", meta)
	}
	if string(body) != "# Body\n" {
		t.Fatalf("body: %q", body)
	}
}

func TestSplitEmptyFrontmatter(t *testing.T) {
	_, body, had, err := Split([]byte("---\n---\nbody\n"))
	if err != nil || !had {
		t.Fatalf("had=%v err=%v", had, err)
	}
	if string(body) != "body\n" {
		t.Fatalf("body: %q", body)
	}
}

func TestSplitMissingClose(t *testing.T) {
	_, _, _, err := Split([]byte("---\ntitle: x\nno close\n"))
	if !errors.Is(err, ErrMissingClosingDelimiter) {
		t.Fatalf("expected ErrMissingClosingDelimiter, got %v", err)
	}
}

func TestSplitCRLF(t *testing.T) {
	meta, body, had, err := Split([]byte("---\r\ntitle: x\r\n---\r\nbody\r\n"))
	if err != nil || !had {
		t.Fatalf("had=%v err=%v", had, err)
	}
	if string(meta) != "title: x\r\n" {
		t.Fatalf("meta: %q", meta)
	}
	if string(body) != "body\r\n" {
		t.Fatalf("body: %q", body)
	}
}

func TestParse(t *testing.T) {
	meta, body, err := Parse([]byte("---\ntitle: Hello\nformat:\n  html:\n    toc: true\n---\ntext\n"))
	if err != nil {
		t.Fatal(err)
	}
	if meta["title"] != "Hello" {
		t.Fatalf("title: %v", meta["title"])
	}
	if string(body) != "text\n" {
		t.Fatalf("body: %q", body)
	}
}

func TestParseNoFrontmatterNilMap(t *testing.T) {
	meta, _, err := Parse([]byte("plain text"))
	if err != nil {
		t.Fatal(err)
	}
	if meta != nil {
		t.Fatal("expected nil metadata map")
	}
}
