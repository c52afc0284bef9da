// Package markdown partitions document inputs into structural metadata:
// frontmatter fields and the heading outline. The partition is what the input
// index persists per file; it stays deliberately small.
package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"git.home.luguber.info/inful/renderkit/internal/frontmatter"
)

// Heading is one entry of a document's heading outline.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Document is the partitioned summary of one markdown input.
type Document struct {
	Metadata map[string]any `json:"metadata,omitempty"`
	Headings []Heading      `json:"headings,omitempty"`
}

// Parse partitions content into frontmatter metadata and a heading outline.
func Parse(content []byte) (*Document, error) {
	meta, body, err := frontmatter.Parse(content)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(body))

	doc := &Document{Metadata: meta}
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if h, ok := n.(*gmast.Heading); ok {
			doc.Headings = append(doc.Headings, Heading{
				Level: h.Level,
				Text:  nodeText(h, body),
			})
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})

	return doc, nil
}

// FirstHeading returns the text of the first heading, or an empty string.
func (d *Document) FirstHeading() string {
	if len(d.Headings) == 0 {
		return ""
	}
	return d.Headings[0].Text
}

// TitleFromMetadata returns the explicit title frontmatter field if present.
func (d *Document) TitleFromMetadata() string {
	if d.Metadata == nil {
		return ""
	}
	if t, ok := d.Metadata["title"].(string); ok {
		return t
	}
	return ""
}

// nodeText collects the raw text segments under n.
func nodeText(n gmast.Node, src []byte) string {
	var b strings.Builder
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if t, ok := c.(*gmast.Text); ok {
			b.Write(t.Segment.Value(src))
		}
		return gmast.WalkContinue, nil
	})
	return b.String()
}
