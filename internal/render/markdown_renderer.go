package render

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	xhtml "golang.org/x/net/html"

	"git.home.luguber.info/inful/renderkit/internal/frontmatter"
	"git.home.luguber.info/inful/renderkit/internal/fsops"
	"git.home.luguber.info/inful/renderkit/internal/project"
)

// MarkdownRenderer is the built-in renderer: goldmark markdown to HTML.
// The artifact is written next to its input; relocation moves it afterwards.
type MarkdownRenderer struct {
	md goldmark.Markdown
}

// NewMarkdownRenderer creates the built-in markdown renderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{
		md: goldmark.New(goldmark.WithRendererOptions(gmhtml.WithHardWraps())),
	}
}

// ResolveFormats merges the project's per-format configuration with the
// input's frontmatter `format` mapping; frontmatter wins per key.
func (r *MarkdownRenderer) ResolveFormats(_ context.Context, proj *project.Context, input string) (map[string]map[string]any, error) {
	content, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", input, err)
	}
	meta, _, err := frontmatter.Parse(content)
	if err != nil {
		return nil, err
	}

	formats := map[string]map[string]any{}
	for name, opts := range proj.Config.Formats {
		merged := make(map[string]any, len(opts))
		for k, v := range opts {
			merged[k] = v
		}
		formats[name] = merged
	}
	if len(formats) == 0 {
		formats["html"] = map[string]any{}
	}

	if fmMeta, ok := meta["format"].(map[string]any); ok {
		for name, raw := range fmMeta {
			opts, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			merged := formats[name]
			if merged == nil {
				merged = map[string]any{}
			}
			for k, v := range opts {
				merged[k] = v
			}
			formats[name] = merged
		}
	}
	return formats, nil
}

// RenderFile converts one markdown input to an HTML artifact beside it and
// reports the resources the artifact references.
func (r *MarkdownRenderer) RenderFile(ctx context.Context, req FileRequest) (*RenderedFile, error) {
	content, err := os.ReadFile(req.Input)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", req.Input, err)
	}
	meta, body, err := frontmatter.Parse(content)
	if err != nil {
		return nil, err
	}

	formats, err := r.ResolveFormats(ctx, req.Project, req.Input)
	if err != nil {
		return nil, err
	}
	formatName := "html"
	formatCfg := formats[formatName]
	if formatCfg == nil {
		formatCfg = map[string]any{}
	}

	var rendered bytes.Buffer
	if err := r.md.Convert(body, &rendered); err != nil {
		return nil, fmt.Errorf("convert %s: %w", req.Input, err)
	}

	title, _ := meta["title"].(string)
	page := wrapDocument(title, rendered.Bytes())

	outPath := strings.TrimSuffix(req.Input, filepath.Ext(req.Input)) + ".html"
	if err := os.WriteFile(outPath, page, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", outPath, err)
	}

	outRel, err := filepath.Rel(req.Project.Dir, outPath)
	if err != nil {
		return nil, fmt.Errorf("relativize %s: %w", outPath, err)
	}

	selfContained, _ := formatCfg["self-contained"].(bool)
	keepSupporting, _ := formatCfg["preserve-supporting"].(bool)

	rf := &RenderedFile{
		Input:          req.Input,
		OutputRelPath:  outRel,
		FormatName:     formatName,
		Format:         formatCfg,
		SelfContained:  selfContained,
		KeepSupporting: keepSupporting,
	}
	rf.Resources.Globs = resourceGlobs(meta, formatCfg)
	rf.Resources.Files = localReferences(page, filepath.Dir(req.Input), req.Project.Dir)
	return rf, nil
}

func wrapDocument(title string, body []byte) []byte {
	var b bytes.Buffer
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	if title != "" {
		fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(title))
	}
	b.WriteString("</head>\n<body>\n")
	b.Write(body)
	b.WriteString("</body>\n</html>\n")
	return b.Bytes()
}

// resourceGlobs collects declared resource patterns from frontmatter and the
// resolved format configuration.
func resourceGlobs(meta map[string]any, formatCfg map[string]any) []string {
	var globs []string
	for _, source := range []any{meta["resources"], formatCfg["resources"]} {
		switch v := source.(type) {
		case string:
			globs = append(globs, v)
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					globs = append(globs, s)
				}
			}
		}
	}
	return globs
}

// localReferences walks the rendered HTML and returns project-relative paths
// of referenced local files (img/script src, link href) that exist on disk.
func localReferences(page []byte, inputDir, projectDir string) []string {
	doc, err := xhtml.Parse(bytes.NewReader(page))
	if err != nil {
		return nil
	}

	seen := map[string]bool{}
	var out []string
	var walk func(*xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.ElementNode {
			for _, attr := range n.Attr {
				if !isResourceAttr(n.Data, attr.Key) {
					continue
				}
				ref := attr.Val
				if ref == "" || strings.Contains(ref, "://") || strings.HasPrefix(ref, "//") ||
					strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, "#") ||
					strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "mailto:") {
					continue
				}
				abs := filepath.Join(inputDir, filepath.FromSlash(ref))
				if !fsops.IsFile(abs) {
					continue
				}
				rel, err := filepath.Rel(projectDir, abs)
				if err != nil || strings.HasPrefix(rel, "..") {
					continue
				}
				if !seen[rel] {
					seen[rel] = true
					out = append(out, rel)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func isResourceAttr(tag, attr string) bool {
	switch tag {
	case "img", "script", "audio", "video", "source":
		return attr == "src"
	case "link":
		return attr == "href"
	}
	return false
}
