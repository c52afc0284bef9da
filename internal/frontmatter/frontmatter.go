// Package frontmatter splits and parses YAML frontmatter from document inputs.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates an opening `---` without a close.
var ErrMissingClosingDelimiter = errors.New("frontmatter: missing closing delimiter")

var delim = []byte("---")

// Split separates YAML frontmatter (`---` delimited) from the document body.
//
// If the document does not start with a frontmatter delimiter, had is false
// and body is the full input.
func Split(content []byte) (meta []byte, body []byte, had bool, err error) {
	nl := detectNewline(content)
	open := append(append([]byte{}, delim...), nl...)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, nil
	}

	rest := content[len(open):]

	// Empty frontmatter: close on the very next line.
	if bytes.HasPrefix(rest, open) {
		return []byte{}, rest[len(open):], true, nil
	}

	closeSeq := append(append(append([]byte{}, nl...), delim...), nl...)
	idx := bytes.Index(rest, closeSeq)
	if idx < 0 {
		// Close at EOF without trailing newline.
		tail := append(append([]byte{}, nl...), delim...)
		if bytes.HasSuffix(rest, tail) {
			return rest[:len(rest)-len(tail)+len(nl)], []byte{}, true, nil
		}
		return nil, nil, false, ErrMissingClosingDelimiter
	}

	return rest[:idx+len(nl)], rest[idx+len(closeSeq):], true, nil
}

// Parse splits content and decodes the frontmatter into a generic map.
// Documents without frontmatter yield a nil map.
func Parse(content []byte) (map[string]any, []byte, error) {
	meta, body, had, err := Split(content)
	if err != nil {
		return nil, nil, err
	}
	if !had || len(bytes.TrimSpace(meta)) == 0 {
		return nil, body, nil
	}

	var out map[string]any
	if err := yaml.Unmarshal(meta, &out); err != nil {
		return nil, nil, fmt.Errorf("frontmatter: decode: %w", err)
	}
	return out, body, nil
}

func detectNewline(content []byte) []byte {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return []byte("\r\n")
	}
	return []byte("\n")
}
