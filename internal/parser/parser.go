// Package parser reads chapter files: YAML frontmatter followed by an HTML
// body whose verse elements carry data-verse-id attributes.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var verseIDRe = regexp.MustCompile(`data-verse-id="([^"]+)"`)

// Frontmatter is the metadata block of a chapter file. Prev and Next are
// "version/book/chapter" paths.
type Frontmatter struct {
	Reference string `yaml:"reference"`
	Prev      string `yaml:"prev"`
	Next      string `yaml:"next"`
}

// Result holds the output of parsing a chapter file.
type Result struct {
	Frontmatter Frontmatter
	Body        string
	// VerseIDs are the distinct data-verse-id values in document order.
	VerseIDs []string
}

// Parse splits frontmatter from body and collects verse ids.
func Parse(data []byte) (*Result, error) {
	fm, body := splitFrontmatter(data)
	return &Result{
		Frontmatter: fm,
		Body:        body,
		VerseIDs:    extractVerseIDs(body),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- lines)
// from the body. Without a closing delimiter, or with invalid YAML, the
// whole input is body.
func splitFrontmatter(data []byte) (Frontmatter, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return Frontmatter{}, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return Frontmatter{}, string(data)
	}

	var fm Frontmatter
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return Frontmatter{}, string(data)
	}
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")
	return fm, body
}

func extractVerseIDs(body string) []string {
	matches := verseIDRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		id := strings.TrimSpace(m[1])
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
