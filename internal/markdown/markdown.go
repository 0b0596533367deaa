// Package markdown extracts the structure the consolidation engine needs
// from document content: frontmatter, titles, headings, paragraphs, and
// relative image references.
package markdown

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// imageRefRe matches relative attachment references of the form
// `![alt](images/<file>)` or `[text](images/<file>)`.
var imageRefRe = regexp.MustCompile(`(!?\[[^\]]*\]\()images/([^)\s]+)(\))`)

var headingRe = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+?)\s*$`)

// Doc holds the parsed structure of a primary content file.
type Doc struct {
	Frontmatter map[string]interface{}
	Body        string
	Title       string
}

// Parse splits optional YAML frontmatter from the body and derives a title.
// Invalid YAML is not an error: the whole input is treated as body.
func Parse(data []byte) *Doc {
	fm, body := splitFrontmatter(data)
	return &Doc{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, body),
	}
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}
	return fm, body
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && s != "" {
				return s
			}
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// HumanizeName turns a folder name into a display title: dashes and
// underscores become spaces, runs of spaces collapse.
func HumanizeName(name string) string {
	s := strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return strings.Join(strings.Fields(s), " ")
}

// TopHeading returns the text of the first heading in body, or "".
func TopHeading(body string) string {
	m := headingRe.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[2])
}

// Headings returns the text of every heading in body, in order.
func Headings(body string) []string {
	var out []string
	for _, m := range headingRe.FindAllStringSubmatch(body, -1) {
		out = append(out, strings.TrimSpace(m[2]))
	}
	return out
}

// Paragraphs splits body into blocks separated by blank lines. Heading lines
// form their own blocks.
func Paragraphs(body string) []string {
	var out []string
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		// A block may still mix a heading with following text.
		lines := strings.Split(block, "\n")
		var buf []string
		flush := func() {
			if len(buf) > 0 {
				out = append(out, strings.Join(buf, "\n"))
				buf = nil
			}
		}
		for _, line := range lines {
			if strings.HasPrefix(strings.TrimSpace(line), "#") {
				flush()
				out = append(out, strings.TrimSpace(line))
				continue
			}
			buf = append(buf, line)
		}
		flush()
	}
	return out
}

// FirstParagraph returns the first non-heading paragraph of body, or "".
func FirstParagraph(body string) string {
	for _, p := range Paragraphs(body) {
		if strings.HasPrefix(p, "#") {
			continue
		}
		return p
	}
	return ""
}

// ImageNames returns every attachment file name referenced from body using
// the relative `images/<file>` form, in order of appearance, deduplicated.
func ImageNames(body string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range imageRefRe.FindAllStringSubmatch(body, -1) {
		name := m[2]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// RewriteImageRefs replaces `images/<old>` references with `images/<new>`
// for every old name present in mapping. References to names that are not
// in the mapping are left untouched.
func RewriteImageRefs(body string, mapping map[string]string) string {
	if len(mapping) == 0 {
		return body
	}
	return imageRefRe.ReplaceAllStringFunc(body, func(ref string) string {
		m := imageRefRe.FindStringSubmatch(ref)
		newName, ok := mapping[m[2]]
		if !ok || newName == m[2] {
			return ref
		}
		return fmt.Sprintf("%simages/%s%s", m[1], newName, m[3])
	})
}

// NormalizeText lowercases s, strips everything but letters, digits, and
// spaces, and collapses whitespace. Used for duplicate detection.
func NormalizeText(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '\n', r == '\t':
			b.WriteRune(' ')
		default:
			// Keep non-ASCII letters so mixed-language content still compares.
			if r > 127 {
				b.WriteRune(r)
			}
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Anchor converts a heading to a GitHub-style anchor fragment.
func Anchor(heading string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(heading) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r > 127:
			b.WriteRune(r)
		case r == ' ' || r == '-':
			b.WriteRune('-')
		}
	}
	return b.String()
}

// WordCount returns the number of whitespace-separated words in s.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
