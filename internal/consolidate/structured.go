package consolidate

import (
	"fmt"
	"strings"

	"github.com/starford/othala/internal/markdown"
)

// contentGroup collects sources whose top-level heading matches by
// normalized string comparison; each group becomes one sub-heading in the
// merged body.
type contentGroup struct {
	heading string
	members []*source
}

// groupSources buckets sources by their top heading (falling back to the
// derived title when a source has no headings), preserving input order.
func groupSources(sources []*source) []*contentGroup {
	var groups []*contentGroup
	index := make(map[string]*contentGroup)
	for _, src := range sources {
		heading := markdown.TopHeading(src.body)
		if heading == "" {
			heading = src.title
		}
		key := markdown.NormalizeText(heading)
		if g, ok := index[key]; ok {
			g.members = append(g.members, src)
			continue
		}
		g := &contentGroup{heading: heading, members: []*source{src}}
		index[key] = g
		groups = append(groups, g)
	}
	return groups
}

// stripTopHeading removes the body's leading heading line when it is the
// first non-empty line; the group heading already names the section.
func stripTopHeading(body string) string {
	trimmed := strings.TrimLeft(body, "\n\r")
	if !strings.HasPrefix(trimmed, "#") {
		return body
	}
	if i := strings.Index(trimmed, "\n"); i >= 0 {
		return strings.TrimLeft(trimmed[i+1:], "\n\r")
	}
	return ""
}

// renderStructured emits an overview synthesized from the sources' titles and
// opening paragraphs, then the sources grouped under shared sub-headings.
func renderStructured(topic string, sources []*source) (string, int) {
	groups := groupSources(sources)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", topic)

	b.WriteString("## Overview\n\n")
	titles := make([]string, len(sources))
	for i, src := range sources {
		titles[i] = src.title
	}
	fmt.Fprintf(&b, "This document consolidates %d sources: %s.\n\n",
		len(sources), strings.Join(titles, ", "))
	for _, src := range sources {
		if p := markdown.FirstParagraph(src.body); p != "" {
			b.WriteString(p)
			b.WriteString("\n\n")
		}
	}

	b.WriteString("## Main Content\n\n")
	for _, g := range groups {
		fmt.Fprintf(&b, "### %s\n\n", g.heading)
		for _, src := range g.members {
			body := src.body
			if len(g.members) > 1 || markdown.TopHeading(body) != "" {
				body = stripTopHeading(body)
			}
			body = strings.TrimRight(body, "\n")
			if body != "" {
				b.WriteString(body)
				b.WriteString("\n\n")
			}
		}
	}

	return b.String(), len(groups)
}
