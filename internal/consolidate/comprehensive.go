package consolidate

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/othala/internal/markdown"
)

// paragraphSet tracks emitted paragraphs for duplicate suppression. Exact
// duplicate detection (same normalized text) is mandatory; near-duplicate
// detection through word-overlap similarity is best-effort.
type paragraphSet struct {
	threshold float64
	exact     map[string]struct{}
	words     []map[string]struct{}
}

func newParagraphSet(threshold float64) *paragraphSet {
	return &paragraphSet{
		threshold: threshold,
		exact:     make(map[string]struct{}),
	}
}

// seen reports whether p duplicates an already-admitted paragraph, and admits
// it otherwise.
func (ps *paragraphSet) seen(p string) bool {
	norm := markdown.NormalizeText(p)
	if norm == "" {
		return false
	}
	if _, ok := ps.exact[norm]; ok {
		return true
	}
	set := wordSet(norm)
	for _, prev := range ps.words {
		if jaccard(set, prev) >= ps.threshold {
			return true
		}
	}
	ps.exact[norm] = struct{}{}
	ps.words = append(ps.words, set)
	return false
}

func wordSet(norm string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(norm) {
		out[w] = struct{}{}
	}
	return out
}

// jaccard returns intersection-over-union for two word sets.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// renderComprehensive emits an executive summary, a table of contents, the
// structured body with duplicate paragraphs suppressed, a document metadata
// section, and an appendix listing every source.
func renderComprehensive(topic string, sources []*source, threshold float64) (string, int) {
	groups := groupSources(sources)
	dedupe := newParagraphSet(threshold)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", topic)

	b.WriteString("## Executive Summary\n\n")
	summarySeen := newParagraphSet(threshold)
	for _, src := range sources {
		p := markdown.FirstParagraph(src.body)
		if p == "" || summarySeen.seen(p) {
			continue
		}
		b.WriteString(p)
		b.WriteString("\n\n")
	}

	b.WriteString("## Table of Contents\n\n")
	for i, g := range groups {
		fmt.Fprintf(&b, "%d. [%s](#%s)\n", i+1, g.heading, markdown.Anchor(g.heading))
	}
	b.WriteString("\n")

	b.WriteString("## Main Content\n\n")
	for _, g := range groups {
		fmt.Fprintf(&b, "### %s\n\n", g.heading)
		for _, src := range g.members {
			body := src.body
			if len(g.members) > 1 || markdown.TopHeading(body) != "" {
				body = stripTopHeading(body)
			}
			for _, p := range markdown.Paragraphs(body) {
				if strings.HasPrefix(p, "#") {
					b.WriteString(p)
					b.WriteString("\n\n")
					continue
				}
				if dedupe.seen(p) {
					continue
				}
				b.WriteString(p)
				b.WriteString("\n\n")
			}
		}
	}

	totalWords := 0
	for _, src := range sources {
		totalWords += markdown.WordCount(src.body)
	}
	b.WriteString("## Document Metadata\n\n")
	fmt.Fprintf(&b, "- **Sources**: %d\n", len(sources))
	fmt.Fprintf(&b, "- **Strategy**: %s\n", ComprehensiveMerge)
	fmt.Fprintf(&b, "- **Generated**: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Source words**: %d\n\n", totalWords)

	b.WriteString("## Appendices\n\n")
	b.WriteString("### Source Documents\n\n")
	for _, src := range sources {
		fmt.Fprintf(&b, "- **%s** (`%s`, %d words)\n",
			src.title, src.path, markdown.WordCount(src.body))
	}

	// Fixed sections plus one per content group.
	return b.String(), len(groups) + 4
}
