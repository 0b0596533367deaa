package consolidate

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/othala/internal/markdown"
)

// renderSimple emits a topic header, a table of contents, each source's full
// content verbatim under its own heading, and a closing metadata section.
// Nothing is removed or rewritten beyond the attachment references handled
// earlier in the pipeline.
func renderSimple(topic string, sources []*source) (string, int) {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", topic)
	fmt.Fprintf(&b, "Consolidated from %d source documents.\n\n", len(sources))

	b.WriteString("## Table of Contents\n\n")
	for i, src := range sources {
		fmt.Fprintf(&b, "%d. [%s](#%s)\n", i+1, src.title, markdown.Anchor(src.title))
	}
	b.WriteString("\n")

	totalWords := 0
	for _, src := range sources {
		fmt.Fprintf(&b, "## %s\n\n", src.title)
		b.WriteString(strings.TrimRight(src.body, "\n"))
		b.WriteString("\n\n")
		totalWords += markdown.WordCount(src.body)
	}

	b.WriteString("## Document Information\n\n")
	fmt.Fprintf(&b, "- **Sources**: %d\n", len(sources))
	fmt.Fprintf(&b, "- **Strategy**: %s\n", SimpleMerge)
	fmt.Fprintf(&b, "- **Generated**: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Source words**: %d\n", totalWords)

	return b.String(), len(sources)
}
