package consolidate

// Strategy selects the content transform used to merge source documents.
// The set is closed; unknown tags are rejected only at the boundary by
// ParseStrategy, which falls back to the default rather than failing.
type Strategy string

const (
	// SimpleMerge emits every source verbatim under its own heading.
	SimpleMerge Strategy = "simple_merge"
	// StructuredConsolidation groups sources under shared sub-headings.
	StructuredConsolidation Strategy = "structured_consolidation"
	// ComprehensiveMerge adds summary, metadata, and appendix sections and
	// deduplicates overlapping paragraphs.
	ComprehensiveMerge Strategy = "comprehensive_merge"
)

// ParseStrategy maps a strategy tag to its Strategy. Unrecognized tags fall
// back to SimpleMerge.
func ParseStrategy(s string) Strategy {
	switch Strategy(s) {
	case SimpleMerge, StructuredConsolidation, ComprehensiveMerge:
		return Strategy(s)
	default:
		return SimpleMerge
	}
}
