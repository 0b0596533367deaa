// Package consolidate merges several document folders into one consolidated
// document folder. Attachments from every source are carried into a single
// merged attachments directory under collision-free names, and every markdown
// reference to them is rewritten to match. References to files that do not
// exist are preserved verbatim.
package consolidate

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/docfolder"
	"github.com/starford/othala/internal/markdown"
)

// DefaultSimilarityThreshold is the word-overlap ratio past which two
// paragraphs are treated as near-duplicates by ComprehensiveMerge.
const DefaultSimilarityThreshold = 0.9

// DefaultTargetCategory is where consolidated folders are created unless
// configured otherwise.
const DefaultTargetCategory = "Consolidated"

// Options configure an Engine at construction time.
type Options struct {
	// DryRun switches every materializing call into a preview: all reads
	// happen, no writes do, and the merged content is still returned.
	DryRun bool
	// DefaultStrategy is the strategy tag used when a caller does not name
	// one. Empty means simple_merge.
	DefaultStrategy string
	// TargetCategory is the category the consolidated folder is created in.
	TargetCategory string
	// SimilarityThreshold tunes near-duplicate paragraph detection.
	SimilarityThreshold float64
}

// Engine merges document folders according to a strategy.
type Engine struct {
	mgr  *docfolder.Manager
	opts Options
}

// New creates an Engine over the given manager.
func New(mgr *docfolder.Manager, opts Options) *Engine {
	if opts.TargetCategory == "" {
		opts.TargetCategory = DefaultTargetCategory
	}
	if opts.SimilarityThreshold <= 0 || opts.SimilarityThreshold > 1 {
		opts.SimilarityThreshold = DefaultSimilarityThreshold
	}
	return &Engine{mgr: mgr, opts: opts}
}

// Metadata carries per-strategy structured info about a consolidation run.
type Metadata struct {
	TotalSections int       `json:"total_sections"`
	TotalWords    int       `json:"total_words"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// Result describes a single consolidation run. It is produced once per
// invocation and never persisted.
type Result struct {
	Success            bool     `json:"success"`
	Strategy           Strategy `json:"strategy"`
	ConsolidatedFolder string   `json:"consolidated_folder,omitempty"`
	MergedContent      string   `json:"merged_content"`
	SourceDocuments    []string `json:"source_documents"`
	SkippedSources     []string `json:"skipped_sources,omitempty"`
	ImagesMerged       int      `json:"images_merged"`
	Metadata           Metadata `json:"metadata"`
}

// source is one readable input document, resolved and rewritten.
type source struct {
	path   string // library-relative folder path
	name   string // folder name
	title  string
	body   string // content after image reference rewriting
	images []imageCopy
}

// imageCopy is one attachment scheduled for copying into the merged folder.
type imageCopy struct {
	fromRel string // library-relative path of the source file
	target  string // collision-free name in the merged images directory
}

// Consolidate merges the given document folders into one folder titled after
// topic. Unreadable sources are recorded in the result, not fatal; only an
// empty input list, a blank topic, or zero usable sources abort the run.
func (e *Engine) Consolidate(_ context.Context, folders []string, topic string, strategy Strategy) (*Result, error) {
	if len(folders) == 0 {
		return nil, fmt.Errorf("consolidate: %w: No document folders provided", apperr.ErrInvalidArgument)
	}
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("consolidate: %w: Invalid or missing topic", apperr.ErrInvalidArgument)
	}

	sources, skipped := e.collectSources(folders)
	if len(sources) == 0 {
		return nil, fmt.Errorf("consolidate: %w: No content could be extracted", apperr.ErrNoContent)
	}

	imagesMerged := e.planAttachments(sources)

	var body string
	var sections int
	switch strategy {
	case StructuredConsolidation:
		body, sections = renderStructured(topic, sources)
	case ComprehensiveMerge:
		body, sections = renderComprehensive(topic, sources, e.opts.SimilarityThreshold)
	default:
		strategy = SimpleMerge
		body, sections = renderSimple(topic, sources)
	}

	res := &Result{
		Success:         true,
		Strategy:        strategy,
		MergedContent:   body,
		SourceDocuments: sourcePaths(sources),
		SkippedSources:  skipped,
		ImagesMerged:    imagesMerged,
		Metadata: Metadata{
			TotalSections: sections,
			TotalWords:    markdown.WordCount(body),
			GeneratedAt:   time.Now(),
		},
	}

	if e.opts.DryRun {
		return res, nil
	}

	folder, err := e.mgr.CreateDocumentFolder(topic, e.opts.TargetCategory, body)
	if err != nil {
		return nil, err
	}
	if err := e.copyAttachments(folder, sources); err != nil {
		return nil, err
	}
	res.ConsolidatedFolder = folder
	return res, nil
}

// collectSources resolves every input path through the manager. A folder that
// cannot be resolved or read lands in skipped instead of failing the run.
func (e *Engine) collectSources(folders []string) ([]*source, []string) {
	var usable []*source
	var skipped []string
	for _, rel := range folders {
		content, err := e.mgr.DocumentContent(rel)
		if err != nil {
			skipped = append(skipped, rel)
			continue
		}
		doc := markdown.Parse([]byte(content))
		name := path.Base(rel)
		title := doc.Title
		if title == "" {
			title = markdown.HumanizeName(name)
		}
		usable = append(usable, &source{
			path:  rel,
			name:  name,
			title: title,
			body:  doc.Body,
		})
	}
	return usable, skipped
}

// copyAttachments materializes the attachment plan into the merged folder.
func (e *Engine) copyAttachments(folder string, sources []*source) error {
	if countImages(sources) == 0 {
		return nil
	}
	imagesDir, err := e.mgr.ImagesFolder(folder, true)
	if err != nil {
		return err
	}
	store := e.mgr.Store()
	for _, src := range sources {
		for _, img := range src.images {
			data, err := store.ReadFile(img.fromRel)
			if err != nil {
				return err
			}
			if err := store.WriteFile(path.Join(imagesDir, img.target), data); err != nil {
				return err
			}
		}
	}
	return nil
}

func countImages(sources []*source) int {
	n := 0
	for _, s := range sources {
		n += len(s.images)
	}
	return n
}

func sourcePaths(sources []*source) []string {
	out := make([]string, len(sources))
	for i, s := range sources {
		out[i] = s.path
	}
	return out
}
