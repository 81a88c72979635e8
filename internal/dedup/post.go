package dedup

import (
	"context"
	"fmt"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/cluster"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/feedback"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/patterns"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/reader"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/record"
)

type PostResult struct {
	Kept        []record.TextRecord          `json:"kept"`
	KeptIndices []int                        `json:"kept_indices"`
	Groups      []cluster.Group              `json:"groups"`
	Candidates  []cluster.DuplicateCandidate `json:"candidates"`
	Review      []cluster.DuplicateCandidate `json:"review"`
	Skipped     int                          `json:"skipped"`
	Merge       patterns.MergeStats          `json:"merge"`
	Feedback    *feedback.Record             `json:"feedback,omitempty"`
}

type cleanedDocument struct {
	title string
	body  string
	tags  []string
}

func (d cleanedDocument) Title() string  { return d.title }
func (d cleanedDocument) Body() string   { return d.body }
func (d cleanedDocument) Tags() []string { return d.tags }

// PostGeneration reviews generated articles. Bodies are reduced to readable
// text first; pairs where both sides have a body are scored with the
// content profile, the rest with the metadata-only profile. Review lists
// every pair at or above the threshold, not only the seed comparisons the
// greedy grouping made.
func (p *Pipeline) PostGeneration(ctx context.Context, docs []record.Document) (PostResult, error) {
	var result PostResult
	if err := ctx.Err(); err != nil {
		return result, err
	}

	records := make([]record.TextRecord, 0, len(docs))
	positions := make([]int, 0, len(docs))
	for i, doc := range docs {
		if doc == nil {
			result.Skipped++
			continue
		}
		cleaned := cleanedDocument{
			title: doc.Title(),
			body:  reader.NormalizeBody(doc.Body(), doc.Title()),
			tags:  doc.Tags(),
		}
		rec := record.FromDocument(fmt.Sprintf("doc-%d", i), cleaned)
		if !rec.Valid() {
			result.Skipped++
			p.logger.Warn().Int("position", i).Msg("generated document has no title, skipping")
			continue
		}
		records = append(records, rec)
		positions = append(positions, i)
	}

	var acc *patterns.Accumulator
	opts := cluster.GroupOptions{Threshold: p.thresholds.PostGeneration}
	if p.learner != nil {
		acc = p.learner.Snapshot().NewAccumulator()
		opts.OnGroup = func(members []record.TextRecord) {
			acc.Observe(members)
		}
	}

	grouped := cluster.GroupDuplicates(records, p.postScorer, opts)
	result.Groups = grouped.Groups
	result.Candidates = grouped.Candidates
	result.Review = cluster.FindDuplicatePairs(records, p.postScorer, p.thresholds.PostGeneration)

	removed := make([]bool, len(records))
	for _, group := range grouped.Groups {
		for _, idx := range group.Indices {
			if idx != group.KeptIndex {
				removed[idx] = true
			}
		}
	}
	for i, rec := range records {
		if !removed[i] {
			result.Kept = append(result.Kept, rec)
			result.KeptIndices = append(result.KeptIndices, positions[i])
		}
	}

	if acc != nil {
		if delta := acc.Delta(); !delta.Empty() {
			stats, err := p.learner.Merge(ctx, delta)
			result.Merge = stats
			if err != nil {
				p.logger.Warn().Err(err).Msg("learned patterns not persisted for this run")
			}
		}
	}

	result.Feedback = p.recordSession(ctx, feedback.Session{
		Stage:  StagePostGeneration,
		Before: len(records),
		After:  len(result.Kept),
		Groups: result.Groups,
	})

	p.logger.Info().
		Int("documents", len(docs)).
		Int("skipped", result.Skipped).
		Int("groups", len(result.Groups)).
		Int("kept", len(result.Kept)).
		Int("review_pairs", len(result.Review)).
		Msg("post-generation dedup complete")
	return result, nil
}
