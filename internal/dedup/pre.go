package dedup

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/cluster"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/feedback"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/patterns"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/record"
)

const singleBucket = "all"

type PreResult struct {
	Accepted   []record.TextRecord          `json:"accepted"`
	Stories    []cluster.Story              `json:"stories"`
	Groups     []cluster.Group              `json:"groups"`
	Candidates []cluster.DuplicateCandidate `json:"candidates"`
	Rejected   []Rejection                  `json:"rejected"`
	Skipped    int                          `json:"skipped"`
	Buckets    map[string]int               `json:"buckets"`
	Merge      patterns.MergeStats          `json:"merge"`
	Feedback   *feedback.Record             `json:"feedback,omitempty"`
}

type bucket struct {
	key     string
	indices []int
	records []record.TextRecord
}

type bucketResult struct {
	groups cluster.GroupResult
	delta  patterns.Delta
}

// PreGeneration filters a candidate batch before any generation work is
// spent on it. Grouping runs per language bucket on a bounded worker pool;
// each worker learns into its own accumulator and the learned deltas are
// merged once after all workers finish. When ctx is cancelled no further
// buckets are started and the error is returned once running ones finish.
func (p *Pipeline) PreGeneration(ctx context.Context, records []record.TextRecord) (PreResult, error) {
	result := PreResult{Buckets: map[string]int{}}

	var snapshot *patterns.Snapshot
	if p.learner != nil {
		snap := p.learner.Snapshot()
		snapshot = &snap
	}

	survivors := make([]record.TextRecord, 0, len(records))
	for i, rec := range records {
		if !rec.Valid() {
			result.Skipped++
			p.logger.Warn().Int("position", i).Str("id", rec.ID).Msg("record has no title, skipping")
			continue
		}

		var checker patternChecker
		if snapshot != nil {
			checker = snapshot
		}
		if check := p.check(checker, rec); check.Duplicate {
			result.Rejected = append(result.Rejected, Rejection{
				Record:  rec,
				Reason:  check.Reason,
				Pattern: check.Pattern,
				Recency: check.Recency,
			})
			continue
		}
		survivors = append(survivors, rec)
	}

	buckets := p.bucketize(survivors)
	outcomes, err := p.groupBuckets(ctx, buckets, snapshot)
	if err != nil {
		return result, err
	}

	removed := make([]bool, len(survivors))
	var deltas []patterns.Delta
	for i, b := range buckets {
		result.Buckets[b.key] = len(b.records)
		outcome := outcomes[i]
		for _, group := range outcome.groups.Groups {
			for _, local := range group.Indices {
				if local != group.KeptIndex {
					removed[b.indices[local]] = true
				}
			}
			result.Groups = append(result.Groups, group)
		}
		result.Candidates = append(result.Candidates, outcome.groups.Candidates...)
		if !outcome.delta.Empty() {
			deltas = append(deltas, outcome.delta)
		}
	}

	for i, rec := range survivors {
		if !removed[i] {
			result.Accepted = append(result.Accepted, rec)
		}
	}

	if p.learner != nil && len(deltas) > 0 {
		stats, err := p.learner.Merge(ctx, deltas...)
		result.Merge = stats
		if err != nil {
			p.logger.Warn().Err(err).Msg("learned patterns not persisted for this run")
		}
	}

	result.Stories = cluster.ClusterStories(result.Accepted, p.storyScorer, cluster.StoryOptions{
		MinSimilarity:    p.thresholds.StoryMin,
		ConsolidateAbove: p.thresholds.ConsolidateAbove,
	})

	result.Feedback = p.recordSession(ctx, feedback.Session{
		Stage:  StagePreGeneration,
		Before: len(records) - result.Skipped,
		After:  len(result.Accepted),
		Groups: result.Groups,
	})

	p.logger.Info().
		Int("input", len(records)).
		Int("skipped", result.Skipped).
		Int("rejected", len(result.Rejected)).
		Int("groups", len(result.Groups)).
		Int("accepted", len(result.Accepted)).
		Int("stories", len(result.Stories)).
		Int("buckets", len(buckets)).
		Msg("pre-generation dedup complete")
	return result, nil
}

// bucketize splits records by language, keeping first-seen bucket order and
// input order inside each bucket.
func (p *Pipeline) bucketize(records []record.TextRecord) []bucket {
	var buckets []bucket
	position := map[string]int{}
	for i, rec := range records {
		key := singleBucket
		if p.detector != nil {
			key = p.detector.Bucket(rec)
		}
		idx, ok := position[key]
		if !ok {
			idx = len(buckets)
			position[key] = idx
			buckets = append(buckets, bucket{key: key})
		}
		buckets[idx].indices = append(buckets[idx].indices, i)
		buckets[idx].records = append(buckets[idx].records, rec)
	}
	return buckets
}

func (p *Pipeline) groupBuckets(ctx context.Context, buckets []bucket, snapshot *patterns.Snapshot) ([]bucketResult, error) {
	outcomes := make([]bucketResult, len(buckets))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i := range buckets {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			var acc *patterns.Accumulator
			opts := cluster.GroupOptions{Threshold: p.thresholds.Group}
			if snapshot != nil {
				acc = snapshot.NewAccumulator()
				opts.OnGroup = func(members []record.TextRecord) {
					acc.Observe(members)
				}
			}

			outcomes[i].groups = cluster.GroupDuplicates(buckets[i].records, p.groupScorer, opts)
			if acc != nil {
				outcomes[i].delta = acc.Delta()
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pre-generation grouping interrupted: %w", err)
	}
	return outcomes, nil
}

func (p *Pipeline) recordSession(ctx context.Context, session feedback.Session) *feedback.Record {
	if p.feedback == nil {
		return nil
	}
	rec, err := p.feedback.RecordSession(ctx, session, p.patternCount())
	if err != nil {
		p.logger.Warn().Err(err).Str("stage", session.Stage).Msg("feedback session not persisted")
	}
	if rec.ID == "" {
		return nil
	}
	return &rec
}
