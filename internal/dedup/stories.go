package dedup

import (
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/cluster"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/record"
)

// Stories clusters records by story without filtering or learning.
// Records without a title are left out.
func (p *Pipeline) Stories(records []record.TextRecord) []cluster.Story {
	valid := make([]record.TextRecord, 0, len(records))
	for _, rec := range records {
		if rec.Valid() {
			valid = append(valid, rec)
		}
	}
	return cluster.ClusterStories(valid, p.storyScorer, cluster.StoryOptions{
		MinSimilarity:    p.thresholds.StoryMin,
		ConsolidateAbove: p.thresholds.ConsolidateAbove,
	})
}
