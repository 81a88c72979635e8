package cluster

import (
	"sort"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/record"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/similarity"
)

// FindDuplicatePairs scores every pair and returns those above
// threshold, highest score first. Unlike GroupDuplicates it never excludes a
// record, so a report shows every overlap.
func FindDuplicatePairs(records []record.TextRecord, scorer *similarity.Scorer, threshold float64) []DuplicateCandidate {
	prepared := prepareAll(records, scorer)

	var pairs []DuplicateCandidate
	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			score := scorer.ScoreFeatures(prepared[i], prepared[j])
			if score.Overall <= threshold {
				continue
			}
			pairs = append(pairs, DuplicateCandidate{
				LeftID:  records[i].ID,
				RightID: records[j].ID,
				Result:  score,
			})
		}
	}

	sort.SliceStable(pairs, func(a, b int) bool {
		return pairs[a].Result.Overall > pairs[b].Result.Overall
	})
	return pairs
}
