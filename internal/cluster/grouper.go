package cluster

import (
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/record"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/similarity"
)

const DefaultGroupThreshold = 0.6

// DuplicateCandidate is a flagged pair kept for human review.
type DuplicateCandidate struct {
	LeftID  string            `json:"left_id"`
	RightID string            `json:"right_id"`
	Result  similarity.Result `json:"result"`
}

// Group is a set of near-duplicates with the one record that survives.
type Group struct {
	Members   []record.TextRecord `json:"members"`
	Indices   []int               `json:"indices"`
	Kept      record.TextRecord   `json:"kept"`
	KeptIndex int                 `json:"kept_index"`
	Removed   []record.TextRecord `json:"removed"`
}

type GroupOptions struct {
	Threshold float64
	// OnGroup is called once for every group with more than one member,
	// members in input order.
	OnGroup func(members []record.TextRecord)
}

type GroupResult struct {
	Groups     []Group
	Unique     []record.TextRecord
	Candidates []DuplicateCandidate
}

// Removed counts records dropped as duplicates.
func (r GroupResult) Removed() int {
	total := 0
	for _, g := range r.Groups {
		total += len(g.Removed)
	}
	return total
}

// GroupDuplicates collapses near-duplicates in a single greedy pass: each
// unprocessed record seeds a group and absorbs every later unprocessed
// record scoring above the threshold against it. Grouped records are
// never compared again.
func GroupDuplicates(records []record.TextRecord, scorer *similarity.Scorer, opts GroupOptions) GroupResult {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultGroupThreshold
	}

	prepared := prepareAll(records, scorer)
	processed := make([]bool, len(records))
	keptAt := make(map[int]bool, len(records))
	var result GroupResult

	for i := range records {
		if processed[i] {
			continue
		}
		processed[i] = true
		indices := []int{i}

		for j := i + 1; j < len(records); j++ {
			if processed[j] {
				continue
			}
			score := scorer.ScoreFeatures(prepared[i], prepared[j])
			if score.Overall <= threshold {
				continue
			}
			processed[j] = true
			indices = append(indices, j)
			result.Candidates = append(result.Candidates, DuplicateCandidate{
				LeftID:  records[i].ID,
				RightID: records[j].ID,
				Result:  score,
			})
		}

		if len(indices) == 1 {
			keptAt[i] = true
			continue
		}

		group := buildGroup(records, indices)
		keptAt[group.KeptIndex] = true
		result.Groups = append(result.Groups, group)
		if opts.OnGroup != nil {
			opts.OnGroup(group.Members)
		}
	}

	for i, rec := range records {
		if keptAt[i] {
			result.Unique = append(result.Unique, rec)
		}
	}
	return result
}

func buildGroup(records []record.TextRecord, indices []int) Group {
	group := Group{
		Members: make([]record.TextRecord, 0, len(indices)),
		Indices: indices,
	}
	best := indices[0]
	for _, idx := range indices {
		group.Members = append(group.Members, records[idx])
		// Strict comparison keeps the earliest index on ties.
		if records[idx].EngagementScore > records[best].EngagementScore {
			best = idx
		}
	}
	group.Kept = records[best]
	group.KeptIndex = best
	for _, idx := range indices {
		if idx != best {
			group.Removed = append(group.Removed, records[idx])
		}
	}
	return group
}

func prepareAll(records []record.TextRecord, scorer *similarity.Scorer) []*similarity.Features {
	prepared := make([]*similarity.Features, len(records))
	for i, rec := range records {
		prepared[i] = scorer.Prepare(rec)
	}
	return prepared
}
