package cluster

import (
	"sort"

	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/record"
	"github.com/Hardcoreprawn/tech-content-curator-sub000/internal/similarity"
)

const (
	DefaultStoryMinSimilarity = 0.5
	DefaultConsolidateAbove   = 0.6
)

// Story is a cluster of records covering the same underlying event. The
// representative is the highest-engagement member and the only one new
// records are compared against.
type Story struct {
	Representative    record.TextRecord   `json:"representative"`
	Members           []record.TextRecord `json:"members"`
	BestScore         float64             `json:"best_score"`
	ShouldConsolidate bool                `json:"should_consolidate"`
}

type StoryOptions struct {
	MinSimilarity    float64
	ConsolidateAbove float64
}

func (o StoryOptions) withDefaults() StoryOptions {
	if o.MinSimilarity <= 0 {
		o.MinSimilarity = DefaultStoryMinSimilarity
	}
	if o.ConsolidateAbove <= 0 {
		o.ConsolidateAbove = DefaultConsolidateAbove
	}
	return o
}

type storyState struct {
	story          Story
	representative *similarity.Features
}

// ClusterStories groups records by story. Records are visited in descending
// engagement order (stable for ties) and each one joins the cluster whose
// representative it scores highest against, provided that score reaches
// MinSimilarity. The earliest cluster wins an exact tie.
func ClusterStories(records []record.TextRecord, scorer *similarity.Scorer, opts StoryOptions) []Story {
	opts = opts.withDefaults()
	if len(records) == 0 {
		return nil
	}

	order := make([]int, len(records))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return records[order[a]].EngagementScore > records[order[b]].EngagementScore
	})

	var clusters []*storyState
	for _, idx := range order {
		candidate := scorer.Prepare(records[idx])

		bestCluster := -1
		bestScore := 0.0
		for c, state := range clusters {
			score := scorer.ScoreFeatures(state.representative, candidate).Overall
			if score < opts.MinSimilarity {
				continue
			}
			if bestCluster == -1 || score > bestScore {
				bestCluster = c
				bestScore = score
			}
		}

		if bestCluster == -1 {
			clusters = append(clusters, &storyState{
				story: Story{
					Representative: records[idx],
					Members:        []record.TextRecord{records[idx]},
				},
				representative: candidate,
			})
			continue
		}

		state := clusters[bestCluster]
		state.story.Members = append(state.story.Members, records[idx])
		if bestScore > state.story.BestScore {
			state.story.BestScore = bestScore
		}
	}

	stories := make([]Story, 0, len(clusters))
	for _, state := range clusters {
		story := state.story
		story.ShouldConsolidate = len(story.Members) > 1 && story.BestScore > opts.ConsolidateAbove
		stories = append(stories, story)
	}
	return stories
}
