package feedback

import (
	"fmt"
	"math"
	"time"
)

const (
	TrendInsufficient = "insufficient_data"
	TrendStable       = "stable"
	TrendRising       = "rising"
	TrendFalling      = "falling"
)

type QualityMetrics struct {
	Sessions        int       `json:"sessions"`
	TotalItems      int       `json:"total_items"`
	TotalDuplicates int       `json:"total_duplicates"`
	AverageRate     float64   `json:"average_rate"`
	RecentSessions  int       `json:"recent_sessions"`
	RecentRate      float64   `json:"recent_rate"`
	EarlierRate     float64   `json:"earlier_rate"`
	Trend           string    `json:"trend"`
	PatternsUsed    int       `json:"patterns_used"`
	LastSession     time.Time `json:"last_session,omitempty"`
}

// SuggestImprovements looks at the trailing window and suggests a threshold
// direction when the duplicate rate is out of the expected band.
func (r *Recorder) SuggestImprovements() []string {
	r.mu.RLock()
	recent := trailing(r.records, r.window)
	r.mu.RUnlock()

	if len(recent) == 0 {
		return nil
	}
	items, dups := totals(recent)
	if items == 0 {
		return nil
	}

	rate := float64(dups) / float64(items)
	switch {
	case rate < lowRateCeiling:
		return []string{fmt.Sprintf(
			"duplicate rate %.1f%% over the last %d sessions is below %.0f%%; consider lowering the similarity threshold",
			rate*100, len(recent), lowRateCeiling*100,
		)}
	case rate > highRateFloor:
		return []string{fmt.Sprintf(
			"duplicate rate %.1f%% over the last %d sessions is above %.0f%%; consider raising the similarity threshold",
			rate*100, len(recent), highRateFloor*100,
		)}
	default:
		return nil
	}
}

// GetQualityMetrics summarizes the whole log and compares the trailing
// window with the sessions before it.
func (r *Recorder) GetQualityMetrics() QualityMetrics {
	r.mu.RLock()
	records := append([]Record(nil), r.records...)
	window := r.window
	r.mu.RUnlock()

	metrics := QualityMetrics{Sessions: len(records), Trend: TrendInsufficient}
	if len(records) == 0 {
		return metrics
	}

	metrics.TotalItems, metrics.TotalDuplicates = totals(records)
	metrics.AverageRate = rate(metrics.TotalItems, metrics.TotalDuplicates)
	last := records[len(records)-1]
	metrics.PatternsUsed = last.PatternsUsed
	metrics.LastSession = last.Timestamp

	recent := trailing(records, window)
	metrics.RecentSessions = len(recent)
	metrics.RecentRate = rate(totals(recent))

	earlier := records[:len(records)-len(recent)]
	if len(earlier) == 0 {
		return metrics
	}
	metrics.EarlierRate = rate(totals(earlier))

	delta := metrics.RecentRate - metrics.EarlierRate
	switch {
	case math.Abs(delta) < stableRateDelta:
		metrics.Trend = TrendStable
	case delta > 0:
		metrics.Trend = TrendRising
	default:
		metrics.Trend = TrendFalling
	}
	return metrics
}

func trailing(records []Record, n int) []Record {
	if n <= 0 || len(records) <= n {
		return records
	}
	return records[len(records)-n:]
}

func totals(records []Record) (items, duplicates int) {
	for _, rec := range records {
		items += rec.ItemsProcessed
		duplicates += rec.DuplicatesFound
	}
	return items, duplicates
}

func rate(items, duplicates int) float64 {
	if items <= 0 {
		return 0
	}
	return float64(duplicates) / float64(items)
}
