package rules

import (
	"slices"

	"github.com/voyagen/streamplus/internal/models"
)

// ConditionScore records one condition's contribution to a stream's total.
type ConditionScore struct {
	Type     string `json:"condition_type"`
	Operator string `json:"operator,omitempty"`
	Value    any    `json:"value"`
	Points   int    `json:"points"`
}

// ScoredStream pairs a stream with its computed score and breakdown.
type ScoredStream struct {
	Stream    models.Stream    `json:"stream"`
	Score     int              `json:"score"`
	Breakdown []ConditionScore `json:"score_breakdown,omitempty"`
	NoStats   bool             `json:"no_stats,omitempty"`
}

// Score sums the points of every matching condition. NoStats outcomes
// contribute zero, never negative; the total is additive and independent
// of condition order.
func Score(stream *models.Stream, conditions []models.Condition) (int, []ConditionScore) {
	total := 0
	var breakdown []ConditionScore
	for _, cond := range conditions {
		if Evaluate(stream, cond) != OutcomeMatch {
			continue
		}
		total += cond.Points
		breakdown = append(breakdown, ConditionScore{
			Type:     cond.Type,
			Operator: cond.Operator,
			Value:    cond.Value,
			Points:   cond.Points,
		})
	}
	return total, breakdown
}

// Rank scores every stream and returns them highest score first.
// Ties break by ascending stream id for reproducibility.
func Rank(streams []models.Stream, conditions []models.Condition) []ScoredStream {
	scored := make([]ScoredStream, 0, len(streams))
	for i := range streams {
		total, breakdown := Score(&streams[i], conditions)
		scored = append(scored, ScoredStream{
			Stream:    streams[i],
			Score:     total,
			Breakdown: breakdown,
			NoStats:   streams[i].Stats == nil,
		})
	}
	slices.SortFunc(scored, func(a, b ScoredStream) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		switch {
		case a.Stream.ID < b.Stream.ID:
			return -1
		case a.Stream.ID > b.Stream.ID:
			return 1
		}
		return 0
	})
	return scored
}

// ScoreDistribution counts streams per score value, for preview display.
func ScoreDistribution(scored []ScoredStream) map[int]int {
	dist := make(map[int]int)
	for _, s := range scored {
		dist[s.Score]++
	}
	return dist
}
