package match

import (
	"math"

	"github.com/vijay-prabhu/cdlmatch/internal/database"
)

// Signal strengths per feedback kind. Hides push harder than not_relevant
// because the driver took an explicit removal action.
const (
	likedWeight    = 1.0
	dislikeWeight  = 0.7
	hiddenWeight   = 1.3
)

// BehaviorScorer nudges a pair's score toward jobs resembling ones the
// driver saved, applied to, or marked helpful, and away from jobs
// resembling ones the driver dismissed. It only ever sees the scored
// driver's own history, and its contribution is clamped to a fixed bound
// so it cannot dominate the rules signal.
type BehaviorScorer struct {
	bound int
}

// NewBehaviorScorer creates a BehaviorScorer with the given contribution
// bound (points on the 0-100 scale, applied in both directions)
func NewBehaviorScorer(bound int) *BehaviorScorer {
	return &BehaviorScorer{bound: bound}
}

// Score evaluates one candidate job against a driver's feedback snapshot.
// Pure and idempotent: the same snapshot and job always produce the same
// result.
func (s *BehaviorScorer) Score(job *database.JobPosting, snapshot FeedbackSnapshot) *BehaviorResult {
	result := &BehaviorResult{Score: 50}
	if job == nil || snapshot.Empty() {
		return result
	}

	var pull, push float64

	for i := range snapshot.Liked {
		if sim := jobSimilarity(job, &snapshot.Liked[i]); sim > 0 {
			pull += sim * likedWeight
			result.PositiveSignals++
		}
	}
	for i := range snapshot.Disliked {
		if sim := jobSimilarity(job, &snapshot.Disliked[i]); sim > 0 {
			push += sim * dislikeWeight
			result.NegativeSignals++
		}
	}
	for i := range snapshot.Hidden {
		if sim := jobSimilarity(job, &snapshot.Hidden[i]); sim > 0 {
			push += sim * hiddenWeight
			result.NegativeSignals++
		}
	}

	// Average the per-signal contributions so a long history doesn't
	// saturate the bound, then scale to points.
	total := float64(result.PositiveSignals + result.NegativeSignals)
	if total == 0 {
		return result
	}
	nudge := (pull - push) / total * float64(s.bound)

	result.Nudge = clampInt(int(math.Round(nudge)), -s.bound, s.bound)
	result.Score = 50 + result.Nudge
	return result
}

// jobSimilarity measures attribute overlap between two postings on the
// axes feedback generalizes across: freight, route, and driver type.
// Returns a value in [0, 1].
func jobSimilarity(a, b *database.JobPosting) float64 {
	var matched, compared int

	if a.FreightType != "" && b.FreightType != "" {
		compared++
		if a.FreightType == b.FreightType {
			matched++
		}
	}
	if a.RouteType != "" && b.RouteType != "" {
		compared++
		if a.RouteType == b.RouteType {
			matched++
		}
	}
	if a.DriverType != "" && b.DriverType != "" {
		compared++
		if a.DriverType == b.DriverType {
			matched++
		}
	}

	if compared == 0 {
		return 0
	}
	return float64(matched) / float64(compared)
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
