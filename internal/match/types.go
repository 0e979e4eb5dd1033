// Package match implements the driver/job compatibility pipeline: a
// deterministic rules scorer, an optional semantic similarity signal, a
// per-driver behavior signal, and the fusion step that combines them into
// a persisted match score with human-readable explanations.
package match

import (
	"errors"

	"github.com/vijay-prabhu/cdlmatch/internal/database"
)

// ErrInvalidCandidate means a driver or job record is malformed beyond
// recoverable defaults. The pair is skipped, never the whole batch.
var ErrInvalidCandidate = errors.New("invalid candidate record")

// ErrSignalUnavailable means the semantic signal could not be produced
// (timeout, external dependency error, empty input). Callers treat this as
// a first-class outcome: the pair is scored in degraded mode.
var ErrSignalUnavailable = errors.New("semantic signal unavailable")

// Category identifies one rule category. Declaration order is the
// tie-break order for explanations.
type Category string

const (
	CategoryDriverType  Category = "driver_type"
	CategoryRouteType   Category = "route_type"
	CategoryLocation    Category = "location"
	CategoryExperience  Category = "experience"
	CategoryTeamDriving Category = "team_driving"
)

// categoryOrder fixes the declaration order used for tie-breaking
var categoryOrder = []Category{
	CategoryDriverType,
	CategoryRouteType,
	CategoryLocation,
	CategoryExperience,
	CategoryTeamDriving,
}

// CategoryRank returns a category's position in declaration order
func CategoryRank(c Category) int {
	for i, cat := range categoryOrder {
		if cat == c {
			return i
		}
	}
	return len(categoryOrder)
}

// RulesResult is the rules scorer's output for one pair
type RulesResult struct {
	Points        int                      // earned points across categories
	MaxPoints     int                      // sum of category weights
	Score         int                      // Points normalized to 0-100
	Items         []database.BreakdownItem // one per category, declaration order
	MissingFields []string                 // driver attributes that fell back to neutral
}

// SemanticResult is the semantic scorer's output for one pair
type SemanticResult struct {
	Score   int      // 0-100 similarity
	Phrases []string // supporting phrases, may be empty
}

// BehaviorResult is the behavior scorer's output for one pair
type BehaviorResult struct {
	Score           int // 0-100, neutral 50, clamped to the configured bound
	Nudge           int // Score - 50; positive pulls toward, negative away
	PositiveSignals int // saved/applied/helpful jobs that resembled this one
	NegativeSignals int // hidden/not-relevant jobs that resembled this one
}

// FeedbackSnapshot is a driver's interaction history at scoring time. The
// behavior scorer is idempotent given the same snapshot, and a snapshot
// only ever contains the scored driver's own history.
type FeedbackSnapshot struct {
	// Liked holds jobs the driver saved, applied to, or marked helpful.
	Liked []database.JobPosting
	// Disliked holds jobs the driver marked not_relevant.
	Disliked []database.JobPosting
	// Hidden holds jobs the driver hid. Weighted strongest.
	Hidden []database.JobPosting
}

// Empty reports whether the snapshot carries no signal at all
func (s FeedbackSnapshot) Empty() bool {
	return len(s.Liked) == 0 && len(s.Disliked) == 0 && len(s.Hidden) == 0
}

// Confidence labels
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// FusedScore is the fusion engine's complete output. Reason and caution
// lists are full and ordered; display caps are applied by callers.
type FusedScore struct {
	OverallScore  int
	RulesScore    int
	SemanticScore *int
	BehaviorScore int
	Confidence    string
	DegradedMode  bool
	TopReasons    []database.Reason
	Cautions      []database.Reason
	Breakdown     []database.BreakdownItem
	MissingFields []string
}
