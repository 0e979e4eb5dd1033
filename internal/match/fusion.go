package match

import (
	"math"
	"sort"

	"github.com/vijay-prabhu/cdlmatch/internal/config"
	"github.com/vijay-prabhu/cdlmatch/internal/database"
)

// Fuser combines the rules, semantic, and behavior sub-scores into one
// overall score with a confidence label and ranked explanations. Fuse is a
// pure function of its inputs so it stays independently testable.
type Fuser struct {
	cfg config.FusionConfig
}

// NewFuser creates a Fuser with the given weights and thresholds
func NewFuser(cfg config.FusionConfig) *Fuser {
	return &Fuser{cfg: cfg}
}

// factor is one contributing explanation candidate
type factor struct {
	text         string
	contribution float64
	rank         int // declaration order, for tie-breaking
}

// Fuse combines available sub-scores. The semantic result may be nil;
// degraded mode means exactly that.
func (f *Fuser) Fuse(rules *RulesResult, semantic *SemanticResult, behavior *BehaviorResult) *FusedScore {
	out := &FusedScore{
		RulesScore:    rules.Score,
		BehaviorScore: behavior.Score,
		Breakdown:     rules.Items,
		MissingFields: rules.MissingFields,
		DegradedMode:  semantic == nil,
	}

	// Weighted sum over available components. When the semantic signal is
	// absent its weight is redistributed proportionally across the rest,
	// keeping overall scores comparable between degraded and full-signal
	// results.
	weightSum := f.cfg.RulesWeight + f.cfg.BehaviorWeight
	weighted := f.cfg.RulesWeight*float64(rules.Score) + f.cfg.BehaviorWeight*float64(behavior.Score)
	if semantic != nil {
		s := semantic.Score
		out.SemanticScore = &s
		weightSum += f.cfg.SemanticWeight
		weighted += f.cfg.SemanticWeight * float64(s)
	}
	if weightSum > 0 {
		out.OverallScore = clampInt(int(math.Round(weighted/weightSum)), 0, 100)
	}

	out.Confidence = f.confidence(rules, semantic, behavior)
	out.TopReasons, out.Cautions = f.explain(rules, behavior)
	return out
}

// confidence labels how much the signals agree. Degraded results and
// materially disagreeing signals are low; a strong rules score with all
// signals present is high.
func (f *Fuser) confidence(rules *RulesResult, semantic *SemanticResult, behavior *BehaviorResult) string {
	disagree := abs(rules.Score-behavior.Score) > f.cfg.DisagreementBand
	switch {
	case semantic == nil || disagree:
		return ConfidenceLow
	case rules.Score >= f.cfg.HighRulesThreshold:
		return ConfidenceHigh
	default:
		return ConfidenceMedium
	}
}

// explain ranks rule and behavior factors by weighted contribution.
// Contribution is measured against the category's neutral point so that a
// merely-unknown attribute generates neither a reason nor a caution. Ties
// break by declaration order of the rule table; the behavior factor ranks
// after every rule category.
func (f *Fuser) explain(rules *RulesResult, behavior *BehaviorResult) ([]database.Reason, []database.Reason) {
	var positives, negatives []factor

	for _, item := range rules.Items {
		contribution := float64(item.Score) - neutralFraction*float64(item.MaxScore)
		fc := factor{
			text:         item.Detail,
			contribution: contribution,
			rank:         CategoryRank(Category(item.Category)),
		}
		switch {
		case contribution > 0:
			positives = append(positives, fc)
		case contribution < 0:
			negatives = append(negatives, fc)
		}
	}

	behaviorRank := len(categoryOrder)
	if behavior.Nudge > 0 {
		positives = append(positives, factor{
			text:         "Similar to jobs you saved or applied to",
			contribution: float64(behavior.Nudge),
			rank:         behaviorRank,
		})
	} else if behavior.Nudge < 0 {
		negatives = append(negatives, factor{
			text:         "Similar to jobs you dismissed",
			contribution: float64(behavior.Nudge),
			rank:         behaviorRank,
		})
	}

	sortFactors(positives)
	// Cautions rank by magnitude of the negative contribution
	for i := range negatives {
		negatives[i].contribution = -negatives[i].contribution
	}
	sortFactors(negatives)

	return toReasons(positives, true), toReasons(negatives, false)
}

// sortFactors orders by descending contribution, declaration order on ties
func sortFactors(factors []factor) {
	sort.SliceStable(factors, func(i, j int) bool {
		if factors[i].contribution != factors[j].contribution {
			return factors[i].contribution > factors[j].contribution
		}
		return factors[i].rank < factors[j].rank
	})
}

func toReasons(factors []factor, positive bool) []database.Reason {
	reasons := make([]database.Reason, 0, len(factors))
	for _, f := range factors {
		reasons = append(reasons, database.Reason{Text: f.text, Positive: positive})
	}
	return reasons
}

// CapReasons truncates a reason list for display. The engine always
// computes the full ordered list; callers cap at the UI boundary.
func CapReasons(reasons []database.Reason, max int) []database.Reason {
	if max < 0 || len(reasons) <= max {
		return reasons
	}
	return reasons[:max]
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
