package match

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vijay-prabhu/cdlmatch/internal/config"
	"github.com/vijay-prabhu/cdlmatch/internal/database"
)

// Pipeline runs the full scoring flow for one (driver, job) pair: rules,
// then the optional semantic signal, then behavior, then fusion. The
// semantic scorer may be nil, in which case every pair scores degraded.
type Pipeline struct {
	rules    *RulesScorer
	semantic SemanticScorer
	behavior *BehaviorScorer
	fuser    *Fuser
	log      *zap.Logger

	concurrency int
}

// NewPipeline wires the scorers together. semantic may be nil.
func NewPipeline(cfg config.ScoringConfig, semantic SemanticScorer, concurrency int, log *zap.Logger) *Pipeline {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pipeline{
		rules:       NewRulesScorer(cfg.Rules),
		semantic:    semantic,
		behavior:    NewBehaviorScorer(cfg.Behavior.Bound),
		fuser:       NewFuser(cfg.Fusion),
		log:         log,
		concurrency: concurrency,
	}
}

// ScorePair scores one driver against one job. Scorer-level trouble never
// propagates past here: the semantic signal degrades, and only a pair with
// unusable identity data returns an error (ErrInvalidCandidate).
func (p *Pipeline) ScorePair(ctx context.Context, driver *database.DriverProfile, job *database.JobPosting, snapshot FeedbackSnapshot, role database.SubjectRole) (*database.MatchScore, error) {
	rulesResult, err := p.rules.Score(driver, job)
	if err != nil {
		return nil, err
	}

	var semanticResult *SemanticResult
	if p.semantic != nil {
		driverText := ""
		if driver.Notes != nil {
			driverText = *driver.Notes
		}
		semanticResult, err = p.semantic.Score(ctx, driverText, job.Description)
		if err != nil {
			if !errors.Is(err, ErrSignalUnavailable) {
				// Contract violation by the scorer; treat as unavailable anyway
				p.log.Warn("semantic scorer returned unexpected error",
					zap.String("driver_id", driver.ID),
					zap.String("job_id", job.ID),
					zap.Error(err))
			} else {
				p.log.Debug("semantic signal unavailable",
					zap.String("driver_id", driver.ID),
					zap.String("job_id", job.ID),
					zap.Error(err))
			}
			semanticResult = nil
		}
	}

	behaviorResult := p.behavior.Score(job, snapshot)
	fused := p.fuser.Fuse(rulesResult, semanticResult, behaviorResult)

	subjectID, objectID := driver.ID, job.ID
	if role == database.RoleCompany {
		subjectID, objectID = job.CompanyID, driver.ID
	}

	return &database.MatchScore{
		SubjectID:     subjectID,
		ObjectID:      objectID,
		Role:          role,
		OverallScore:  fused.OverallScore,
		RulesScore:    fused.RulesScore,
		SemanticScore: fused.SemanticScore,
		BehaviorScore: fused.BehaviorScore,
		Confidence:    fused.Confidence,
		TopReasons:    fused.TopReasons,
		Cautions:      fused.Cautions,
		Breakdown:     fused.Breakdown,
		MissingFields: fused.MissingFields,
		DegradedMode:  fused.DegradedMode,
		ComputedAt:    time.Now(),
	}, nil
}

// Pair is one scoring unit within a batch
type Pair struct {
	Driver   *database.DriverProfile
	Job      *database.JobPosting
	Snapshot FeedbackSnapshot
	Role     database.SubjectRole
}

// PairResult holds the outcome for one pair in a batch
type PairResult struct {
	Index int
	Score *database.MatchScore
	Err   error
}

// ScorePairs scores a batch concurrently. Pairs are independent, so they
// run in parallel under a semaphore; one bad pair surfaces in its own
// result and never aborts the batch.
func (p *Pipeline) ScorePairs(ctx context.Context, pairs []Pair) []PairResult {
	results := make([]PairResult, len(pairs))
	resultChan := make(chan PairResult, len(pairs))

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.concurrency)

	for i, pair := range pairs {
		wg.Add(1)
		go func(index int, pr Pair) {
			defer wg.Done()

			// Acquire semaphore
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				resultChan <- PairResult{Index: index, Err: ctx.Err()}
				return
			}

			score, err := p.ScorePair(ctx, pr.Driver, pr.Job, pr.Snapshot, pr.Role)
			resultChan <- PairResult{Index: index, Score: score, Err: err}
		}(i, pair)
	}

	// Close channel when all done
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	// Collect results
	for r := range resultChan {
		results[r.Index] = r
	}

	return results
}
