// Package service is the caller-facing API over stored match rows. It
// enforces rollout gating, live job-status filtering, consent, and display
// caps; scoring itself happens in the recompute worker.
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vijay-prabhu/cdlmatch/internal/config"
	"github.com/vijay-prabhu/cdlmatch/internal/database"
	"github.com/vijay-prabhu/cdlmatch/internal/match"
	"github.com/vijay-prabhu/cdlmatch/internal/recompute"
	"github.com/vijay-prabhu/cdlmatch/internal/rollout"
)

// CandidateFilters narrows a company's candidate list
type CandidateFilters struct {
	MinScore int
	Limit    int
}

// Service answers match queries and accepts feedback
type Service struct {
	db      *database.DB
	rollout *rollout.Controller
	cfg     config.ScoringConfig
	log     *zap.Logger
}

// New creates a Service
func New(db *database.DB, rolloutCtrl *rollout.Controller, cfg config.ScoringConfig, log *zap.Logger) *Service {
	return &Service{db: db, rollout: rolloutCtrl, cfg: cfg, log: log}
}

// GetTopMatches returns a driver's best matches against currently Active
// jobs. A driver outside the rollout sees an empty list, not an error;
// hiding results must look identical to having none.
func (s *Service) GetTopMatches(ctx context.Context, driverID string, limit int) ([]database.MatchScore, error) {
	if !s.rollout.IsVisible(ctx, database.RoleDriver, driverID) {
		return nil, nil
	}

	matches, err := s.db.ListDriverMatchesForActiveJobs(ctx, driverID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	s.capAll(matches)
	return matches, nil
}

// GetAllMatchScores returns every stored row for a subject, gated by role
func (s *Service) GetAllMatchScores(ctx context.Context, subjectID string, role database.SubjectRole) ([]database.MatchScore, error) {
	if !s.rollout.IsVisible(ctx, role, subjectID) {
		return nil, nil
	}

	matches, err := s.db.ListMatchScores(ctx, subjectID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	s.capAll(matches)
	return matches, nil
}

// GetMatchScore returns one stored row, gated by the subject's role
func (s *Service) GetMatchScore(ctx context.Context, subjectID, objectID string, role database.SubjectRole) (*database.MatchScore, error) {
	if !s.rollout.IsVisible(ctx, role, subjectID) {
		return nil, nil
	}

	m, err := s.db.GetMatchScore(ctx, subjectID, objectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if m != nil {
		s.cap(m)
	}
	return m, nil
}

// GetCandidateMatches returns a company's candidate list. Only consenting
// drivers ever appear; the database join enforces that even against stale
// rows written before a consent withdrawal.
func (s *Service) GetCandidateMatches(ctx context.Context, companyID string, filters CandidateFilters) ([]database.MatchScore, error) {
	if !s.rollout.IsVisible(ctx, database.RoleCompany, companyID) {
		return nil, nil
	}

	matches, err := s.db.ListCompanyCandidateMatches(ctx, companyID, filters.MinScore, filters.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	s.capAll(matches)
	return matches, nil
}

// GetRolloutConfig returns the raw rollout row for operator inspection
func (s *Service) GetRolloutConfig(ctx context.Context) (*database.RolloutConfig, error) {
	return s.db.GetRolloutConfig(ctx)
}

// SubmitFeedback records a driver's verdict on a job and schedules that
// driver's rows for recompute. Feedback is accepted regardless of rollout
// state; shadow mode collects signal without showing scores.
func (s *Service) SubmitFeedback(ctx context.Context, driverID, jobID string, kind database.FeedbackKind) error {
	driver, err := s.db.GetDriverProfile(ctx, driverID)
	if err != nil {
		return fmt.Errorf("failed to look up driver: %w", err)
	}
	if driver == nil {
		return fmt.Errorf("driver %s not found", driverID)
	}
	job, err := s.db.GetJobPosting(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to look up job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("job %s not found", jobID)
	}

	if err := s.db.UpsertFeedback(ctx, &database.DriverFeedback{
		DriverID: driverID,
		JobID:    jobID,
		Kind:     kind,
	}); err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}

	return recompute.Enqueue(ctx, s.db, database.EntityDriverProfile, driverID, "feedback_"+string(kind), s.log)
}

// RecordJobAction records a save or apply event and schedules a recompute
func (s *Service) RecordJobAction(ctx context.Context, driverID, jobID string, action database.ActionKind) error {
	if err := s.db.RecordJobAction(ctx, &database.DriverJobAction{
		DriverID: driverID,
		JobID:    jobID,
		Action:   action,
	}); err != nil {
		return fmt.Errorf("failed to record action: %w", err)
	}
	return recompute.Enqueue(ctx, s.db, database.EntityDriverProfile, driverID, "action_"+string(action), s.log)
}

// EnqueueRecompute schedules a recompute for any entity
func (s *Service) EnqueueRecompute(ctx context.Context, entityType database.EntityType, entityID, reason string) error {
	if !database.ValidEntityType(string(entityType)) {
		return fmt.Errorf("unknown entity type %q", entityType)
	}
	return recompute.Enqueue(ctx, s.db, entityType, entityID, reason, s.log)
}

// cap applies the display caps to one row in place
func (s *Service) cap(m *database.MatchScore) {
	m.TopReasons = match.CapReasons(m.TopReasons, s.cfg.MaxReasons)
	m.Cautions = match.CapReasons(m.Cautions, s.cfg.MaxCautions)
}

func (s *Service) capAll(matches []database.MatchScore) {
	for i := range matches {
		s.cap(&matches[i])
	}
}
