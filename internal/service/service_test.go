package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vijay-prabhu/cdlmatch/internal/config"
	"github.com/vijay-prabhu/cdlmatch/internal/database"
	"github.com/vijay-prabhu/cdlmatch/internal/match"
	"github.com/vijay-prabhu/cdlmatch/internal/recompute"
	"github.com/vijay-prabhu/cdlmatch/internal/rollout"
)

func setupTestDB(t *testing.T) (*database.DB, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "cdlmatch-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	db, err := database.Open(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("failed to open database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.RemoveAll(tmpDir)
	}
	return db, cleanup
}

// setupService builds a service over a fresh database with rollout fully
// open, so gating tests flip flags from there
func setupService(t *testing.T) (*Service, *database.DB, func()) {
	t.Helper()
	db, cleanup := setupTestDB(t)

	if err := db.UpdateRolloutConfig(context.Background(), &database.RolloutConfig{
		DriverUIEnabled:  true,
		CompanyUIEnabled: true,
	}); err != nil {
		cleanup()
		t.Fatalf("failed to open rollout: %v", err)
	}

	ctrl := rollout.NewController(db, time.Minute, zap.NewNop())
	svc := New(db, ctrl, config.Default().Scoring, zap.NewNop())
	return svc, db, cleanup
}

func seedDriver(t *testing.T, db *database.DB, id string, consent bool) {
	t.Helper()
	dt, rt := "owner_operator", "otr"
	if err := db.CreateDriverProfile(context.Background(), &database.DriverProfile{
		ID: id, Name: "Driver " + id, CDLClass: "A", ExperienceYears: 5,
		LicenseState: "TX", DriverType: &dt, RouteType: &rt, ContactConsent: consent,
	}); err != nil {
		t.Fatalf("failed to create driver: %v", err)
	}
}

func seedJob(t *testing.T, db *database.DB, id, companyID string, status database.JobStatus) {
	t.Helper()
	state := "TX"
	if err := db.CreateJobPosting(context.Background(), &database.JobPosting{
		ID: id, CompanyID: companyID, Title: "OTR Driver", Description: "Dry van",
		FreightType: "dry_van", DriverType: "owner_operator", RouteType: "otr",
		TeamDriving: "solo", State: &state, Status: status,
	}); err != nil {
		t.Fatalf("failed to create job: %v", err)
	}
}

func seedMatch(t *testing.T, db *database.DB, subjectID, objectID string, role database.SubjectRole, score int) {
	t.Helper()
	if err := db.UpsertMatchScore(context.Background(), &database.MatchScore{
		SubjectID: subjectID, ObjectID: objectID, Role: role,
		OverallScore: score, RulesScore: score, BehaviorScore: 50,
		Confidence: match.ConfidenceMedium, DegradedMode: true,
		TopReasons: []database.Reason{
			{Text: "r1", Positive: true}, {Text: "r2", Positive: true},
			{Text: "r3", Positive: true}, {Text: "r4", Positive: true},
			{Text: "r5", Positive: true},
		},
		Cautions: []database.Reason{
			{Text: "c1"}, {Text: "c2"}, {Text: "c3"},
		},
		ComputedAt: time.Now(),
	}); err != nil {
		t.Fatalf("failed to seed match: %v", err)
	}
}

func TestGetTopMatchesExcludesStaleJobs(t *testing.T) {
	svc, db, cleanup := setupService(t)
	defer cleanup()
	ctx := context.Background()

	seedDriver(t, db, "drv-1", true)
	seedJob(t, db, "job-live", "co-1", database.JobStatusActive)
	seedJob(t, db, "job-dead", "co-2", database.JobStatusActive)
	seedMatch(t, db, "drv-1", "job-live", database.RoleDriver, 80)
	seedMatch(t, db, "drv-1", "job-dead", database.RoleDriver, 95)

	// Posting closes after its match row was written
	if err := db.UpdateJobStatus(ctx, "job-dead", database.JobStatusClosed); err != nil {
		t.Fatalf("failed to close job: %v", err)
	}

	matches, err := svc.GetTopMatches(ctx, "drv-1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 || matches[0].ObjectID != "job-live" {
		t.Fatalf("expected only the live job, got %v", matches)
	}
}

func TestGetTopMatchesAppliesDisplayCaps(t *testing.T) {
	svc, db, cleanup := setupService(t)
	defer cleanup()

	seedDriver(t, db, "drv-1", true)
	seedJob(t, db, "job-1", "co-1", database.JobStatusActive)
	seedMatch(t, db, "drv-1", "job-1", database.RoleDriver, 80)

	matches, err := svc.GetTopMatches(context.Background(), "drv-1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if len(matches[0].TopReasons) != 4 {
		t.Errorf("expected reasons capped at 4, got %d", len(matches[0].TopReasons))
	}
	if len(matches[0].Cautions) != 2 {
		t.Errorf("expected cautions capped at 2, got %d", len(matches[0].Cautions))
	}
	// The stored row keeps the full lists
	raw, err := db.GetMatchScore(context.Background(), "drv-1", "job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raw.TopReasons) != 5 || len(raw.Cautions) != 3 {
		t.Error("display caps must not truncate the stored row")
	}
}

func TestGatedDriverSeesEmptyList(t *testing.T) {
	svc, db, cleanup := setupService(t)
	defer cleanup()
	ctx := context.Background()

	seedDriver(t, db, "drv-1", true)
	seedJob(t, db, "job-1", "co-1", database.JobStatusActive)
	seedMatch(t, db, "drv-1", "job-1", database.RoleDriver, 80)

	if err := db.UpdateRolloutConfig(ctx, &database.RolloutConfig{ShadowMode: true}); err != nil {
		t.Fatalf("failed to update rollout: %v", err)
	}
	// New service so the rollout cache starts cold
	ctrl := rollout.NewController(db, time.Minute, zap.NewNop())
	svc = New(db, ctrl, config.Default().Scoring, zap.NewNop())

	matches, err := svc.GetTopMatches(ctx, "drv-1", 10)
	if err != nil {
		t.Fatalf("gating must not surface an error, got %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected empty list in shadow mode, got %d rows", len(matches))
	}

	m, err := svc.GetMatchScore(ctx, "drv-1", "job-1", database.RoleDriver)
	if err != nil || m != nil {
		t.Errorf("expected nil match in shadow mode, got %v, %v", m, err)
	}
}

func TestCandidateMatchesRespectConsentAndBeta(t *testing.T) {
	svc, db, cleanup := setupService(t)
	defer cleanup()
	ctx := context.Background()

	seedDriver(t, db, "drv-open", true)
	seedDriver(t, db, "drv-private", false)
	seedMatch(t, db, "co-1", "drv-open", database.RoleCompany, 85)
	seedMatch(t, db, "co-1", "drv-private", database.RoleCompany, 90)

	candidates, err := svc.GetCandidateMatches(ctx, "co-1", CandidateFilters{Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ObjectID != "drv-open" {
		t.Fatalf("expected only the consenting driver, got %v", candidates)
	}

	// Company UI off, this company on the beta list: still visible
	if err := db.UpdateRolloutConfig(ctx, &database.RolloutConfig{
		DriverUIEnabled: true,
		CompanyBetaIDs:  []string{"co-1"},
	}); err != nil {
		t.Fatalf("failed to update rollout: %v", err)
	}
	ctrl := rollout.NewController(db, time.Minute, zap.NewNop())
	svc = New(db, ctrl, config.Default().Scoring, zap.NewNop())

	candidates, err = svc.GetCandidateMatches(ctx, "co-1", CandidateFilters{Limit: 10})
	if err != nil || len(candidates) != 1 {
		t.Errorf("expected beta company to see candidates, got %v, %v", candidates, err)
	}
	candidates, err = svc.GetCandidateMatches(ctx, "co-2", CandidateFilters{Limit: 10})
	if err != nil || len(candidates) != 0 {
		t.Errorf("expected non-beta company gated, got %v, %v", candidates, err)
	}
}

func TestCandidateMatchesMinScoreFilter(t *testing.T) {
	svc, db, cleanup := setupService(t)
	defer cleanup()

	seedDriver(t, db, "drv-1", true)
	seedDriver(t, db, "drv-2", true)
	seedMatch(t, db, "co-1", "drv-1", database.RoleCompany, 85)
	seedMatch(t, db, "co-1", "drv-2", database.RoleCompany, 40)

	candidates, err := svc.GetCandidateMatches(context.Background(), "co-1", CandidateFilters{MinScore: 60, Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ObjectID != "drv-1" {
		t.Errorf("expected only the high scorer, got %v", candidates)
	}
}

func TestSubmitFeedbackEnqueuesRecompute(t *testing.T) {
	svc, db, cleanup := setupService(t)
	defer cleanup()
	ctx := context.Background()

	seedDriver(t, db, "drv-1", true)
	seedJob(t, db, "job-1", "co-1", database.JobStatusActive)

	if err := svc.SubmitFeedback(ctx, "drv-1", "job-1", database.FeedbackHide); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	feedback, err := db.ListFeedbackForDriver(ctx, "drv-1")
	if err != nil || len(feedback) != 1 || feedback[0].Kind != database.FeedbackHide {
		t.Errorf("expected recorded hide feedback, got %v, %v", feedback, err)
	}
	stats, err := db.GetQueueStats(ctx)
	if err != nil || stats.Pending != 1 {
		t.Errorf("expected 1 pending recompute, got %v, %v", stats, err)
	}

	if err := svc.SubmitFeedback(ctx, "drv-1", "no-such-job", database.FeedbackHelpful); err == nil {
		t.Error("expected an error for an unknown job")
	}
	if err := svc.SubmitFeedback(ctx, "ghost", "job-1", database.FeedbackHelpful); err == nil {
		t.Error("expected an error for an unknown driver")
	}
}

func TestFeedbackChangesSubsequentScores(t *testing.T) {
	svc, db, cleanup := setupService(t)
	defer cleanup()
	ctx := context.Background()

	seedDriver(t, db, "drv-1", true)
	seedJob(t, db, "job-reefer-1", "co-1", database.JobStatusActive)
	seedJob(t, db, "job-reefer-2", "co-2", database.JobStatusActive)

	// Make the two jobs look alike on freight so hiding one drags the other
	for _, id := range []string{"job-reefer-1", "job-reefer-2"} {
		job, err := db.GetJobPosting(ctx, id)
		if err != nil {
			t.Fatalf("failed to get job: %v", err)
		}
		job.FreightType = "reefer"
		if err := db.UpdateJobPosting(ctx, job); err != nil {
			t.Fatalf("failed to update job: %v", err)
		}
	}

	worker := recompute.NewWorker(db,
		match.NewPipeline(config.Default().Scoring, nil, 2, zap.NewNop()),
		config.Default().Worker, zap.NewNop())

	if err := svc.EnqueueRecompute(ctx, database.EntityDriverProfile, "drv-1", "seed"); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if err := worker.Drain(ctx); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	before, err := db.GetMatchScore(ctx, "drv-1", "job-reefer-2")
	if err != nil || before == nil {
		t.Fatalf("expected a baseline row, got %v, %v", before, err)
	}

	if err := svc.SubmitFeedback(ctx, "drv-1", "job-reefer-1", database.FeedbackHide); err != nil {
		t.Fatalf("feedback failed: %v", err)
	}
	if err := worker.Drain(ctx); err != nil {
		t.Fatalf("drain failed: %v", err)
	}

	after, err := db.GetMatchScore(ctx, "drv-1", "job-reefer-2")
	if err != nil || after == nil {
		t.Fatalf("expected a recomputed row, got %v, %v", after, err)
	}
	if after.OverallScore >= before.OverallScore {
		t.Errorf("hiding a lookalike job must lower the score: before=%d after=%d",
			before.OverallScore, after.OverallScore)
	}
}

func TestEnqueueRecomputeRejectsUnknownEntity(t *testing.T) {
	svc, _, cleanup := setupService(t)
	defer cleanup()

	if err := svc.EnqueueRecompute(context.Background(), database.EntityType("mailbox"), "x", "test"); err == nil {
		t.Error("expected an error for an unknown entity type")
	}
}
