package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) (*DB, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "cdlmatch-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := Open(dbPath)
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

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestOpen(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	if db == nil {
		t.Fatal("expected non-nil database")
	}

	// Verify tables exist
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='match_scores'").Scan(&count)
	if err != nil {
		t.Fatalf("failed to query tables: %v", err)
	}
	if count != 1 {
		t.Errorf("expected match_scores table to exist")
	}

	// Rollout singleton is seeded in shadow mode
	cfg, err := db.GetRolloutConfig(context.Background())
	if err != nil {
		t.Fatalf("GetRolloutConfig failed: %v", err)
	}
	if !cfg.ShadowMode {
		t.Error("expected seeded rollout config to start in shadow mode")
	}
}

func TestDriverProfileCRUD(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	d := &DriverProfile{
		Name:            "Ray Boone",
		CDLClass:        "A",
		ExperienceYears: 6,
		LicenseState:    "TX",
		DriverType:      strPtr(string(DriverTypeOwnerOperator)),
		RouteType:       strPtr(string(RouteTypeOTR)),
		ContactConsent:  true,
	}

	if err := db.CreateDriverProfile(ctx, d); err != nil {
		t.Fatalf("CreateDriverProfile failed: %v", err)
	}
	if d.ID == "" {
		t.Error("expected ID to be set after create")
	}

	fetched, err := db.GetDriverProfile(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetDriverProfile failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected driver to be found")
	}
	if fetched.LicenseState != "TX" {
		t.Errorf("expected LicenseState=TX, got %s", fetched.LicenseState)
	}
	if fetched.Notes != nil {
		t.Errorf("expected nil Notes, got %q", *fetched.Notes)
	}

	d.Notes = strPtr("Prefer long hauls out of Dallas")
	if err := db.UpdateDriverProfile(ctx, d); err != nil {
		t.Fatalf("UpdateDriverProfile failed: %v", err)
	}

	fetched, _ = db.GetDriverProfile(ctx, d.ID)
	if fetched.Notes == nil || *fetched.Notes != "Prefer long hauls out of Dallas" {
		t.Error("expected Notes to be updated")
	}

	// Missing driver
	missing, err := db.GetDriverProfile(ctx, "nope")
	if err != nil {
		t.Fatalf("GetDriverProfile failed: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown driver")
	}
}

func TestListDriverProfilesConsent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	for _, consent := range []bool{true, false, true} {
		d := &DriverProfile{Name: "d", CDLClass: "A", ContactConsent: consent}
		if err := db.CreateDriverProfile(ctx, d); err != nil {
			t.Fatalf("CreateDriverProfile failed: %v", err)
		}
	}

	all, err := db.ListDriverProfiles(ctx, false, 0)
	if err != nil {
		t.Fatalf("ListDriverProfiles failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 drivers, got %d", len(all))
	}

	consenting, err := db.ListDriverProfiles(ctx, true, 0)
	if err != nil {
		t.Fatalf("ListDriverProfiles failed: %v", err)
	}
	if len(consenting) != 2 {
		t.Errorf("expected 2 consenting drivers, got %d", len(consenting))
	}
}

func TestJobPostingCRUD(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	j := &JobPosting{
		CompanyID:   "company-1",
		Title:       "OTR Owner Operator",
		Description: "Dry van freight, 48 states",
		FreightType: "dry_van",
		DriverType:  string(DriverTypeOwnerOperator),
		RouteType:   string(RouteTypeOTR),
		TeamDriving: string(TeamDrivingSolo),
		State:       strPtr("TX"),
		Status:      JobStatusActive,
	}

	if err := db.CreateJobPosting(ctx, j); err != nil {
		t.Fatalf("CreateJobPosting failed: %v", err)
	}

	fetched, err := db.GetJobPosting(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJobPosting failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected job to be found")
	}
	if !fetched.IsActive() {
		t.Error("expected job to be active")
	}

	active, err := db.ListActiveJobs(ctx, 0)
	if err != nil {
		t.Fatalf("ListActiveJobs failed: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 active job, got %d", len(active))
	}

	// Status transition removes it from the active pool
	if err := db.UpdateJobStatus(ctx, j.ID, JobStatusClosed); err != nil {
		t.Fatalf("UpdateJobStatus failed: %v", err)
	}
	active, _ = db.ListActiveJobs(ctx, 0)
	if len(active) != 0 {
		t.Errorf("expected 0 active jobs after close, got %d", len(active))
	}
}

func TestMatchScoreUpsert(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	m := &MatchScore{
		SubjectID:     "driver-1",
		ObjectID:      "job-1",
		Role:          RoleDriver,
		OverallScore:  82,
		RulesScore:    90,
		SemanticScore: intPtr(70),
		BehaviorScore: 55,
		Confidence:    "high",
		TopReasons:    []Reason{{Text: "Owner-operator position matches your preference", Positive: true}},
		Breakdown:     []BreakdownItem{{Category: "driver_type", Score: 25, MaxScore: 25, Detail: "exact match"}},
		DegradedMode:  false,
	}

	if err := db.UpsertMatchScore(ctx, m); err != nil {
		t.Fatalf("UpsertMatchScore failed: %v", err)
	}

	// Overwrite with a degraded recompute
	m2 := &MatchScore{
		SubjectID:     "driver-1",
		ObjectID:      "job-1",
		Role:          RoleDriver,
		OverallScore:  78,
		RulesScore:    90,
		SemanticScore: nil,
		BehaviorScore: 50,
		Confidence:    "low",
		DegradedMode:  true,
		MissingFields: []string{"notes"},
	}
	if err := db.UpsertMatchScore(ctx, m2); err != nil {
		t.Fatalf("UpsertMatchScore (overwrite) failed: %v", err)
	}

	fetched, err := db.GetMatchScore(ctx, "driver-1", "job-1")
	if err != nil {
		t.Fatalf("GetMatchScore failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected match to be found")
	}
	if fetched.OverallScore != 78 {
		t.Errorf("expected OverallScore=78 after overwrite, got %d", fetched.OverallScore)
	}
	if fetched.SemanticScore != nil {
		t.Error("expected nil SemanticScore after degraded overwrite")
	}
	if !fetched.DegradedMode {
		t.Error("expected DegradedMode=true")
	}
	if len(fetched.MissingFields) != 1 || fetched.MissingFields[0] != "notes" {
		t.Errorf("expected missing fields [notes], got %v", fetched.MissingFields)
	}
	if len(fetched.TopReasons) != 0 {
		t.Errorf("expected reasons to be replaced, got %v", fetched.TopReasons)
	}
}

func TestListDriverMatchesForActiveJobs(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	// Two jobs, one later closed; match rows exist for both
	jobA := &JobPosting{CompanyID: "c1", Title: "A", Status: JobStatusActive}
	jobB := &JobPosting{CompanyID: "c1", Title: "B", Status: JobStatusActive}
	for _, j := range []*JobPosting{jobA, jobB} {
		if err := db.CreateJobPosting(ctx, j); err != nil {
			t.Fatalf("CreateJobPosting failed: %v", err)
		}
	}

	for i, jobID := range []string{jobA.ID, jobB.ID} {
		m := &MatchScore{
			SubjectID: "driver-1", ObjectID: jobID, Role: RoleDriver,
			OverallScore: 90 - i, RulesScore: 90, BehaviorScore: 50,
			Confidence: "medium", DegradedMode: true,
		}
		if err := db.UpsertMatchScore(ctx, m); err != nil {
			t.Fatalf("UpsertMatchScore failed: %v", err)
		}
	}

	if err := db.UpdateJobStatus(ctx, jobB.ID, JobStatusClosed); err != nil {
		t.Fatalf("UpdateJobStatus failed: %v", err)
	}

	// Stale match row for the closed job must not come back
	matches, err := db.ListDriverMatchesForActiveJobs(ctx, "driver-1", 10)
	if err != nil {
		t.Fatalf("ListDriverMatchesForActiveJobs failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match after job close, got %d", len(matches))
	}
	if matches[0].ObjectID != jobA.ID {
		t.Errorf("expected match for job A, got %s", matches[0].ObjectID)
	}
}

func TestFeedbackUpsert(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	f := &DriverFeedback{DriverID: "driver-1", JobID: "job-1", Kind: FeedbackHelpful}
	if err := db.UpsertFeedback(ctx, f); err != nil {
		t.Fatalf("UpsertFeedback failed: %v", err)
	}

	// Changing the verdict replaces, not duplicates
	f2 := &DriverFeedback{DriverID: "driver-1", JobID: "job-1", Kind: FeedbackHide}
	if err := db.UpsertFeedback(ctx, f2); err != nil {
		t.Fatalf("UpsertFeedback (replace) failed: %v", err)
	}

	feedback, err := db.ListFeedbackForDriver(ctx, "driver-1")
	if err != nil {
		t.Fatalf("ListFeedbackForDriver failed: %v", err)
	}
	if len(feedback) != 1 {
		t.Fatalf("expected 1 feedback row, got %d", len(feedback))
	}
	if feedback[0].Kind != FeedbackHide {
		t.Errorf("expected kind=hide, got %s", feedback[0].Kind)
	}
}

func TestJobActionIdempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		a := &DriverJobAction{DriverID: "driver-1", JobID: "job-1", Action: ActionSaved}
		if err := db.RecordJobAction(ctx, a); err != nil {
			t.Fatalf("RecordJobAction failed: %v", err)
		}
	}

	actions, err := db.ListJobActionsForDriver(ctx, "driver-1")
	if err != nil {
		t.Fatalf("ListJobActionsForDriver failed: %v", err)
	}
	if len(actions) != 1 {
		t.Errorf("expected 1 action after duplicate save, got %d", len(actions))
	}
}

func TestRolloutConfigRoundTrip(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	cfg, err := db.GetRolloutConfig(ctx)
	if err != nil {
		t.Fatalf("GetRolloutConfig failed: %v", err)
	}

	cfg.ShadowMode = false
	cfg.DriverUIEnabled = true
	cfg.CompanyBetaIDs = []string{"company-7"}
	if err := db.UpdateRolloutConfig(ctx, cfg); err != nil {
		t.Fatalf("UpdateRolloutConfig failed: %v", err)
	}

	fetched, err := db.GetRolloutConfig(ctx)
	if err != nil {
		t.Fatalf("GetRolloutConfig failed: %v", err)
	}
	if fetched.ShadowMode {
		t.Error("expected shadow mode off")
	}
	if !fetched.DriverUIEnabled {
		t.Error("expected driver UI enabled")
	}
	if len(fetched.CompanyBetaIDs) != 1 || fetched.CompanyBetaIDs[0] != "company-7" {
		t.Errorf("expected beta ids [company-7], got %v", fetched.CompanyBetaIDs)
	}
	if fetched.UpdatedAt.Before(time.Now().Add(-time.Minute)) {
		t.Error("expected UpdatedAt to be refreshed")
	}
}
