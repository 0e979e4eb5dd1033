package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UpsertMatchScore writes a match row, replacing any previous score for the
// same (subject, object) pair. The scoring pipeline is the only writer.
func (db *DB) UpsertMatchScore(ctx context.Context, m *MatchScore) error {
	if m.ComputedAt.IsZero() {
		m.ComputedAt = time.Now()
	}

	reasons, err := marshalJSON(m.TopReasons)
	if err != nil {
		return fmt.Errorf("failed to encode top reasons: %w", err)
	}
	cautions, err := marshalJSON(m.Cautions)
	if err != nil {
		return fmt.Errorf("failed to encode cautions: %w", err)
	}
	breakdown, err := marshalJSON(m.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to encode breakdown: %w", err)
	}
	missing, err := marshalJSON(m.MissingFields)
	if err != nil {
		return fmt.Errorf("failed to encode missing fields: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO match_scores (
			subject_id, object_id, role, overall_score, rules_score,
			semantic_score, behavior_score, confidence, top_reasons, cautions,
			score_breakdown, missing_fields, degraded_mode, computed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (subject_id, object_id) DO UPDATE SET
			role = excluded.role,
			overall_score = excluded.overall_score,
			rules_score = excluded.rules_score,
			semantic_score = excluded.semantic_score,
			behavior_score = excluded.behavior_score,
			confidence = excluded.confidence,
			top_reasons = excluded.top_reasons,
			cautions = excluded.cautions,
			score_breakdown = excluded.score_breakdown,
			missing_fields = excluded.missing_fields,
			degraded_mode = excluded.degraded_mode,
			computed_at = excluded.computed_at
	`,
		m.SubjectID, m.ObjectID, m.Role, m.OverallScore, m.RulesScore,
		NullInt(m.SemanticScore), m.BehaviorScore, m.Confidence, reasons, cautions,
		breakdown, missing, m.DegradedMode, m.ComputedAt,
	)
	return err
}

const matchColumns = `subject_id, object_id, role, overall_score, rules_score,
	       semantic_score, behavior_score, confidence, top_reasons, cautions,
	       score_breakdown, missing_fields, degraded_mode, computed_at`

// GetMatchScore retrieves a single match row
func (db *DB) GetMatchScore(ctx context.Context, subjectID, objectID string) (*MatchScore, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+matchColumns+`
		FROM match_scores WHERE subject_id = ? AND object_id = ?
	`, subjectID, objectID)

	m, err := scanMatchScore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListMatchScores retrieves all match rows for a subject, best first
func (db *DB) ListMatchScores(ctx context.Context, subjectID string, limit int) ([]MatchScore, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM match_scores WHERE subject_id = ?
		ORDER BY overall_score DESC, object_id ASC
	`
	args := []interface{}{subjectID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []MatchScore
	for rows.Next() {
		m, err := scanMatchScore(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, *m)
	}

	return matches, rows.Err()
}

// ListDriverMatchesForActiveJobs retrieves a driver's match rows joined
// against live posting status, so stale rows for closed or paused jobs are
// excluded regardless of what the match table still holds.
func (db *DB) ListDriverMatchesForActiveJobs(ctx context.Context, driverID string, limit int) ([]MatchScore, error) {
	query := `
		SELECT m.subject_id, m.object_id, m.role, m.overall_score, m.rules_score,
		       m.semantic_score, m.behavior_score, m.confidence, m.top_reasons, m.cautions,
		       m.score_breakdown, m.missing_fields, m.degraded_mode, m.computed_at
		FROM match_scores m
		JOIN job_postings j ON j.id = m.object_id
		WHERE m.subject_id = ? AND m.role = ? AND j.status = ?
		ORDER BY m.overall_score DESC, m.object_id ASC
	`
	args := []interface{}{driverID, RoleDriver, JobStatusActive}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []MatchScore
	for rows.Next() {
		m, err := scanMatchScore(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, *m)
	}

	return matches, rows.Err()
}

// ListCompanyCandidateMatches retrieves a company's candidate rows, limited
// to consenting drivers, best first
func (db *DB) ListCompanyCandidateMatches(ctx context.Context, companyID string, minScore, limit int) ([]MatchScore, error) {
	query := `
		SELECT m.subject_id, m.object_id, m.role, m.overall_score, m.rules_score,
		       m.semantic_score, m.behavior_score, m.confidence, m.top_reasons, m.cautions,
		       m.score_breakdown, m.missing_fields, m.degraded_mode, m.computed_at
		FROM match_scores m
		JOIN driver_profiles d ON d.id = m.object_id
		WHERE m.subject_id = ? AND m.role = ? AND d.contact_consent = 1
		  AND m.overall_score >= ?
		ORDER BY m.overall_score DESC, m.object_id ASC
	`
	args := []interface{}{companyID, RoleCompany, minScore}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []MatchScore
	for rows.Next() {
		m, err := scanMatchScore(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, *m)
	}

	return matches, rows.Err()
}

// DeleteStaleCompanyMatches removes a company's candidate rows computed
// before the given rebuild start. Candidate rows carry no job reference,
// so a row the rebuild did not refresh has no active pairing behind it.
func (db *DB) DeleteStaleCompanyMatches(ctx context.Context, companyID string, before time.Time) (int64, error) {
	result, err := db.ExecContext(ctx, `
		DELETE FROM match_scores
		WHERE subject_id = ? AND role = ? AND computed_at < ?
	`, companyID, RoleCompany, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetMatchStats returns aggregate counts over match rows
func (db *DB) GetMatchStats(ctx context.Context) (*MatchStats, error) {
	stats := &MatchStats{}

	err := db.QueryRowContext(ctx, `
		SELECT
			COUNT(CASE WHEN role = 'driver' THEN 1 END),
			COUNT(CASE WHEN role = 'company' THEN 1 END),
			COUNT(CASE WHEN degraded_mode = 1 THEN 1 END)
		FROM match_scores
	`).Scan(&stats.DriverRows, &stats.CompanyRows, &stats.Degraded)
	if err != nil {
		return nil, err
	}

	stats.ActiveJobs, err = db.CountActiveJobs(ctx)
	if err != nil {
		return nil, err
	}

	stats.TotalDrivers, err = db.CountDriverProfiles(ctx)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// UpsertFeedback records a driver's verdict on a job, replacing any earlier
// verdict for the same pair
func (db *DB) UpsertFeedback(ctx context.Context, f *DriverFeedback) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	f.CreatedAt = time.Now()
	f.UpdatedAt = time.Now()

	_, err := db.ExecContext(ctx, `
		INSERT INTO driver_feedback (id, driver_id, job_id, kind, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (driver_id, job_id) DO UPDATE SET
			kind = excluded.kind,
			updated_at = excluded.updated_at
	`, f.ID, f.DriverID, f.JobID, f.Kind, f.CreatedAt, f.UpdatedAt)
	return err
}

// ListFeedbackForDriver retrieves all of one driver's feedback rows
func (db *DB) ListFeedbackForDriver(ctx context.Context, driverID string) ([]DriverFeedback, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, driver_id, job_id, kind, created_at, updated_at
		FROM driver_feedback WHERE driver_id = ?
		ORDER BY created_at ASC
	`, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feedback []DriverFeedback
	for rows.Next() {
		var f DriverFeedback
		if err := rows.Scan(&f.ID, &f.DriverID, &f.JobID, &f.Kind, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		feedback = append(feedback, f)
	}

	return feedback, rows.Err()
}

// RecordJobAction records a save or apply event, idempotently
func (db *DB) RecordJobAction(ctx context.Context, a *DriverJobAction) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.CreatedAt = time.Now()

	_, err := db.ExecContext(ctx, `
		INSERT OR IGNORE INTO driver_job_actions (id, driver_id, job_id, action, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, a.ID, a.DriverID, a.JobID, a.Action, a.CreatedAt)
	return err
}

// ListJobActionsForDriver retrieves one driver's save/apply history
func (db *DB) ListJobActionsForDriver(ctx context.Context, driverID string) ([]DriverJobAction, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, driver_id, job_id, action, created_at
		FROM driver_job_actions WHERE driver_id = ?
		ORDER BY created_at ASC
	`, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []DriverJobAction
	for rows.Next() {
		var a DriverJobAction
		if err := rows.Scan(&a.ID, &a.DriverID, &a.JobID, &a.Action, &a.CreatedAt); err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}

	return actions, rows.Err()
}

func scanMatchScore(row rowScanner) (*MatchScore, error) {
	m := &MatchScore{}
	var semantic sql.NullInt64
	var reasons, cautions, breakdown, missing string

	err := row.Scan(
		&m.SubjectID, &m.ObjectID, &m.Role, &m.OverallScore, &m.RulesScore,
		&semantic, &m.BehaviorScore, &m.Confidence, &reasons, &cautions,
		&breakdown, &missing, &m.DegradedMode, &m.ComputedAt,
	)
	if err != nil {
		return nil, err
	}

	m.SemanticScore = IntPtr(semantic)
	if err := json.Unmarshal([]byte(reasons), &m.TopReasons); err != nil {
		return nil, fmt.Errorf("failed to decode top reasons: %w", err)
	}
	if err := json.Unmarshal([]byte(cautions), &m.Cautions); err != nil {
		return nil, fmt.Errorf("failed to decode cautions: %w", err)
	}
	if err := json.Unmarshal([]byte(breakdown), &m.Breakdown); err != nil {
		return nil, fmt.Errorf("failed to decode breakdown: %w", err)
	}
	if err := json.Unmarshal([]byte(missing), &m.MissingFields); err != nil {
		return nil, fmt.Errorf("failed to decode missing fields: %w", err)
	}
	return m, nil
}

// marshalJSON encodes v, mapping nil slices to empty JSON arrays so columns
// never hold the literal string "null"
func marshalJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	s := string(data)
	if s == "null" {
		s = "[]"
	}
	return s, nil
}
