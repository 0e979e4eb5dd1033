package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const jobColumns = `id, company_id, title, description, freight_type, driver_type,
	       route_type, team_driving, city, state, pay, min_experience_years,
	       status, posted_at, created_at, updated_at`

// CreateJobPosting inserts a new job posting
func (db *DB) CreateJobPosting(ctx context.Context, j *JobPosting) error {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	if j.Status == "" {
		j.Status = JobStatusDraft
	}
	if j.PostedAt.IsZero() {
		j.PostedAt = time.Now()
	}
	j.CreatedAt = time.Now()
	j.UpdatedAt = time.Now()

	_, err := db.ExecContext(ctx, `
		INSERT INTO job_postings (
			id, company_id, title, description, freight_type, driver_type,
			route_type, team_driving, city, state, pay, min_experience_years,
			status, posted_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		j.ID, j.CompanyID, j.Title, j.Description, j.FreightType, j.DriverType,
		j.RouteType, j.TeamDriving, NullString(j.City), NullString(j.State),
		NullString(j.Pay), NullInt(j.MinExperienceYears),
		j.Status, j.PostedAt, j.CreatedAt, j.UpdatedAt,
	)
	return err
}

// GetJobPosting retrieves a job posting by ID
func (db *DB) GetJobPosting(ctx context.Context, id string) (*JobPosting, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM job_postings WHERE id = ?
	`, id)

	j, err := scanJobPosting(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return j, nil
}

// UpdateJobPosting updates an existing job posting
func (db *DB) UpdateJobPosting(ctx context.Context, j *JobPosting) error {
	j.UpdatedAt = time.Now()

	result, err := db.ExecContext(ctx, `
		UPDATE job_postings SET
			company_id = ?, title = ?, description = ?, freight_type = ?,
			driver_type = ?, route_type = ?, team_driving = ?, city = ?,
			state = ?, pay = ?, min_experience_years = ?, status = ?,
			posted_at = ?, updated_at = ?
		WHERE id = ?
	`,
		j.CompanyID, j.Title, j.Description, j.FreightType,
		j.DriverType, j.RouteType, j.TeamDriving, NullString(j.City),
		NullString(j.State), NullString(j.Pay), NullInt(j.MinExperienceYears),
		j.Status, j.PostedAt, j.UpdatedAt, j.ID,
	)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("job posting not found: %s", j.ID)
	}
	return nil
}

// UpdateJobStatus transitions a posting's lifecycle status
func (db *DB) UpdateJobStatus(ctx context.Context, id string, status JobStatus) error {
	result, err := db.ExecContext(ctx, `
		UPDATE job_postings SET status = ?, updated_at = ? WHERE id = ?
	`, status, time.Now(), id)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("job posting not found: %s", id)
	}
	return nil
}

// ListActiveJobs retrieves active postings, newest first
func (db *DB) ListActiveJobs(ctx context.Context, limit int) ([]JobPosting, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM job_postings WHERE status = ?
		ORDER BY posted_at DESC
	`
	args := []interface{}{JobStatusActive}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	return db.queryJobPostings(ctx, query, args...)
}

// ListActiveJobsByCompany retrieves a company's active postings
func (db *DB) ListActiveJobsByCompany(ctx context.Context, companyID string, limit int) ([]JobPosting, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM job_postings WHERE status = ? AND company_id = ?
		ORDER BY posted_at DESC
	`
	args := []interface{}{JobStatusActive, companyID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	return db.queryJobPostings(ctx, query, args...)
}

// ListJobsByIDs retrieves postings for the given IDs, in no particular order
func (db *DB) ListJobsByIDs(ctx context.Context, ids []string) ([]JobPosting, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + jobColumns + ` FROM job_postings WHERE id IN (?`
	args := []interface{}{ids[0]}
	for _, id := range ids[1:] {
		query += ",?"
		args = append(args, id)
	}
	query += ")"

	return db.queryJobPostings(ctx, query, args...)
}

// CountActiveJobs returns the number of active postings
func (db *DB) CountActiveJobs(ctx context.Context) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM job_postings WHERE status = ?
	`, JobStatusActive).Scan(&count)
	return count, err
}

func (db *DB) queryJobPostings(ctx context.Context, query string, args ...interface{}) ([]JobPosting, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []JobPosting
	for rows.Next() {
		j, err := scanJobPosting(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}

	return jobs, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJobPosting(row rowScanner) (*JobPosting, error) {
	j := &JobPosting{}
	var city, state, pay sql.NullString
	var minExp sql.NullInt64

	err := row.Scan(
		&j.ID, &j.CompanyID, &j.Title, &j.Description, &j.FreightType, &j.DriverType,
		&j.RouteType, &j.TeamDriving, &city, &state, &pay, &minExp,
		&j.Status, &j.PostedAt, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	j.City = StringPtr(city)
	j.State = StringPtr(state)
	j.Pay = StringPtr(pay)
	j.MinExperienceYears = IntPtr(minExp)
	return j, nil
}
