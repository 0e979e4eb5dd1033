package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateDriverProfile inserts a new driver profile
func (db *DB) CreateDriverProfile(ctx context.Context, d *DriverProfile) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.CreatedAt = time.Now()
	d.UpdatedAt = time.Now()

	_, err := db.ExecContext(ctx, `
		INSERT INTO driver_profiles (
			id, name, cdl_class, experience_years, license_state,
			driver_type, route_type, team_driving, notes, contact_consent,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		d.ID, d.Name, d.CDLClass, d.ExperienceYears, d.LicenseState,
		NullString(d.DriverType), NullString(d.RouteType), NullString(d.TeamDriving),
		NullString(d.Notes), d.ContactConsent, d.CreatedAt, d.UpdatedAt,
	)
	return err
}

// GetDriverProfile retrieves a driver profile by ID
func (db *DB) GetDriverProfile(ctx context.Context, id string) (*DriverProfile, error) {
	d := &DriverProfile{}
	var driverType, routeType, teamDriving, notes sql.NullString

	err := db.QueryRowContext(ctx, `
		SELECT id, name, cdl_class, experience_years, license_state,
		       driver_type, route_type, team_driving, notes, contact_consent,
		       created_at, updated_at
		FROM driver_profiles WHERE id = ?
	`, id).Scan(
		&d.ID, &d.Name, &d.CDLClass, &d.ExperienceYears, &d.LicenseState,
		&driverType, &routeType, &teamDriving, &notes, &d.ContactConsent,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	d.DriverType = StringPtr(driverType)
	d.RouteType = StringPtr(routeType)
	d.TeamDriving = StringPtr(teamDriving)
	d.Notes = StringPtr(notes)
	return d, nil
}

// UpdateDriverProfile updates an existing driver profile
func (db *DB) UpdateDriverProfile(ctx context.Context, d *DriverProfile) error {
	d.UpdatedAt = time.Now()

	result, err := db.ExecContext(ctx, `
		UPDATE driver_profiles SET
			name = ?, cdl_class = ?, experience_years = ?, license_state = ?,
			driver_type = ?, route_type = ?, team_driving = ?, notes = ?,
			contact_consent = ?, updated_at = ?
		WHERE id = ?
	`,
		d.Name, d.CDLClass, d.ExperienceYears, d.LicenseState,
		NullString(d.DriverType), NullString(d.RouteType), NullString(d.TeamDriving),
		NullString(d.Notes), d.ContactConsent, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return err
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("driver profile not found: %s", d.ID)
	}
	return nil
}

// ListDriverProfiles retrieves driver profiles, optionally only those who
// consented to company contact
func (db *DB) ListDriverProfiles(ctx context.Context, consentingOnly bool, limit int) ([]DriverProfile, error) {
	query := `
		SELECT id, name, cdl_class, experience_years, license_state,
		       driver_type, route_type, team_driving, notes, contact_consent,
		       created_at, updated_at
		FROM driver_profiles
	`
	if consentingOnly {
		query += " WHERE contact_consent = 1"
	}
	query += " ORDER BY created_at ASC"
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []DriverProfile
	for rows.Next() {
		var d DriverProfile
		var driverType, routeType, teamDriving, notes sql.NullString

		err := rows.Scan(
			&d.ID, &d.Name, &d.CDLClass, &d.ExperienceYears, &d.LicenseState,
			&driverType, &routeType, &teamDriving, &notes, &d.ContactConsent,
			&d.CreatedAt, &d.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		d.DriverType = StringPtr(driverType)
		d.RouteType = StringPtr(routeType)
		d.TeamDriving = StringPtr(teamDriving)
		d.Notes = StringPtr(notes)
		drivers = append(drivers, d)
	}

	return drivers, rows.Err()
}

// CountDriverProfiles returns the number of driver profiles
func (db *DB) CountDriverProfiles(ctx context.Context) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM driver_profiles`).Scan(&count)
	return count, err
}
