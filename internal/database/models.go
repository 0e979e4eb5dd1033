package database

import (
	"database/sql"
	"time"
)

// DriverType represents a driver's employment arrangement
type DriverType string

const (
	DriverTypeCompany       DriverType = "company"
	DriverTypeOwnerOperator DriverType = "owner_operator"
	DriverTypeLease         DriverType = "lease"
	DriverTypeStudent       DriverType = "student"
)

// RouteType represents the kind of route a job runs
type RouteType string

const (
	RouteTypeOTR      RouteType = "otr"
	RouteTypeRegional RouteType = "regional"
	RouteTypeLocal    RouteType = "local"
)

// TeamDriving represents solo/team configuration
type TeamDriving string

const (
	TeamDrivingSolo   TeamDriving = "solo"
	TeamDrivingTeam   TeamDriving = "team"
	TeamDrivingEither TeamDriving = "either"
)

// JobStatus represents a posting's lifecycle state. Only Active jobs are
// scored and shown.
type JobStatus string

const (
	JobStatusDraft  JobStatus = "Draft"
	JobStatusActive JobStatus = "Active"
	JobStatusPaused JobStatus = "Paused"
	JobStatusClosed JobStatus = "Closed"
)

// FeedbackKind is a driver's verdict on a matched job
type FeedbackKind string

const (
	FeedbackHelpful     FeedbackKind = "helpful"
	FeedbackNotRelevant FeedbackKind = "not_relevant"
	FeedbackHide        FeedbackKind = "hide"
)

// ActionKind is a recorded driver interaction with a job
type ActionKind string

const (
	ActionSaved   ActionKind = "saved"
	ActionApplied ActionKind = "applied"
)

// DriverProfile represents a CDL driver
type DriverProfile struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	CDLClass        string     `json:"cdl_class"`
	ExperienceYears int        `json:"experience_years"`
	LicenseState    string     `json:"license_state"`
	DriverType      *string    `json:"driver_type,omitempty"`
	RouteType       *string    `json:"route_type,omitempty"`
	TeamDriving     *string    `json:"team_driving,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
	ContactConsent  bool       `json:"contact_consent"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// JobPosting represents a trucking company's job listing
type JobPosting struct {
	ID                 string    `json:"id"`
	CompanyID          string    `json:"company_id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	FreightType        string    `json:"freight_type"`
	DriverType         string    `json:"driver_type"`
	RouteType          string    `json:"route_type"`
	TeamDriving        string    `json:"team_driving"`
	City               *string   `json:"city,omitempty"`
	State              *string   `json:"state,omitempty"`
	Pay                *string   `json:"pay,omitempty"`
	MinExperienceYears *int      `json:"min_experience_years,omitempty"`
	Status             JobStatus `json:"status"`
	PostedAt           time.Time `json:"posted_at"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// IsActive reports whether the posting is visible to matching
func (j *JobPosting) IsActive() bool {
	return j.Status == JobStatusActive
}

// SubjectRole identifies which side of the marketplace a match row serves
type SubjectRole string

const (
	RoleDriver  SubjectRole = "driver"
	RoleCompany SubjectRole = "company"
)

// Reason is one human-readable scoring factor
type Reason struct {
	Text     string `json:"text"`
	Positive bool   `json:"positive"`
}

// BreakdownItem is one scored rule category
type BreakdownItem struct {
	Category string `json:"category"`
	Score    int    `json:"score"`
	MaxScore int    `json:"max_score"`
	Detail   string `json:"detail"`
}

// MatchScore is a persisted compatibility score between a subject and an
// object. Driver-side rows pair (driverID, jobID); company-side rows pair
// (companyID, driverID). Created and overwritten only by the scoring
// pipeline.
type MatchScore struct {
	SubjectID     string          `json:"subject_id"`
	ObjectID      string          `json:"object_id"`
	Role          SubjectRole     `json:"role"`
	OverallScore  int             `json:"overall_score"`
	RulesScore    int             `json:"rules_score"`
	SemanticScore *int            `json:"semantic_score,omitempty"`
	BehaviorScore int             `json:"behavior_score"`
	Confidence    string          `json:"confidence"`
	TopReasons    []Reason        `json:"top_reasons"`
	Cautions      []Reason        `json:"cautions"`
	Breakdown     []BreakdownItem `json:"score_breakdown"`
	MissingFields []string        `json:"missing_fields,omitempty"`
	DegradedMode  bool            `json:"degraded_mode"`
	ComputedAt    time.Time       `json:"computed_at"`
}

// DriverFeedback is a driver's verdict on one job, at most one row per
// (driver, job)
type DriverFeedback struct {
	ID        string       `json:"id"`
	DriverID  string       `json:"driver_id"`
	JobID     string       `json:"job_id"`
	Kind      FeedbackKind `json:"kind"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// DriverJobAction records a save or apply event
type DriverJobAction struct {
	ID        string     `json:"id"`
	DriverID  string     `json:"driver_id"`
	JobID     string     `json:"job_id"`
	Action    ActionKind `json:"action"`
	CreatedAt time.Time  `json:"created_at"`
}

// QueueStatus is a recompute queue entry's state
type QueueStatus string

const (
	QueuePending    QueueStatus = "pending"
	QueueProcessing QueueStatus = "processing"
	QueueDone       QueueStatus = "done"
	QueueFailed     QueueStatus = "failed"
)

// EntityType identifies what kind of record changed
type EntityType string

const (
	EntityDriverProfile  EntityType = "driver_profile"
	EntityJob            EntityType = "job"
	EntityCompanyProfile EntityType = "company_profile"
)

// ValidEntityType reports whether s names a recomputable entity kind
func ValidEntityType(s string) bool {
	switch EntityType(s) {
	case EntityDriverProfile, EntityJob, EntityCompanyProfile:
		return true
	}
	return false
}

// RecomputeEntry is a durable unit of rescoring work. At most one pending
// entry exists per (entityType, entityID).
type RecomputeEntry struct {
	ID         string      `json:"id"`
	EntityType EntityType  `json:"entity_type"`
	EntityID   string      `json:"entity_id"`
	Reason     string      `json:"reason"`
	Status     QueueStatus `json:"status"`
	Attempts   int         `json:"attempts"`
	LastError  *string     `json:"last_error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// RolloutConfig is the singleton visibility gate, mutated by operators only
type RolloutConfig struct {
	ShadowMode       bool      `json:"shadow_mode"`
	DriverUIEnabled  bool      `json:"driver_ui_enabled"`
	CompanyUIEnabled bool      `json:"company_ui_enabled"`
	CompanyBetaIDs   []string  `json:"company_beta_ids"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// QueueStats summarizes the recompute queue by status
type QueueStats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Done       int `json:"done"`
	Failed     int `json:"failed"`
}

// MatchStats summarizes persisted match rows
type MatchStats struct {
	DriverRows   int `json:"driver_rows"`
	CompanyRows  int `json:"company_rows"`
	Degraded     int `json:"degraded"`
	ActiveJobs   int `json:"active_jobs"`
	TotalDrivers int `json:"total_drivers"`
}

// NullString is a helper to convert *string to sql.NullString
func NullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// NullInt is a helper to convert *int to sql.NullInt64
func NullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

// StringPtr converts sql.NullString to *string
func StringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// IntPtr converts sql.NullInt64 to *int
func IntPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}
