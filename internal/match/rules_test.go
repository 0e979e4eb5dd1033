package match

import (
	"errors"
	"reflect"
	"testing"

	"github.com/vijay-prabhu/cdlmatch/internal/config"
	"github.com/vijay-prabhu/cdlmatch/internal/database"
)

func testWeights() config.RuleWeights {
	return config.Default().Scoring.Rules
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func testDriver() *database.DriverProfile {
	return &database.DriverProfile{
		ID:              "driver-1",
		Name:            "Ray Boone",
		CDLClass:        "A",
		ExperienceYears: 6,
		LicenseState:    "TX",
		DriverType:      strPtr("owner_operator"),
		RouteType:       strPtr("otr"),
		TeamDriving:     strPtr("solo"),
		Notes:           strPtr("Looking for steady dry van freight with consistent home time"),
	}
}

func testJob() *database.JobPosting {
	return &database.JobPosting{
		ID:          "job-1",
		CompanyID:   "company-1",
		Title:       "OTR Owner Operator",
		Description: "Dry van freight across 48 states",
		FreightType: "dry_van",
		DriverType:  "owner_operator",
		RouteType:   "otr",
		TeamDriving: "solo",
		State:       strPtr("TX"),
		Status:      database.JobStatusActive,
	}
}

func TestRulesScorerPerfectMatch(t *testing.T) {
	scorer := NewRulesScorer(testWeights())

	result, err := scorer.Score(testDriver(), testJob())
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if result.Score != 100 {
		t.Errorf("expected Score=100 for a perfect match, got %d", result.Score)
	}
	if result.Points != result.MaxPoints {
		t.Errorf("expected full points, got %d/%d", result.Points, result.MaxPoints)
	}
	if len(result.Items) != 5 {
		t.Fatalf("expected 5 breakdown items, got %d", len(result.Items))
	}
	if len(result.MissingFields) != 0 {
		t.Errorf("expected no missing fields, got %v", result.MissingFields)
	}

	// Breakdown follows declaration order
	wantOrder := []string{"driver_type", "route_type", "location", "experience", "team_driving"}
	for i, item := range result.Items {
		if item.Category != wantOrder[i] {
			t.Errorf("item %d: expected category %s, got %s", i, wantOrder[i], item.Category)
		}
	}
}

func TestRulesScorerDeterminism(t *testing.T) {
	scorer := NewRulesScorer(testWeights())
	driver, job := testDriver(), testJob()

	first, err := scorer.Score(driver, job)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	second, err := scorer.Score(driver, job)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("expected identical output across repeated invocations")
	}
}

func TestRulesScorerMissingAttributesNeutral(t *testing.T) {
	scorer := NewRulesScorer(testWeights())

	driver := testDriver()
	driver.DriverType = nil
	driver.RouteType = nil
	driver.TeamDriving = nil
	driver.Notes = nil

	result, err := scorer.Score(driver, testJob())
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	// Neutral defaults, not zero
	for _, item := range result.Items {
		if item.Category == "location" || item.Category == "experience" {
			continue
		}
		if item.Score == 0 {
			t.Errorf("category %s: missing data must not zero the score", item.Category)
		}
		if item.Score >= item.MaxScore {
			t.Errorf("category %s: missing data must not score full points", item.Category)
		}
	}

	want := []string{"driver_type", "route_type", "team_driving", "notes"}
	if !reflect.DeepEqual(result.MissingFields, want) {
		t.Errorf("expected missing fields %v, got %v", want, result.MissingFields)
	}
}

func TestRulesScorerCategories(t *testing.T) {
	weights := testWeights()
	scorer := NewRulesScorer(weights)

	tests := []struct {
		name     string
		modify   func(d *database.DriverProfile, j *database.JobPosting)
		category string
		want     int
	}{
		{
			name: "driver type mismatch",
			modify: func(d *database.DriverProfile, j *database.JobPosting) {
				j.DriverType = "company"
			},
			category: "driver_type",
			want:     5, // 0.2 * 25
		},
		{
			name: "adjacent route types",
			modify: func(d *database.DriverProfile, j *database.JobPosting) {
				j.RouteType = "regional"
			},
			category: "route_type",
			want:     10, // 0.5 * 20
		},
		{
			name: "distant route types",
			modify: func(d *database.DriverProfile, j *database.JobPosting) {
				d.RouteType = strPtr("local")
			},
			category: "route_type",
			want:     4, // 0.2 * 20
		},
		{
			name: "same region different state",
			modify: func(d *database.DriverProfile, j *database.JobPosting) {
				j.State = strPtr("OK")
			},
			category: "location",
			want:     14, // 0.7 * 20
		},
		{
			name: "different region",
			modify: func(d *database.DriverProfile, j *database.JobPosting) {
				j.State = strPtr("WA")
			},
			category: "location",
			want:     6, // 0.3 * 20
		},
		{
			name: "experience meets minimum",
			modify: func(d *database.DriverProfile, j *database.JobPosting) {
				j.MinExperienceYears = intPtr(5)
			},
			category: "experience",
			want:     20,
		},
		{
			name: "experience one year short",
			modify: func(d *database.DriverProfile, j *database.JobPosting) {
				d.ExperienceYears = 4
				j.MinExperienceYears = intPtr(5)
			},
			category: "experience",
			want:     10, // 0.5 * 20
		},
		{
			name: "experience well short",
			modify: func(d *database.DriverProfile, j *database.JobPosting) {
				d.ExperienceYears = 1
				j.MinExperienceYears = intPtr(5)
			},
			category: "experience",
			want:     2, // 0.1 * 20
		},
		{
			name: "either team preference matches team job",
			modify: func(d *database.DriverProfile, j *database.JobPosting) {
				d.TeamDriving = strPtr("either")
				j.TeamDriving = "team"
			},
			category: "team_driving",
			want:     15,
		},
		{
			name: "team mismatch",
			modify: func(d *database.DriverProfile, j *database.JobPosting) {
				j.TeamDriving = "team"
			},
			category: "team_driving",
			want:     3, // 0.2 * 15
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, job := testDriver(), testJob()
			tt.modify(driver, job)

			result, err := scorer.Score(driver, job)
			if err != nil {
				t.Fatalf("Score failed: %v", err)
			}

			for _, item := range result.Items {
				if item.Category == tt.category {
					if item.Score != tt.want {
						t.Errorf("category %s: expected score %d, got %d", tt.category, tt.want, item.Score)
					}
					return
				}
			}
			t.Fatalf("category %s not found in breakdown", tt.category)
		})
	}
}

func TestRulesScorerInvalidCandidate(t *testing.T) {
	scorer := NewRulesScorer(testWeights())

	tests := []struct {
		name   string
		driver *database.DriverProfile
		job    *database.JobPosting
	}{
		{"nil driver", nil, testJob()},
		{"nil job", testDriver(), nil},
		{"driver missing id", &database.DriverProfile{}, testJob()},
		{
			"job with no attributes",
			testDriver(),
			&database.JobPosting{ID: "job-x", CompanyID: "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scorer.Score(tt.driver, tt.job)
			if !errors.Is(err, ErrInvalidCandidate) {
				t.Errorf("expected ErrInvalidCandidate, got %v", err)
			}
		})
	}
}
