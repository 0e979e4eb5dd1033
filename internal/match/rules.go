package match

import (
	"fmt"
	"math"
	"strings"

	"github.com/vijay-prabhu/cdlmatch/internal/config"
	"github.com/vijay-prabhu/cdlmatch/internal/database"
)

// neutralFraction is the share of a category's points awarded when the
// driver attribute needed to evaluate it is missing. Missing data is never
// penalized to zero.
const neutralFraction = 0.5

// usRegions groups states for coarse location compatibility
var usRegions = map[string]string{
	"CT": "northeast", "ME": "northeast", "MA": "northeast", "NH": "northeast",
	"NJ": "northeast", "NY": "northeast", "PA": "northeast", "RI": "northeast",
	"VT": "northeast",
	"IL": "midwest", "IN": "midwest", "IA": "midwest", "KS": "midwest",
	"MI": "midwest", "MN": "midwest", "MO": "midwest", "NE": "midwest",
	"ND": "midwest", "OH": "midwest", "SD": "midwest", "WI": "midwest",
	"AL": "south", "AR": "south", "DE": "south", "FL": "south",
	"GA": "south", "KY": "south", "LA": "south", "MD": "south",
	"MS": "south", "NC": "south", "OK": "south", "SC": "south",
	"TN": "south", "TX": "south", "VA": "south", "WV": "south",
	"AK": "west", "AZ": "west", "CA": "west", "CO": "west",
	"HI": "west", "ID": "west", "MT": "west", "NV": "west",
	"NM": "west", "OR": "west", "UT": "west", "WA": "west",
	"WY": "west",
}

// RulesScorer computes the deterministic attribute-match sub-score. It is
// pure: no I/O, no randomness, identical inputs always yield identical
// output. It runs even when every other signal is unavailable and defines
// the floor for degraded mode.
type RulesScorer struct {
	weights config.RuleWeights
}

// NewRulesScorer creates a RulesScorer with the given category weights
func NewRulesScorer(weights config.RuleWeights) *RulesScorer {
	return &RulesScorer{weights: weights}
}

// Score evaluates one driver against one job posting
func (s *RulesScorer) Score(driver *database.DriverProfile, job *database.JobPosting) (*RulesResult, error) {
	if driver == nil || job == nil || driver.ID == "" || job.ID == "" {
		return nil, fmt.Errorf("%w: missing identity fields", ErrInvalidCandidate)
	}
	if job.DriverType == "" && job.RouteType == "" && job.FreightType == "" {
		return nil, fmt.Errorf("%w: job %s has no matchable attributes", ErrInvalidCandidate, job.ID)
	}

	result := &RulesResult{MaxPoints: s.weights.Total()}

	items := []database.BreakdownItem{
		s.scoreDriverType(driver, job, result),
		s.scoreRouteType(driver, job, result),
		s.scoreLocation(driver, job, result),
		s.scoreExperience(driver, job),
		s.scoreTeamDriving(driver, job, result),
	}

	for _, item := range items {
		result.Points += item.Score
	}
	result.Items = items

	if result.MaxPoints > 0 {
		result.Score = int(math.Round(float64(result.Points) / float64(result.MaxPoints) * 100))
	}

	// Absent free-text notes don't affect the rules score, but they mean
	// the semantic signal has nothing to work with; surface that.
	if driver.Notes == nil || strings.TrimSpace(*driver.Notes) == "" {
		result.MissingFields = append(result.MissingFields, "notes")
	}

	return result, nil
}

func (s *RulesScorer) scoreDriverType(driver *database.DriverProfile, job *database.JobPosting, result *RulesResult) database.BreakdownItem {
	weight := s.weights.DriverType
	item := database.BreakdownItem{Category: string(CategoryDriverType), MaxScore: weight}

	if driver.DriverType == nil || *driver.DriverType == "" {
		result.MissingFields = append(result.MissingFields, "driver_type")
		item.Score = neutral(weight)
		item.Detail = "No driver type preference on file"
		return item
	}
	if job.DriverType == "" {
		item.Score = neutral(weight)
		item.Detail = "Job does not specify a driver type"
		return item
	}

	if *driver.DriverType == job.DriverType {
		item.Score = weight
		item.Detail = fmt.Sprintf("%s position matches your preference", driverTypeLabel(job.DriverType))
		return item
	}

	item.Score = fraction(weight, 0.2)
	item.Detail = fmt.Sprintf("%s position differs from your %s preference",
		driverTypeLabel(job.DriverType), driverTypeLabel(*driver.DriverType))
	return item
}

func (s *RulesScorer) scoreRouteType(driver *database.DriverProfile, job *database.JobPosting, result *RulesResult) database.BreakdownItem {
	weight := s.weights.RouteType
	item := database.BreakdownItem{Category: string(CategoryRouteType), MaxScore: weight}

	if driver.RouteType == nil || *driver.RouteType == "" {
		result.MissingFields = append(result.MissingFields, "route_type")
		item.Score = neutral(weight)
		item.Detail = "No route type preference on file"
		return item
	}
	if job.RouteType == "" {
		item.Score = neutral(weight)
		item.Detail = "Job does not specify a route type"
		return item
	}

	want, have := *driver.RouteType, job.RouteType
	switch {
	case want == have:
		item.Score = weight
		item.Detail = fmt.Sprintf("%s routes match your preference", routeTypeLabel(have))
	case adjacentRoutes(want, have):
		item.Score = fraction(weight, 0.5)
		item.Detail = fmt.Sprintf("%s routes are close to your %s preference",
			routeTypeLabel(have), routeTypeLabel(want))
	default:
		item.Score = fraction(weight, 0.2)
		item.Detail = fmt.Sprintf("%s routes differ from your %s preference",
			routeTypeLabel(have), routeTypeLabel(want))
	}
	return item
}

func (s *RulesScorer) scoreLocation(driver *database.DriverProfile, job *database.JobPosting, result *RulesResult) database.BreakdownItem {
	weight := s.weights.Location
	item := database.BreakdownItem{Category: string(CategoryLocation), MaxScore: weight}

	if driver.LicenseState == "" {
		result.MissingFields = append(result.MissingFields, "license_state")
		item.Score = neutral(weight)
		item.Detail = "No license state on file"
		return item
	}
	if job.State == nil || *job.State == "" {
		item.Score = neutral(weight)
		item.Detail = "Job does not specify a location"
		return item
	}

	driverState := strings.ToUpper(driver.LicenseState)
	jobState := strings.ToUpper(*job.State)
	switch {
	case driverState == jobState:
		item.Score = weight
		item.Detail = fmt.Sprintf("Based in %s, same state as you", jobState)
	case usRegions[driverState] != "" && usRegions[driverState] == usRegions[jobState]:
		item.Score = fraction(weight, 0.7)
		item.Detail = fmt.Sprintf("Based in %s, in your region", jobState)
	default:
		item.Score = fraction(weight, 0.3)
		item.Detail = fmt.Sprintf("Based in %s, outside your region", jobState)
	}
	return item
}

func (s *RulesScorer) scoreExperience(driver *database.DriverProfile, job *database.JobPosting) database.BreakdownItem {
	weight := s.weights.Experience
	item := database.BreakdownItem{Category: string(CategoryExperience), MaxScore: weight}

	if job.MinExperienceYears == nil {
		item.Score = weight
		item.Detail = "No minimum experience required"
		return item
	}

	min := *job.MinExperienceYears
	switch {
	case driver.ExperienceYears >= min:
		item.Score = weight
		item.Detail = fmt.Sprintf("Your %d years meet the %d-year minimum", driver.ExperienceYears, min)
	case driver.ExperienceYears >= min-1:
		item.Score = fraction(weight, 0.5)
		item.Detail = fmt.Sprintf("Your %d years are just under the %d-year minimum", driver.ExperienceYears, min)
	default:
		item.Score = fraction(weight, 0.1)
		item.Detail = fmt.Sprintf("Requires %d years of experience, you have %d", min, driver.ExperienceYears)
	}
	return item
}

func (s *RulesScorer) scoreTeamDriving(driver *database.DriverProfile, job *database.JobPosting, result *RulesResult) database.BreakdownItem {
	weight := s.weights.TeamDriving
	item := database.BreakdownItem{Category: string(CategoryTeamDriving), MaxScore: weight}

	if driver.TeamDriving == nil || *driver.TeamDriving == "" {
		result.MissingFields = append(result.MissingFields, "team_driving")
		item.Score = neutral(weight)
		item.Detail = "No team driving preference on file"
		return item
	}
	if job.TeamDriving == "" {
		item.Score = neutral(weight)
		item.Detail = "Job does not specify solo or team"
		return item
	}

	want, have := *driver.TeamDriving, job.TeamDriving
	switch {
	case want == string(database.TeamDrivingEither) || want == have:
		item.Score = weight
		if have == string(database.TeamDrivingTeam) {
			item.Detail = "Team driving, as you prefer"
		} else {
			item.Detail = "Solo driving, as you prefer"
		}
	default:
		item.Score = fraction(weight, 0.2)
		item.Detail = fmt.Sprintf("%s position differs from your %s preference",
			titleCase(have), want)
	}
	return item
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// adjacentRoutes reports whether two route types are near neighbors
// (OTR/regional and regional/local overlap in practice; OTR/local do not)
func adjacentRoutes(a, b string) bool {
	pair := a + "|" + b
	switch pair {
	case "otr|regional", "regional|otr", "regional|local", "local|regional":
		return true
	}
	return false
}

func neutral(weight int) int {
	return fraction(weight, neutralFraction)
}

func fraction(weight int, f float64) int {
	return int(math.Round(float64(weight) * f))
}

func driverTypeLabel(t string) string {
	switch database.DriverType(t) {
	case database.DriverTypeCompany:
		return "Company driver"
	case database.DriverTypeOwnerOperator:
		return "Owner-operator"
	case database.DriverTypeLease:
		return "Lease-purchase"
	case database.DriverTypeStudent:
		return "Student driver"
	default:
		return t
	}
}

func routeTypeLabel(t string) string {
	switch database.RouteType(t) {
	case database.RouteTypeOTR:
		return "OTR"
	case database.RouteTypeRegional:
		return "Regional"
	case database.RouteTypeLocal:
		return "Local"
	default:
		return t
	}
}
