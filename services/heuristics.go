package services

import "time"

// Geo-duplicate search parameters. The box is a flat-degree approximation of
// roughly one kilometre, not a great-circle distance.
const (
	DuplicateRadiusDegrees = 0.009
	DuplicateSearchLimit   = 5
)

// FraudFlag is a warning surfaced to privileged viewers.
type FraudFlag struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

const (
	FlagRateLimit = "rate_limit"
	FlagDuplicate = "duplicate"

	SeverityHigh   = "high"
	SeverityMedium = "medium"
)

// FraudRules holds the thresholds shared by the admin detail view and the
// citizen self-check. A flag is raised when a count exceeds its limit.
type FraudRules struct {
	Window       time.Duration
	MaxRecent    int64
	MaxSameTitle int64
}

var DefaultFraudRules = FraudRules{
	Window:       10 * time.Minute,
	MaxRecent:    5,
	MaxSameTitle: 1,
}

// WindowStart is the beginning of the velocity window ending at now.
func (r FraudRules) WindowStart(now time.Time) time.Time {
	return now.Add(-r.Window)
}

// Velocity flags a reporter with too many submissions inside the window.
func (r FraudRules) Velocity(recent int64) (FraudFlag, bool) {
	if recent <= r.MaxRecent {
		return FraudFlag{}, false
	}
	return FraudFlag{
		Type:     FlagRateLimit,
		Severity: SeverityHigh,
		Message:  "High submission rate (Potential Spam)",
	}, true
}

// DuplicateTitle flags a reporter who reused the same title too often.
func (r FraudRules) DuplicateTitle(sameTitle int64) (FraudFlag, bool) {
	if sameTitle <= r.MaxSameTitle {
		return FraudFlag{}, false
	}
	return duplicateTitleFlag, true
}

var duplicateTitleFlag = FraudFlag{
	Type:     FlagDuplicate,
	Severity: SeverityMedium,
	Message:  "Multiple complaints submitted with an identical title",
}

// Flags evaluates both rules.
func (r FraudRules) Flags(recent, sameTitle int64) []FraudFlag {
	flags := []FraudFlag{}
	if f, ok := r.Velocity(recent); ok {
		flags = append(flags, f)
	}
	if f, ok := r.DuplicateTitle(sameTitle); ok {
		flags = append(flags, f)
	}
	return flags
}

// BoxAround returns the duplicate-search box centred on a point.
func BoxAround(lat, lng float64) BoundingBox {
	return BoundingBox{
		MinLat: lat - DuplicateRadiusDegrees,
		MaxLat: lat + DuplicateRadiusDegrees,
		MinLng: lng - DuplicateRadiusDegrees,
		MaxLng: lng + DuplicateRadiusDegrees,
	}
}

// StartOfLocalDay is midnight of now's day in the server's local zone. The
// daily complaint cap counts from this instant.
func StartOfLocalDay(now time.Time) time.Time {
	local := now.In(time.Local)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}
