package comptypes

// ReportType classifies advisory and validation findings.
type ReportType string

// Validation findings.
const (
	ReportNoRoundsForEvent                 ReportType = "NO_ROUNDS_FOR_EVENT"
	ReportMissingAdvancementCondition      ReportType = "MISSING_ADVANCEMENT_CONDITION"
	ReportNoScheduleActivitiesForRound     ReportType = "NO_SCHEDULE_ACTIVITIES_FOR_ROUND"
	ReportMissingActivityForAssignment     ReportType = "MISSING_ACTIVITY_FOR_PERSON_ASSIGNMENT"
	ReportPersonAssignmentScheduleConflict ReportType = "PERSON_ASSIGNMENT_SCHEDULE_CONFLICT"
)

// Import advisories.
const (
	ReportMissingEmailColumn     ReportType = "MISSING_EMAIL_COLUMN"
	ReportRowMissingEmail        ReportType = "ROW_MISSING_EMAIL"
	ReportUnknownEmail           ReportType = "UNKNOWN_EMAIL"
	ReportMissingCompetitorValue ReportType = "MISSING_COMPETITOR_VALUE"
	ReportInvalidCompetingCell   ReportType = "INVALID_COMPETING_CELL"
	ReportInvalidStaffCell       ReportType = "INVALID_STAFF_CELL"
	ReportUnresolvedStage        ReportType = "UNRESOLVED_STAGE"
	ReportMissingRoundActivity   ReportType = "MISSING_ROUND_ACTIVITY"
)

// Report is a non-fatal finding surfaced to the caller.
type Report struct {
	Type    ReportType     `json:"type"`
	Key     string         `json:"key"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// ReportsOfType filters reports by type.
func ReportsOfType(reports []Report, t ReportType) []Report {
	var out []Report
	for _, r := range reports {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out
}
