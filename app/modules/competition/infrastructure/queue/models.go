package competitionqueue

// GenerateAssignmentsJob runs an assignment recipe for one round at its
// scheduled time.
type GenerateAssignmentsJob struct {
	CompetitionID string `json:"competition_id"`
	RoundCode     string `json:"round_code"`
	RecipeID      string `json:"recipe_id,omitempty"`
}

// Kind returns the job type identifier for River
func (GenerateAssignmentsJob) Kind() string { return "generate_assignments" }

// JobInfo represents information about a scheduled job (for debugging/monitoring)
type JobInfo struct {
	ID            int64  `json:"id"`
	Kind          string `json:"kind"`
	CompetitionID string `json:"competition_id"`
	RoundCode     string `json:"round_code"`
	RecipeID      string `json:"recipe_id,omitempty"`
	State         string `json:"state"`
	ScheduledAt   string `json:"scheduled_at"`
	CreatedAt     string `json:"created_at"`
	Attempt       int    `json:"attempt"`
	MaxAttempts   int    `json:"max_attempts"`
}
