package model

import "time"

// RunStatus is the terminal state of a matching run.
type RunStatus string

const (
	RunStatusComplete RunStatus = "complete"
	RunStatusPartial  RunStatus = "partial"
	RunStatusFailed   RunStatus = "failed"
)

// RunStats aggregates per-wine outcomes of one matching run. It is a plain
// value threaded back to the caller; workers report into it through the
// orchestrator, never through package state.
type RunStats struct {
	WinesProcessed  int           `json:"wines_processed"`
	MatchedByAI     int           `json:"matched_by_ai"`
	MatchedFallback int           `json:"matched_by_fallback"`
	Unmatched       int           `json:"unmatched"`
	Errors          int           `json:"errors"`
	AverageScore    float64       `json:"average_score"`
	Duration        time.Duration `json:"duration"`
}

// Matched returns the total matches recorded regardless of method.
func (s RunStats) Matched() int {
	return s.MatchedByAI + s.MatchedFallback
}

// Status derives the user-visible run status from the counters.
func (s RunStats) Status() RunStatus {
	switch {
	case s.WinesProcessed == 0 || s.Errors >= s.WinesProcessed:
		return RunStatusFailed
	case s.Errors > 0:
		return RunStatusPartial
	default:
		return RunStatusComplete
	}
}

// RunSummary is the event emitted once per completed run to the
// notification collaborator and appended to the update log.
type RunSummary struct {
	ID           string    `json:"id"`
	ToplistID    string    `json:"toplist_id"`
	ToplistName  string    `json:"toplist_name"`
	WinesFound   int       `json:"wines_found"`
	MatchesFound int       `json:"matches_found"`
	Status       RunStatus `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
}
