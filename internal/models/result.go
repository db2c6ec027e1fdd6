package models

import "time"

// Result is the immutable record written when a game session finalizes.
// Results are append-only; reporting tools consume them elsewhere.
type Result struct {
	ID             string
	UserID         string
	FailuresTotal  int
	PuzzlesCleared int
	StartedAt      time.Time
	EndedAt        time.Time
}

// ElapsedSeconds returns the whole seconds between game start and end.
func (r *Result) ElapsedSeconds() int {
	return int(r.EndedAt.Sub(r.StartedAt) / time.Second)
}
