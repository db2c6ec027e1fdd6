package models

import "time"

// User types. The type gates which events a session may issue: only
// instructors and coordinators may open the editor or save games.
const (
	UserTypeStudent     = "student"
	UserTypeInstructor  = "instructor"
	UserTypeCoordinator = "coordinator"
)

// Session is the mutable progress record for one player driving one game.
// It is keyed by (UserID, SessionID) and deleted when the game finalizes.
type Session struct {
	UserID             string
	SessionID          string
	UserType           string
	GameID             string // empty means no game loaded
	CurrentPuzzleIndex int
	PuzzleStarted      bool
	PuzzleTimerActive  bool
	FailuresOnPuzzle   int
	FailuresTotal      int
	PuzzlesCleared     int
	StartedAt          *time.Time
	EndedAt            *time.Time
	CreatedAt          time.Time
}

// IsStaff reports whether the session belongs to an instructor or coordinator.
func (s *Session) IsStaff() bool {
	return s != nil && (s.UserType == UserTypeInstructor || s.UserType == UserTypeCoordinator)
}

// HasGame reports whether a game is currently loaded.
func (s *Session) HasGame() bool {
	return s != nil && s.GameID != ""
}

// SessionUpdate describes a partial-field merge of a session record. Nil
// pointer fields are left untouched.
type SessionUpdate struct {
	GameID             *string
	CurrentPuzzleIndex *int
	PuzzleStarted      *bool
	PuzzleTimerActive  *bool
	FailuresOnPuzzle   *int
	FailuresTotal      *int
	PuzzlesCleared     *int
	StartedAt          *time.Time
	ClearEndedAt       bool
}
