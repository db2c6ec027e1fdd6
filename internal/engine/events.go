package engine

import "escaperoom/internal/models"

// EventType classifies an inbound occurrence. Voice intents and display
// messages are both mapped onto these before reaching the engine.
type EventType string

const (
	EventLoadGame        EventType = "load_game"
	EventConfirmContinue EventType = "confirm_continue"
	EventSubmitAnswer    EventType = "submit_answer"
	EventTimeout         EventType = "timeout"
	EventOpenEditor      EventType = "open_editor"
	EventSaveGame        EventType = "save_game"
	EventQueryResults    EventType = "query_results"
	EventCloseSession    EventType = "close_session"
)

// Event is one inbound occurrence, already resolved to a (user, session)
// context by the transport layer. Only the fields relevant to the event type
// are populated.
type Event struct {
	Type      EventType `json:"type"`
	UserID    string    `json:"-"`
	SessionID string    `json:"-"`

	// load_game
	Title string `json:"title,omitempty"`

	// submit_answer
	Answer string `json:"answer,omitempty"`

	// save_game
	Game *models.Game `json:"game,omitempty"`

	// query_results
	StudentName   string `json:"student_name,omitempty"`
	StudentCourse string `json:"student_course,omitempty"`
	StudentGroup  string `json:"student_group,omitempty"`
}
