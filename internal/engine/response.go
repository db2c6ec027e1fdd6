package engine

// Directive actions understood by the companion display.
const (
	ActionShowPuzzle  = "show_puzzle"
	ActionShowHint    = "show_hint"
	ActionShowCover   = "show_cover"
	ActionEditorOpen  = "editor_open"
	ActionLoginOK     = "login_ok"
	ActionSaveOK      = "save_ok"
	ActionLogout      = "logout"
	ActionShowResults = "show_results"
)

// Directive instructs the companion display to change what it renders.
type Directive struct {
	Action  string `json:"action"`
	Payload any    `json:"payload,omitempty"`
}

// Response is the outcome of handling one event: spoken text, an optional
// reprompt when the turn stays open, an optional display directive, and
// whether the conversational turn ends here.
type Response struct {
	Speech     string     `json:"speech"`
	Reprompt   string     `json:"reprompt,omitempty"`
	Directive  *Directive `json:"directive,omitempty"`
	EndSession bool       `json:"end_session"`
}

// PuzzlePayload is the show_puzzle directive body. Data carries the
// obfuscated cipher text for cipher puzzles; the plain answer never
// leaves the server.
type PuzzlePayload struct {
	Kind             string `json:"kind"`
	Instruction      string `json:"instruction"`
	Data             string `json:"data,omitempty"`
	EstimatedSeconds int    `json:"estimated_seconds"`
}

// HintPayload is the show_hint directive body.
type HintPayload struct {
	Number int    `json:"number"`
	Hint   string `json:"hint"`
}

// CoverPayload is the show_cover directive body.
type CoverPayload struct {
	Title string `json:"title"`
	Theme string `json:"theme,omitempty"`
}

// GameSummary is one catalog entry in the editor_open directive body.
type GameSummary struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Course  string `json:"course,omitempty"`
	Puzzles int    `json:"puzzles"`
}

// ResultEntry is one record in the show_results directive body.
type ResultEntry struct {
	PuzzlesCleared int `json:"puzzles_cleared"`
	FailuresTotal  int `json:"failures_total"`
	ElapsedSeconds int `json:"elapsed_seconds"`
}

// guidance builds a non-mutating response that keeps the turn open.
func guidance(speech string) Response {
	return Response{Speech: speech, Reprompt: speech}
}
