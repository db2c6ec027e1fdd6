package models

import "time"

// Puzzle kinds. The kind selects the companion display page and the
// answer-matching policy.
const (
	PuzzleKindCipher = "substitution-cipher"
	PuzzleKindRiddle = "riddle"
	PuzzleKindLogic  = "logic"
)

// Puzzle is a single challenge inside a game. Puzzles are authored once and
// never modified afterwards.
type Puzzle struct {
	Kind             string   `json:"kind"`
	Instruction      string   `json:"instruction"`
	CorrectAnswer    string   `json:"correct_answer"`
	CipherKey        int      `json:"cipher_key,omitempty"`
	Hints            []string `json:"hints,omitempty"`
	EstimatedSeconds int      `json:"estimated_seconds"`
	PostNarrative    string   `json:"post_narrative,omitempty"`
}

// Game is an authored escape room: an intro narrative plus an ordered list of
// puzzles. The order of Puzzles defines the progression.
type Game struct {
	ID             string
	Title          string
	NarrativeIntro string
	CoverTheme     string
	Course         string
	FailureBudget  int
	Puzzles        []Puzzle
	CreatedAt      time.Time
}

// PuzzleAt returns the puzzle at the given index, or nil when the index is
// out of range.
func (g *Game) PuzzleAt(index int) *Puzzle {
	if g == nil || index < 0 || index >= len(g.Puzzles) {
		return nil
	}
	return &g.Puzzles[index]
}

// Finished reports whether the given puzzle index is past the last puzzle.
func (g *Game) Finished(index int) bool {
	return g == nil || index >= len(g.Puzzles)
}
