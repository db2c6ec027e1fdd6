package engine

// Decision is the outcome of resolving a puzzle: either the game moves on to
// the next puzzle behind a confirmation prompt, or it is over.
type Decision int

const (
	DecisionContinue Decision = iota
	DecisionFinalize
)

// Decide maps a puzzle index onto the continue-or-finish decision. Every
// resolution path routes through here so no caller can forget the finalize
// check.
func Decide(index, puzzleCount int) Decision {
	if index >= puzzleCount {
		return DecisionFinalize
	}
	return DecisionContinue
}
