package validation

import (
	"fmt"
	"strings"

	"escaperoom/internal/models"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateUsername checks if a staff username is valid
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return ValidationError{Field: "username", Message: "username is required"}
	}
	if len(username) < 3 {
		return ValidationError{Field: "username", Message: "username must be at least 3 characters"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < 8 {
		return ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	return nil
}

// ValidateName checks if a display name is valid
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if len(name) < 2 {
		return ValidationError{Field: "name", Message: "name must be at least 2 characters"}
	}
	return nil
}

// knownKinds lists the puzzle kinds the display and the answer matcher
// understand.
var knownKinds = map[string]bool{
	models.PuzzleKindCipher: true,
	models.PuzzleKindRiddle: true,
	models.PuzzleKindLogic:  true,
}

// ValidateGame checks an authored game definition before it is saved.
func ValidateGame(game *models.Game) error {
	if game == nil {
		return ValidationError{Field: "game", Message: "game is required"}
	}
	if strings.TrimSpace(game.Title) == "" {
		return ValidationError{Field: "title", Message: "title is required"}
	}
	if game.FailureBudget < 1 {
		return ValidationError{Field: "failure_budget", Message: "failure budget must be at least 1"}
	}
	if len(game.Puzzles) == 0 {
		return ValidationError{Field: "puzzles", Message: "at least one puzzle is required"}
	}

	for i, puzzle := range game.Puzzles {
		if err := validatePuzzle(i, puzzle, game.FailureBudget); err != nil {
			return err
		}
	}

	return nil
}

func validatePuzzle(index int, puzzle models.Puzzle, budget int) error {
	field := fmt.Sprintf("puzzles[%d]", index)

	if !knownKinds[puzzle.Kind] {
		return ValidationError{Field: field, Message: fmt.Sprintf("unknown puzzle kind %q", puzzle.Kind)}
	}
	if strings.TrimSpace(puzzle.Instruction) == "" {
		return ValidationError{Field: field, Message: "instruction is required"}
	}
	if strings.TrimSpace(puzzle.CorrectAnswer) == "" {
		return ValidationError{Field: field, Message: "correct answer is required"}
	}
	if puzzle.Kind == models.PuzzleKindCipher && puzzle.CipherKey%26 == 0 {
		return ValidationError{Field: field, Message: "cipher puzzles need a key that actually shifts the alphabet"}
	}
	if puzzle.EstimatedSeconds < 0 {
		return ValidationError{Field: field, Message: "estimated seconds cannot be negative"}
	}
	// Hints are revealed one per wrong attempt; a puzzle with as many hints
	// as the failure budget could be held past the budget without advancing.
	if len(puzzle.Hints) >= budget {
		return ValidationError{Field: field, Message: "a puzzle must have fewer hints than the failure budget"}
	}

	return nil
}
