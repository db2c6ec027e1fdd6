package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"escaperoom/internal/database"
	"escaperoom/internal/models"
)

// SessionRepository handles game session database operations
type SessionRepository struct {
	db database.DBTX
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db database.DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session record
func (r *SessionRepository) Create(session *models.Session) error {
	query := `
		INSERT INTO game_sessions (user_id, session_id, user_type, game_id,
		       current_puzzle_index, puzzle_started, puzzle_timer_active,
		       failures_on_puzzle, failures_total, puzzles_cleared,
		       started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		session.UserID,
		session.SessionID,
		session.UserType,
		session.GameID,
		session.CurrentPuzzleIndex,
		session.PuzzleStarted,
		session.PuzzleTimerActive,
		session.FailuresOnPuzzle,
		session.FailuresTotal,
		session.PuzzlesCleared,
		session.StartedAt,
		session.EndedAt,
	)
	return err
}

// Get retrieves a session by its composite key. Returns nil without error
// when the session does not exist.
func (r *SessionRepository) Get(userID, sessionID string) (*models.Session, error) {
	query := `
		SELECT user_id, session_id, user_type, game_id, current_puzzle_index,
		       puzzle_started, puzzle_timer_active, failures_on_puzzle,
		       failures_total, puzzles_cleared, started_at, ended_at, created_at
		FROM game_sessions
		WHERE user_id = ? AND session_id = ?
	`

	session := &models.Session{}
	var startedAt, endedAt sql.NullTime

	err := r.db.QueryRow(query, userID, sessionID).Scan(
		&session.UserID,
		&session.SessionID,
		&session.UserType,
		&session.GameID,
		&session.CurrentPuzzleIndex,
		&session.PuzzleStarted,
		&session.PuzzleTimerActive,
		&session.FailuresOnPuzzle,
		&session.FailuresTotal,
		&session.PuzzlesCleared,
		&startedAt,
		&endedAt,
		&session.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if startedAt.Valid {
		session.StartedAt = &startedAt.Time
	}
	if endedAt.Valid {
		session.EndedAt = &endedAt.Time
	}

	return session, nil
}

// UpdateFields applies a partial-field merge to a session record. Only the
// non-nil fields of the update are written.
func (r *SessionRepository) UpdateFields(userID, sessionID string, update models.SessionUpdate) error {
	var sets []string
	var args []interface{}

	if update.GameID != nil {
		sets = append(sets, "game_id = ?")
		args = append(args, *update.GameID)
	}
	if update.CurrentPuzzleIndex != nil {
		sets = append(sets, "current_puzzle_index = ?")
		args = append(args, *update.CurrentPuzzleIndex)
	}
	if update.PuzzleStarted != nil {
		sets = append(sets, "puzzle_started = ?")
		args = append(args, *update.PuzzleStarted)
	}
	if update.PuzzleTimerActive != nil {
		sets = append(sets, "puzzle_timer_active = ?")
		args = append(args, *update.PuzzleTimerActive)
	}
	if update.FailuresOnPuzzle != nil {
		sets = append(sets, "failures_on_puzzle = ?")
		args = append(args, *update.FailuresOnPuzzle)
	}
	if update.FailuresTotal != nil {
		sets = append(sets, "failures_total = ?")
		args = append(args, *update.FailuresTotal)
	}
	if update.PuzzlesCleared != nil {
		sets = append(sets, "puzzles_cleared = ?")
		args = append(args, *update.PuzzlesCleared)
	}
	if update.StartedAt != nil {
		sets = append(sets, "started_at = ?")
		args = append(args, *update.StartedAt)
	}
	if update.ClearEndedAt {
		sets = append(sets, "ended_at = NULL")
	}

	if len(sets) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE game_sessions SET %s WHERE user_id = ? AND session_id = ?", strings.Join(sets, ", "))
	args = append(args, userID, sessionID)

	_, err := r.db.Exec(query, args...)
	return err
}

// Delete removes a session record
func (r *SessionRepository) Delete(userID, sessionID string) error {
	query := "DELETE FROM game_sessions WHERE user_id = ? AND session_id = ?"
	_, err := r.db.Exec(query, userID, sessionID)
	return err
}

// AdvancePuzzle moves a session to the next puzzle in a single conditional
// update. The row is only written when the puzzle timer is still active and
// the puzzle index is still fromIndex, so a late answer and a display timeout
// can never both advance the same puzzle. Returns false when another event
// already resolved the puzzle.
func (r *SessionRepository) AdvancePuzzle(userID, sessionID string, fromIndex, clearedDelta, failureDelta int) (bool, error) {
	query := `
		UPDATE game_sessions
		SET current_puzzle_index = current_puzzle_index + 1,
		    puzzle_started = ?,
		    puzzle_timer_active = ?,
		    failures_on_puzzle = 0,
		    puzzles_cleared = puzzles_cleared + ?,
		    failures_total = failures_total + ?
		WHERE user_id = ? AND session_id = ?
		  AND puzzle_timer_active = ?
		  AND current_puzzle_index = ?
	`

	result, err := r.db.Exec(query, false, false, clearedDelta, failureDelta,
		userID, sessionID, true, fromIndex)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// RecordFailure counts one wrong attempt on the current puzzle, conditional
// on the timer still being active and the failure count not having moved
// since the session was read. Returns false when the attempt lost that race.
func (r *SessionRepository) RecordFailure(userID, sessionID string, fromFailures int) (bool, error) {
	query := `
		UPDATE game_sessions
		SET failures_on_puzzle = failures_on_puzzle + 1,
		    failures_total = failures_total + 1
		WHERE user_id = ? AND session_id = ?
		  AND puzzle_timer_active = ?
		  AND failures_on_puzzle = ?
	`

	result, err := r.db.Exec(query, userID, sessionID, true, fromFailures)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
