package repository

import (
	"escaperoom/internal/database"
	"escaperoom/internal/models"
)

// ResultRepository handles finalized game results. Results are append-only:
// there is no update or delete.
type ResultRepository struct {
	db database.DBTX
}

// NewResultRepository creates a new result repository
func NewResultRepository(db database.DBTX) *ResultRepository {
	return &ResultRepository{db: db}
}

// Append stores an immutable result record
func (r *ResultRepository) Append(result *models.Result) error {
	query := `
		INSERT INTO results (id, user_id, failures_total, puzzles_cleared,
		       started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		result.ID,
		result.UserID,
		result.FailuresTotal,
		result.PuzzlesCleared,
		result.StartedAt,
		result.EndedAt,
	)
	return err
}

// ListByUser retrieves all results for a user, newest first
func (r *ResultRepository) ListByUser(userID string) ([]models.Result, error) {
	query := `
		SELECT id, user_id, failures_total, puzzles_cleared, started_at, ended_at
		FROM results
		WHERE user_id = ?
		ORDER BY ended_at DESC
	`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.Result
	for rows.Next() {
		var result models.Result
		err := rows.Scan(
			&result.ID,
			&result.UserID,
			&result.FailuresTotal,
			&result.PuzzlesCleared,
			&result.StartedAt,
			&result.EndedAt,
		)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, rows.Err()
}
