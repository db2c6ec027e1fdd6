package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"escaperoom/internal/answer"
	"escaperoom/internal/database"
	"escaperoom/internal/models"
)

// ErrDuplicateTitle is returned when saving a game whose title is already taken.
var ErrDuplicateTitle = errors.New("a game with that title already exists")

// GameRepository handles game catalog database operations. Games are written
// once by the editor and read-only afterwards.
type GameRepository struct {
	db database.DBTX
}

// NewGameRepository creates a new game repository
func NewGameRepository(db database.DBTX) *GameRepository {
	return &GameRepository{db: db}
}

// Save stores a new game definition. Titles are unique case-insensitively.
func (r *GameRepository) Save(game *models.Game) error {
	normalized := answer.Normalize(game.Title)

	existing, err := r.GetByTitle(game.Title)
	if err != nil {
		return fmt.Errorf("failed to check existing title: %w", err)
	}
	if existing != nil {
		return ErrDuplicateTitle
	}

	puzzles, err := json.Marshal(game.Puzzles)
	if err != nil {
		return fmt.Errorf("failed to encode puzzles: %w", err)
	}

	query := `
		INSERT INTO games (id, title, title_normalized, narrative_intro,
		       cover_theme, course, failure_budget, puzzles)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		game.ID,
		game.Title,
		normalized,
		game.NarrativeIntro,
		game.CoverTheme,
		game.Course,
		game.FailureBudget,
		string(puzzles),
	)
	return err
}

// GetByID retrieves a game by its ID. Returns nil without error on a miss.
func (r *GameRepository) GetByID(id string) (*models.Game, error) {
	query := `
		SELECT id, title, narrative_intro, cover_theme, course,
		       failure_budget, puzzles, created_at
		FROM games
		WHERE id = ?
	`
	return r.scanGame(r.db.QueryRow(query, id))
}

// GetByTitle retrieves a game by title, matching case-insensitively on the
// normalized form. Returns nil without error on a miss.
func (r *GameRepository) GetByTitle(title string) (*models.Game, error) {
	query := `
		SELECT id, title, narrative_intro, cover_theme, course,
		       failure_budget, puzzles, created_at
		FROM games
		WHERE title_normalized = ?
	`
	return r.scanGame(r.db.QueryRow(query, answer.Normalize(title)))
}

// List retrieves all games ordered by title
func (r *GameRepository) List() ([]models.Game, error) {
	query := `
		SELECT id, title, narrative_intro, cover_theme, course,
		       failure_budget, puzzles, created_at
		FROM games
		ORDER BY title_normalized ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []models.Game
	for rows.Next() {
		var game models.Game
		var puzzles []byte
		err := rows.Scan(
			&game.ID,
			&game.Title,
			&game.NarrativeIntro,
			&game.CoverTheme,
			&game.Course,
			&game.FailureBudget,
			&puzzles,
			&game.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(puzzles, &game.Puzzles); err != nil {
			return nil, fmt.Errorf("failed to decode puzzles for game %s: %w", game.ID, err)
		}
		games = append(games, game)
	}

	return games, rows.Err()
}

func (r *GameRepository) scanGame(row *sql.Row) (*models.Game, error) {
	game := &models.Game{}
	var puzzles []byte

	err := row.Scan(
		&game.ID,
		&game.Title,
		&game.NarrativeIntro,
		&game.CoverTheme,
		&game.Course,
		&game.FailureBudget,
		&puzzles,
		&game.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(puzzles, &game.Puzzles); err != nil {
		return nil, fmt.Errorf("failed to decode puzzles for game %s: %w", game.ID, err)
	}

	return game, nil
}
