package service

import (
	"fmt"

	"github.com/google/uuid"

	"escaperoom/internal/database"
	"escaperoom/internal/models"
	"escaperoom/internal/repository"
	"escaperoom/internal/validation"
)

// CatalogService handles game authoring. Saved games are immutable; there is
// no update or delete surface.
type CatalogService struct {
	games *repository.GameRepository
	db    *database.DB
}

// NewCatalogService creates a new catalog service
func NewCatalogService(games *repository.GameRepository, db *database.DB) *CatalogService {
	return &CatalogService{games: games, db: db}
}

// SaveGame validates a game definition, screens the title against the bad
// words list and persists it.
func (s *CatalogService) SaveGame(game *models.Game) error {
	if err := validation.ValidateGame(game); err != nil {
		return err
	}

	profane, err := s.db.ContainsBadWord(game.Title)
	if err != nil {
		return fmt.Errorf("failed to screen title: %w", err)
	}
	if profane {
		return validation.ValidationError{Field: "title", Message: "the title contains inappropriate language"}
	}

	if game.ID == "" {
		game.ID = uuid.NewString()
	}
	return s.games.Save(game)
}
