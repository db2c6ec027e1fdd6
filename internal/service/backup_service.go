package service

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"escaperoom/internal/database"
)

// BackupData represents the complete database backup structure. Live game
// sessions are deliberately excluded: they are transient per-player state
// and meaningless on another deployment.
type BackupData struct {
	Version    string         `json:"version"`
	ExportedAt time.Time      `json:"exported_at"`
	Users      []UserBackup   `json:"users"`
	Games      []GameBackup   `json:"games"`
	Results    []ResultBackup `json:"results"`
}

// UserBackup represents a user record for backup
type UserBackup struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Email        string    `json:"email"`
	Course       string    `json:"course"`
	Group        string    `json:"class_group"`
	CreatedAt    time.Time `json:"created_at"`
}

// GameBackup represents a game record for backup. Puzzles travel as the raw
// JSON document so a backup round-trips byte-for-byte.
type GameBackup struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	TitleNormalized string          `json:"title_normalized"`
	NarrativeIntro  string          `json:"narrative_intro"`
	CoverTheme      string          `json:"cover_theme"`
	Course          string          `json:"course"`
	FailureBudget   int             `json:"failure_budget"`
	Puzzles         json.RawMessage `json:"puzzles"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ResultBackup represents a result record for backup
type ResultBackup struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	FailuresTotal  int       `json:"failures_total"`
	PuzzlesCleared int       `json:"puzzles_cleared"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
}

// BackupService handles database backup and restore operations, mainly for
// migrating between the supported database backends.
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	return s.ExportToWriter(file)
}

// ExportToWriter exports the database as indented JSON
func (s *BackupService) ExportToWriter(w io.Writer) error {
	log.Println("Starting database export...")

	backup := &BackupData{
		Version:    "1.0",
		ExportedAt: time.Now(),
	}

	if err := s.exportUsers(backup); err != nil {
		return fmt.Errorf("failed to export users: %w", err)
	}
	if err := s.exportGames(backup); err != nil {
		return fmt.Errorf("failed to export games: %w", err)
	}
	if err := s.exportResults(backup); err != nil {
		return fmt.Errorf("failed to export results: %w", err)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	log.Printf("Exported: %d users, %d games, %d results",
		len(backup.Users), len(backup.Games), len(backup.Results))
	return nil
}

// Import restores a database from a backup file
func (s *BackupService) Import(inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file)
}

// ImportFromReader restores a database from a backup reader
func (s *BackupService) ImportFromReader(reader io.Reader) error {
	var backup BackupData
	if err := json.NewDecoder(reader).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}

	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)

	if err := s.importUsers(backup.Users); err != nil {
		return fmt.Errorf("failed to import users: %w", err)
	}
	if err := s.importGames(backup.Games); err != nil {
		return fmt.Errorf("failed to import games: %w", err)
	}
	if err := s.importResults(backup.Results); err != nil {
		return fmt.Errorf("failed to import results: %w", err)
	}

	log.Println("Database import completed successfully")
	return nil
}

func (s *BackupService) exportUsers(backup *BackupData) error {
	query := `
		SELECT id, type, name, COALESCE(username, ''), COALESCE(password_hash, ''),
		       COALESCE(email, ''), COALESCE(course, ''), COALESCE(class_group, ''), created_at
		FROM users ORDER BY created_at, id
	`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var u UserBackup
		if err := rows.Scan(&u.ID, &u.Type, &u.Name, &u.Username, &u.PasswordHash,
			&u.Email, &u.Course, &u.Group, &u.CreatedAt); err != nil {
			return err
		}
		backup.Users = append(backup.Users, u)
	}
	return rows.Err()
}

func (s *BackupService) exportGames(backup *BackupData) error {
	query := `
		SELECT id, title, title_normalized, narrative_intro, cover_theme,
		       course, failure_budget, puzzles, created_at
		FROM games ORDER BY title_normalized
	`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var g GameBackup
		var puzzles []byte
		if err := rows.Scan(&g.ID, &g.Title, &g.TitleNormalized, &g.NarrativeIntro,
			&g.CoverTheme, &g.Course, &g.FailureBudget, &puzzles, &g.CreatedAt); err != nil {
			return err
		}
		g.Puzzles = json.RawMessage(puzzles)
		backup.Games = append(backup.Games, g)
	}
	return rows.Err()
}

func (s *BackupService) exportResults(backup *BackupData) error {
	query := `
		SELECT id, user_id, failures_total, puzzles_cleared, started_at, ended_at
		FROM results ORDER BY ended_at, id
	`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var r ResultBackup
		if err := rows.Scan(&r.ID, &r.UserID, &r.FailuresTotal, &r.PuzzlesCleared,
			&r.StartedAt, &r.EndedAt); err != nil {
			return err
		}
		backup.Results = append(backup.Results, r)
	}
	return rows.Err()
}

func (s *BackupService) importUsers(users []UserBackup) error {
	log.Printf("Importing %d users...", len(users))
	for _, u := range users {
		query := `
			INSERT INTO users (id, type, name, username, password_hash, email,
			       course, class_group, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := s.db.Exec(query, u.ID, u.Type, u.Name, nullIfEmpty(u.Username),
			nullIfEmpty(u.PasswordHash), nullIfEmpty(u.Email), nullIfEmpty(u.Course),
			nullIfEmpty(u.Group), u.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to import user %s: %w", u.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importGames(games []GameBackup) error {
	log.Printf("Importing %d games...", len(games))
	for _, g := range games {
		query := `
			INSERT INTO games (id, title, title_normalized, narrative_intro,
			       cover_theme, course, failure_budget, puzzles, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := s.db.Exec(query, g.ID, g.Title, g.TitleNormalized, g.NarrativeIntro,
			g.CoverTheme, g.Course, g.FailureBudget, string(g.Puzzles), g.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to import game %s: %w", g.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importResults(results []ResultBackup) error {
	log.Printf("Importing %d results...", len(results))
	for _, r := range results {
		query := `
			INSERT INTO results (id, user_id, failures_total, puzzles_cleared,
			       started_at, ended_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`
		_, err := s.db.Exec(query, r.ID, r.UserID, r.FailuresTotal, r.PuzzlesCleared,
			r.StartedAt, r.EndedAt)
		if err != nil {
			return fmt.Errorf("failed to import result %s: %w", r.ID, err)
		}
	}
	return nil
}

// ClearDatabase deletes all persistent records before a replacing import.
func (s *BackupService) ClearDatabase() error {
	tables := []string{"results", "game_sessions", "games", "users"}
	for _, table := range tables {
		if _, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
		log.Printf("Cleared table: %s", table)
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
