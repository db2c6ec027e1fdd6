package repository

import (
	"database/sql"
	"errors"

	"escaperoom/internal/database"
	"escaperoom/internal/models"
)

// UserRepository handles user database operations
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user record
func (r *UserRepository) Create(user *models.User) error {
	query := `
		INSERT INTO users (id, type, name, username, password_hash, email,
		       course, class_group)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		user.ID,
		user.Type,
		user.Name,
		user.Username,
		user.PasswordHash,
		user.Email,
		user.Course,
		user.Group,
	)
	return err
}

// GetStaffByUsername retrieves an instructor or coordinator by username.
// Returns nil without error on a miss.
func (r *UserRepository) GetStaffByUsername(userType, username string) (*models.User, error) {
	query := `
		SELECT id, type, name, username, password_hash, email, course,
		       class_group, created_at
		FROM users
		WHERE type = ? AND username = ?
	`
	return r.scanUser(r.db.QueryRow(query, userType, username))
}

// GetStudent retrieves a student by name, course and group. Returns nil
// without error on a miss.
func (r *UserRepository) GetStudent(name, course, group string) (*models.User, error) {
	query := `
		SELECT id, type, name, username, password_hash, email, course,
		       class_group, created_at
		FROM users
		WHERE type = ? AND name = ? AND course = ? AND class_group = ?
	`
	return r.scanUser(r.db.QueryRow(query, models.UserTypeStudent, name, course, group))
}

// GetByID retrieves a user by ID. Returns nil without error on a miss.
func (r *UserRepository) GetByID(id string) (*models.User, error) {
	query := `
		SELECT id, type, name, username, password_hash, email, course,
		       class_group, created_at
		FROM users
		WHERE id = ?
	`
	return r.scanUser(r.db.QueryRow(query, id))
}

func (r *UserRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var username, passwordHash, email, course, group sql.NullString

	err := row.Scan(
		&user.ID,
		&user.Type,
		&user.Name,
		&username,
		&passwordHash,
		&email,
		&course,
		&group,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	user.Username = username.String
	user.PasswordHash = passwordHash.String
	user.Email = email.String
	user.Course = course.String
	user.Group = group.String

	return user, nil
}
