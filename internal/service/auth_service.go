package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"escaperoom/internal/models"
	"escaperoom/internal/repository"
	"escaperoom/internal/security"
	"escaperoom/internal/validation"
)

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// LoginResult is what a successful login yields: the user, the freshly
// created game session, and the signed token both the voice webhook and the
// display authenticate with.
type LoginResult struct {
	User    *models.User
	Session *models.Session
	Token   string
}

// AuthService handles authentication business logic. Staff (instructors and
// coordinators) hold username/password accounts; students log in by name,
// course and class group and are registered on first login.
type AuthService struct {
	users    *repository.UserRepository
	sessions *repository.SessionRepository
	tokens   *security.TokenManager
}

// NewAuthService creates a new auth service
func NewAuthService(users *repository.UserRepository, sessions *repository.SessionRepository, tokens *security.TokenManager) *AuthService {
	return &AuthService{users: users, sessions: sessions, tokens: tokens}
}

// RegisterStaff creates an instructor or coordinator account
func (s *AuthService) RegisterStaff(userType, name, username, password, email string) (*models.User, error) {
	if userType != models.UserTypeInstructor && userType != models.UserTypeCoordinator {
		return nil, validation.ValidationError{Field: "type", Message: "staff accounts must be instructors or coordinators"}
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}

	existing, err := s.users.GetStaffByUsername(userType, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Type:         userType,
		Name:         name,
		Username:     username,
		PasswordHash: passwordHash,
		Email:        email,
	}
	if err := s.users.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// LoginStaff authenticates a staff account and opens a session
func (s *AuthService) LoginStaff(userType, username, password string) (*LoginResult, error) {
	user, err := s.users.GetStaffByUsername(userType, username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if !security.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.openSession(user)
}

// LoginStudent logs a student in by name, course and class group, creating
// the account on first login.
func (s *AuthService) LoginStudent(name, course, group string) (*LoginResult, error) {
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if course == "" || group == "" {
		return nil, validation.ValidationError{Field: "course", Message: "course and class group are required"}
	}

	user, err := s.users.GetStudent(name, course, group)
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if user == nil {
		user = &models.User{
			ID:     uuid.NewString(),
			Type:   models.UserTypeStudent,
			Name:   name,
			Course: course,
			Group:  group,
		}
		if err := s.users.Create(user); err != nil {
			return nil, fmt.Errorf("failed to register student: %w", err)
		}
	}

	return s.openSession(user)
}

// openSession creates the game session row and mints its token. Any progress
// left behind by an earlier unfinished game starts over.
func (s *AuthService) openSession(user *models.User) (*LoginResult, error) {
	session := &models.Session{
		UserID:    user.ID,
		SessionID: security.GenerateSessionID(),
		UserType:  user.Type,
	}
	if err := s.sessions.Create(session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.tokens.Mint(session.UserID, session.SessionID, session.UserType)
	if err != nil {
		return nil, fmt.Errorf("failed to mint session token: %w", err)
	}

	return &LoginResult{User: user, Session: session, Token: token}, nil
}

// Logout deletes the session. The session may already be gone when the game
// finalized first; that is not an error.
func (s *AuthService) Logout(userID, sessionID string) error {
	if err := s.sessions.Delete(userID, sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}
