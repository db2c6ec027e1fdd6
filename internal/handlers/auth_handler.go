package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"escaperoom/internal/service"
	"escaperoom/internal/validation"
)

// AuthHandler serves login, registration and logout for the voice platform's
// account linking and the companion display.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type staffRegisterRequest struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type staffLoginRequest struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type studentLoginRequest struct {
	Name   string `json:"name"`
	Course string `json:"course"`
	Group  string `json:"group"`
}

type loginResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	UserType string `json:"user_type"`
	Name     string `json:"name"`
}

// RegisterStaff handles POST /api/v1/register/staff
func (h *AuthHandler) RegisterStaff(w http.ResponseWriter, r *http.Request) {
	var req staffRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", "", err)
		return
	}

	user, err := h.authService.RegisterStaff(req.Type, req.Name, req.Username, req.Password, req.Email)
	if err != nil {
		var valErr validation.ValidationError
		switch {
		case errors.As(err, &valErr):
			respondWithError(w, http.StatusBadRequest, valErr.Error(), "", nil)
		case errors.Is(err, service.ErrUsernameTaken):
			respondWithError(w, http.StatusConflict, "username already taken", "", nil)
		default:
			respondWithError(w, http.StatusInternalServerError, "registration failed", "Failed to register staff", err)
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{
		"user_id":   user.ID,
		"user_type": user.Type,
		"name":      user.Name,
	})
}

// LoginStaff handles POST /api/v1/login/staff
func (h *AuthHandler) LoginStaff(w http.ResponseWriter, r *http.Request) {
	var req staffLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", "", err)
		return
	}

	result, err := h.authService.LoginStaff(req.Type, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondWithError(w, http.StatusUnauthorized, "invalid username or password", "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "login failed", "Failed to log staff in", err)
		return
	}

	respondWithJSON(w, http.StatusOK, loginResponse{
		Token:    result.Token,
		UserID:   result.User.ID,
		UserType: result.User.Type,
		Name:     result.User.Name,
	})
}

// LoginStudent handles POST /api/v1/login/student
func (h *AuthHandler) LoginStudent(w http.ResponseWriter, r *http.Request) {
	var req studentLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", "", err)
		return
	}

	result, err := h.authService.LoginStudent(req.Name, req.Course, req.Group)
	if err != nil {
		var valErr validation.ValidationError
		if errors.As(err, &valErr) {
			respondWithError(w, http.StatusBadRequest, valErr.Error(), "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "login failed", "Failed to log student in", err)
		return
	}

	respondWithJSON(w, http.StatusOK, loginResponse{
		Token:    result.Token,
		UserID:   result.User.ID,
		UserType: result.User.Type,
		Name:     result.User.Name,
	})
}

// Logout handles POST /api/v1/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaimsFromContext(r.Context())
	if claims == nil {
		respondWithError(w, http.StatusUnauthorized, "missing session context", "", nil)
		return
	}

	if err := h.authService.Logout(claims.UserID, claims.SessionID); err != nil {
		respondWithError(w, http.StatusInternalServerError, "logout failed", "Failed to log out", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}
