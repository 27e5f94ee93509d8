package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/inkwell-journal/inkwell-backend/internal/database"
	"github.com/inkwell-journal/inkwell-backend/internal/models"
	"github.com/inkwell-journal/inkwell-backend/internal/services"
	"github.com/inkwell-journal/inkwell-backend/pkg/utils"
)

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Token   string                 `json:"token,omitempty"`
	User    map[string]interface{} `json:"user,omitempty"`
}

type UpdateThemeRequest struct {
	Theme string `json:"theme"`
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func userPayload(u models.User) map[string]interface{} {
	return map[string]interface{}{
		"id":    u.ID.String(),
		"email": u.Email,
		"theme": u.Theme,
	}
}

// Signup registers a new user with email and password.
func Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, AuthResponse{Success: false, Message: "Invalid request body"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") || len(email) > 255 {
		writeJSON(w, http.StatusBadRequest, AuthResponse{Success: false, Message: "A valid email is required"})
		return
	}
	if len(req.Password) < 8 {
		writeJSON(w, http.StatusBadRequest, AuthResponse{Success: false, Message: "Password must be at least 8 characters"})
		return
	}

	var existing string
	err := database.PostgresDB.QueryRow(
		"SELECT email FROM users WHERE LOWER(email) = $1", email,
	).Scan(&existing)
	if err == nil {
		writeJSON(w, http.StatusConflict, AuthResponse{Success: false, Message: "An account with this email already exists"})
		return
	} else if err != sql.ErrNoRows {
		log.Printf("[Signup] lookup failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, AuthResponse{Success: false, Message: "Database error"})
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, AuthResponse{Success: false, Message: "Failed to hash password"})
		return
	}

	user := models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hashedPassword,
		Theme:        models.ThemeDark,
	}
	_, err = database.PostgresDB.Exec(`
		INSERT INTO users (id, email, password_hash, theme, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, user.ID, user.Email, user.PasswordHash, user.Theme)
	if err != nil {
		// Two concurrent signups can both pass the lookup; the unique
		// constraint on email decides the race.
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, AuthResponse{Success: false, Message: "An account with this email already exists"})
			return
		}
		log.Printf("[Signup] insert failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, AuthResponse{Success: false, Message: "Failed to create user"})
		return
	}

	token, err := services.CreateSession(user.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, AuthResponse{Success: false, Message: "Failed to create session"})
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		Success: true,
		Message: "Account created successfully",
		Token:   token,
		User:    userPayload(user),
	})
}

// Signin authenticates a user and issues a session token.
func Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, AuthResponse{Success: false, Message: "Invalid request body"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	err := database.PostgresDB.QueryRow(
		"SELECT id, email, password_hash, theme FROM users WHERE LOWER(email) = $1", email,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Theme)
	if err == sql.ErrNoRows {
		writeJSON(w, http.StatusUnauthorized, AuthResponse{Success: false, Message: "Invalid email or password"})
		return
	} else if err != nil {
		log.Printf("[Signin] lookup failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, AuthResponse{Success: false, Message: "Database error"})
		return
	}

	valid, err := utils.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !valid {
		writeJSON(w, http.StatusUnauthorized, AuthResponse{Success: false, Message: "Invalid email or password"})
		return
	}

	token, err := services.CreateSession(user.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, AuthResponse{Success: false, Message: "Failed to create session"})
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Message: "Signed in successfully",
		Token:   token,
		User:    userPayload(user),
	})
}

// Signout invalidates the caller's session.
func Signout(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token != "" {
		services.InvalidateSession(token)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Signed out"})
}

// GetMe returns the authenticated user's profile.
func GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	user := models.User{ID: userID}
	err := database.PostgresDB.QueryRow(
		"SELECT email, theme FROM users WHERE id = $1", userID,
	).Scan(&user.Email, &user.Theme)
	if err != nil {
		log.Printf("[GetMe] lookup failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("Database error"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    userPayload(user),
	})
}

// UpdateTheme changes the caller's display theme preference.
func UpdateTheme(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	var req UpdateThemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid request body"))
		return
	}
	if !models.ValidTheme(req.Theme) {
		writeJSON(w, http.StatusBadRequest, errorBody("Theme must be dark or light"))
		return
	}

	_, err := database.PostgresDB.Exec("UPDATE users SET theme = $1 WHERE id = $2", req.Theme, userID)
	if err != nil {
		log.Printf("[UpdateTheme] update failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to update theme"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "theme": req.Theme})
}
