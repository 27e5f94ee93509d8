package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/inkwell-journal/inkwell-backend/internal/config"
	"github.com/inkwell-journal/inkwell-backend/internal/database"
	"github.com/inkwell-journal/inkwell-backend/internal/services"
)

// Package-level services, wired once from main.
var (
	cfg          *config.Config
	entryStore   *services.EntryStore
	analyticsSvc *services.AnalyticsService
	assistant    *services.Assistant
)

// Init wires the handler package to its services. Must be called after the
// databases are connected.
func Init(c *config.Config) {
	cfg = c
	entryStore = services.NewEntryStore(database.PostgresDB)
	analyticsSvc = services.NewAnalyticsService(database.PostgresDB)
	assistant = services.NewAssistant(c.GeminiAPIKey, c.GeminiModel)
}

// extractBearerToken returns the token from an "Authorization: Bearer x" header.
func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// requireAuth validates the session and returns the authenticated user's ID.
// Writes a 401 response and returns false when not authenticated.
func requireAuth(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody("Authentication required"))
		return uuid.Nil, false
	}
	userID, ok, err := services.ValidateSession(token)
	if err != nil || !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody("Authentication required"))
		return uuid.Nil, false
	}
	// Sliding expiry: any authenticated request pushes the 7-day window out.
	if err := services.RefreshSession(token); err != nil {
		log.Printf("[Auth] failed to refresh session: %v", err)
	}
	return userID, true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func errorBody(message string) map[string]interface{} {
	return map[string]interface{}{"success": false, "message": message}
}
