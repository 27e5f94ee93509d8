package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/inkwell-journal/inkwell-backend/internal/models"
	"github.com/inkwell-journal/inkwell-backend/internal/services"
)

const entryRequestTimeout = 5 * time.Second

type EntryRequest struct {
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	Mood       string   `json:"mood,omitempty"`
	Category   string   `json:"category,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	IsFavorite bool     `json:"is_favorite"`
}

type EntryResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Entry   *models.Entry `json:"entry,omitempty"`
}

// validate checks the closed enumerations and required fields. Invalid
// mood/category on a write is a validation error, unlike on the read
// filters where unknown facet values simply match nothing.
func (req *EntryRequest) validate() string {
	req.Title = strings.TrimSpace(req.Title)
	req.Mood = strings.ToLower(strings.TrimSpace(req.Mood))
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	if req.Title == "" {
		return "Title is required"
	}
	if len(req.Title) > 200 {
		return "Title must be at most 200 characters"
	}
	if strings.TrimSpace(req.Body) == "" {
		return "Body is required"
	}
	if !models.ValidMood(req.Mood) {
		return "Unknown mood value"
	}
	if !models.ValidCategory(req.Category) {
		return "Unknown category value"
	}
	return ""
}

// CreateEntry creates a new diary entry for the authenticated user.
func CreateEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	var req EntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, EntryResponse{Success: false, Message: "Invalid request body"})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, EntryResponse{Success: false, Message: msg})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), entryRequestTimeout)
	defer cancel()

	entry := &models.Entry{
		UserID:     userID,
		Title:      req.Title,
		Body:       req.Body,
		Mood:       req.Mood,
		Category:   req.Category,
		Tags:       req.Tags,
		IsFavorite: req.IsFavorite,
	}
	if err := entryStore.Create(ctx, entry); err != nil {
		log.Printf("[CreateEntry] %v", err)
		writeJSON(w, http.StatusInternalServerError, EntryResponse{Success: false, Message: "Failed to create entry"})
		return
	}

	invalidateAnalytics(userID)

	writeJSON(w, http.StatusCreated, EntryResponse{Success: true, Message: "Entry created successfully", Entry: entry})
}

// ParseEntryFilter reads the list query parameters into an EntryFilter.
// Out-of-range paging falls back to defaults; facet values pass through
// untouched so unknown moods/categories match zero rows.
func ParseEntryFilter(values url.Values) services.EntryFilter {
	f := services.EntryFilter{
		Search:   values.Get("q"),
		Mood:     strings.ToLower(strings.TrimSpace(values.Get("mood"))),
		Category: strings.ToLower(strings.TrimSpace(values.Get("category"))),
		Tag:      values.Get("tag"),
	}
	if fav, err := strconv.ParseBool(values.Get("favorites")); err == nil {
		f.FavoritesOnly = fav
	}
	if page, err := strconv.Atoi(values.Get("page")); err == nil {
		f.Page = page
	}
	if size, err := strconv.Atoi(values.Get("page_size")); err == nil {
		f.PageSize = size
	}
	return f.Normalized()
}

// GetEntries returns a filtered, paginated page of the caller's entries.
func GetEntries(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), entryRequestTimeout)
	defer cancel()

	page, err := entryStore.List(ctx, userID, ParseEntryFilter(r.URL.Query()))
	if err != nil {
		log.Printf("[GetEntries] %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to load entries"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"entries":     page.Entries,
		"total":       page.Total,
		"total_pages": page.TotalPages,
		"page":        page.Page,
		"page_size":   page.PageSize,
	})
}

func entryIDFromRequest(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

// GetEntry returns one entry owned by the caller.
func GetEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}
	entryID, err := entryIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusNotFound, EntryResponse{Success: false, Message: "Entry not found"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), entryRequestTimeout)
	defer cancel()

	entry, err := entryStore.GetByID(ctx, userID, entryID)
	if errors.Is(err, services.ErrEntryNotFound) {
		writeJSON(w, http.StatusNotFound, EntryResponse{Success: false, Message: "Entry not found"})
		return
	}
	if err != nil {
		log.Printf("[GetEntry] %v", err)
		writeJSON(w, http.StatusInternalServerError, EntryResponse{Success: false, Message: "Failed to load entry"})
		return
	}

	writeJSON(w, http.StatusOK, EntryResponse{Success: true, Entry: entry})
}

// UpdateEntry rewrites an entry's mutable fields.
func UpdateEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}
	entryID, err := entryIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusNotFound, EntryResponse{Success: false, Message: "Entry not found"})
		return
	}

	var req EntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, EntryResponse{Success: false, Message: "Invalid request body"})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, EntryResponse{Success: false, Message: msg})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), entryRequestTimeout)
	defer cancel()

	entry := &models.Entry{
		ID:         entryID,
		UserID:     userID,
		Title:      req.Title,
		Body:       req.Body,
		Mood:       req.Mood,
		Category:   req.Category,
		Tags:       req.Tags,
		IsFavorite: req.IsFavorite,
	}
	err = entryStore.Update(ctx, userID, entry)
	if errors.Is(err, services.ErrEntryNotFound) {
		writeJSON(w, http.StatusNotFound, EntryResponse{Success: false, Message: "Entry not found"})
		return
	}
	if err != nil {
		log.Printf("[UpdateEntry] %v", err)
		writeJSON(w, http.StatusInternalServerError, EntryResponse{Success: false, Message: "Failed to update entry"})
		return
	}

	invalidateAnalytics(userID)

	writeJSON(w, http.StatusOK, EntryResponse{Success: true, Message: "Entry updated successfully", Entry: entry})
}

// DeleteEntry removes an entry owned by the caller.
func DeleteEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}
	entryID, err := entryIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("Entry not found"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), entryRequestTimeout)
	defer cancel()

	err = entryStore.Delete(ctx, userID, entryID)
	if errors.Is(err, services.ErrEntryNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("Entry not found"))
		return
	}
	if err != nil {
		log.Printf("[DeleteEntry] %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to delete entry"))
		return
	}

	invalidateAnalytics(userID)

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Entry deleted"})
}

// ExportEntries returns every entry the caller owns as a JSON document.
func ExportEntries(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	entries, err := entryStore.ExportAll(ctx, userID)
	if err != nil {
		log.Printf("[ExportEntries] %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to export entries"))
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="journal-export.json"`)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"exported_at": time.Now().UTC(),
		"total":       len(entries),
		"entries":     entries,
	})
}

// invalidateAnalytics drops the caller's cached dashboard snapshots after a
// write. Best-effort: a failed delete only means a stale snapshot until the
// TTL expires.
func invalidateAnalytics(userID uuid.UUID) {
	if err := services.Cache.DeleteByPrefix(services.AnalyticsCachePrefix(userID.String())); err != nil {
		log.Printf("[Entries] failed to invalidate analytics cache: %v", err)
	}
}
