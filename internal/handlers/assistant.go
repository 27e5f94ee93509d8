package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/inkwell-journal/inkwell-backend/internal/services"
)

type AssistantRequest struct {
	Kind    string `json:"kind"`
	Content string `json:"content,omitempty"`
	Count   int    `json:"count,omitempty"`
}

type AssistantResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Text    string `json:"text,omitempty"`
	Model   string `json:"model,omitempty"`
}

// AskAssistant generates one insight for the caller. Prompt suggestions are
// seeded with a bounded window of the caller's recent entries; the other
// kinds analyze the content supplied in the request. Failures here never
// affect journaling or analytics.
func AskAssistant(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	var req AssistantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, AssistantResponse{Success: false, Message: "Invalid request body"})
		return
	}

	kind, err := services.ParseInsightKind(req.Kind)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, AssistantResponse{Success: false, Message: "Unknown insight kind"})
		return
	}

	insightReq := services.InsightRequest{Kind: kind, Content: req.Content, Count: req.Count}

	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	// Prompt suggestions read the caller's recent entries as context.
	if kind == services.InsightPrompts {
		recent, err := entryStore.Recent(ctx, userID, 5)
		if err != nil {
			log.Printf("[AskAssistant] failed to load recent entries: %v", err)
			writeJSON(w, http.StatusInternalServerError, AssistantResponse{Success: false, Message: "Failed to load entries"})
			return
		}
		insightReq.Content = services.BuildEntryContext(recent)
	}

	result, err := assistant.Generate(ctx, insightReq)
	switch {
	case errors.Is(err, services.ErrNoContent):
		writeJSON(w, http.StatusBadRequest, AssistantResponse{Success: false, Message: "Entry content is required"})
		return
	case errors.Is(err, services.ErrAssistantNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, AssistantResponse{Success: false, Message: "Assistant not configured"})
		return
	case err != nil:
		log.Printf("[AskAssistant] %v", err)
		writeJSON(w, http.StatusServiceUnavailable, AssistantResponse{Success: false, Message: "Insight unavailable"})
		return
	}

	services.RecordInsightAsync(userID, result)

	writeJSON(w, http.StatusOK, AssistantResponse{
		Success: true,
		Kind:    string(result.Kind),
		Text:    result.Text,
		Model:   result.Model,
	})
}

// GetInsightHistory returns the caller's recent generated insights.
func GetInsightHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	limit := int64(20)
	if v, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64); err == nil && v > 0 {
		limit = v
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	insights, err := services.RecentInsights(ctx, userID, limit)
	if err != nil {
		log.Printf("[GetInsightHistory] %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to load insight history"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "insights": insights})
}
