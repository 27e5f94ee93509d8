package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/inkwell-journal/inkwell-backend/internal/services"
)

// GetAnalytics returns the caller's dashboard document: stats, mood
// distribution, activity heatmap, mood trend, keywords and productivity.
// Snapshots are cached in Redis per (user, window) and invalidated on
// entry writes.
func GetAnalytics(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}

	days := cfg.HeatmapDays
	if v, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil && v > 0 && v <= 366 {
		days = v
	}
	weeks := cfg.TrendWeeks
	if v, err := strconv.Atoi(r.URL.Query().Get("weeks")); err == nil && v > 0 && v <= 52 {
		weeks = v
	}

	cacheKey := services.AnalyticsCacheKey(userID.String(), days, weeks)
	var cached services.Dashboard
	if hit, _ := services.Cache.Get(cacheKey, &cached); hit {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "analytics": cached})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	dashboard, err := analyticsSvc.Dashboard(ctx, userID, days, weeks)
	if err != nil {
		log.Printf("[GetAnalytics] %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to build analytics"))
		return
	}

	if err := services.Cache.Set(cacheKey, dashboard, services.AnalyticsCacheTTL); err != nil {
		log.Printf("[GetAnalytics] failed to cache snapshot: %v", err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "analytics": dashboard})
}
