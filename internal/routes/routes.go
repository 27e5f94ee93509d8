package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/inkwell-journal/inkwell-backend/internal/handlers"
)

func SetupRoutes(r *chi.Mux) {
	// Auth routes
	r.Post("/api/auth/signup", handlers.Signup)
	r.Post("/api/auth/signin", handlers.Signin)
	r.Post("/api/auth/signout", handlers.Signout)
	r.Get("/api/auth/me", handlers.GetMe)

	// Settings
	r.Put("/api/settings/theme", handlers.UpdateTheme)

	// Entry routes
	r.Post("/api/entries", handlers.CreateEntry)
	r.Get("/api/entries", handlers.GetEntries)
	r.Get("/api/entries/export", handlers.ExportEntries)
	r.Get("/api/entries/{id}", handlers.GetEntry)
	r.Put("/api/entries/{id}", handlers.UpdateEntry)
	r.Delete("/api/entries/{id}", handlers.DeleteEntry)

	// Entry attachments (Cloudinary)
	r.Post("/api/entries/{id}/media", handlers.UploadEntryMedia)
	r.Get("/api/entries/{id}/media", handlers.GetEntryMedia)

	// Analytics dashboard
	r.Get("/api/analytics", handlers.GetAnalytics)

	// AI assistant (prompts, summary, mood read, tag suggestions)
	r.Post("/api/assistant", handlers.AskAssistant)
	r.Get("/api/assistant/history", handlers.GetInsightHistory)
}
