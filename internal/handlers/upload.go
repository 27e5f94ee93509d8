package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/inkwell-journal/inkwell-backend/internal/config"
	"github.com/inkwell-journal/inkwell-backend/internal/services"
)

var cloudinaryService *services.CloudinaryService

func InitCloudinaryService(cfg *config.Config) error {
	service, err := services.NewCloudinaryService(
		cfg.CloudinaryName,
		cfg.CloudinaryAPIKey,
		cfg.CloudinaryAPISecret,
	)
	if err != nil {
		return err
	}
	cloudinaryService = service
	return nil
}

type UploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
}

// UploadEntryMedia attaches a photo to one of the caller's entries. The
// file goes to Cloudinary; the URL is persisted alongside the entry.
func UploadEntryMedia(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireAuth(w, r)
	if !ok {
		return
	}
	if cloudinaryService == nil {
		writeJSON(w, http.StatusServiceUnavailable, UploadResponse{Success: false, Message: "Uploads are not available"})
		return
	}

	entryID, err := entryIDFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusNotFound, UploadResponse{Success: false, Message: "Entry not found"})
		return
	}

	// Max 10MB
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, UploadResponse{Success: false, Message: "Failed to parse form"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, UploadResponse{Success: false, Message: "No file provided"})
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	url, err := cloudinaryService.UploadFileFromHeader(ctx, fileHeader, "journal/"+userID.String())
	if err != nil {
		log.Printf("[UploadEntryMedia] upload failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, UploadResponse{Success: false, Message: "Failed to upload file"})
		return
	}

	if _, err := entryStore.AttachMedia(ctx, userID, entryID, url); err != nil {
		if errors.Is(err, services.ErrEntryNotFound) {
			writeJSON(w, http.StatusNotFound, UploadResponse{Success: false, Message: "Entry not found"})
			return
		}
		log.Printf("[UploadEntryMedia] attach failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, UploadResponse{Success: false, Message: "Failed to save attachment"})
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{Success: true, Message: "File uploaded", URL: url})
}

// GetEntryMedia lists the attachments on one of the caller's entries.
func GetEntryMedia(w http.ResponseWriter, r *http.Request) {
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

	media, err := entryStore.MediaForEntry(ctx, userID, entryID)
	if err != nil {
		log.Printf("[GetEntryMedia] %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to load attachments"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "media": media})
}
