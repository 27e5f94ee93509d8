package models

import (
	"time"

	"github.com/google/uuid"
)

// EntryMedia is a photo attachment on an entry. The file itself lives in
// Cloudinary; only the delivery URL is persisted.
type EntryMedia struct {
	ID        uuid.UUID `json:"id"`
	EntryID   uuid.UUID `json:"entry_id"`
	UserID    uuid.UUID `json:"user_id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}
