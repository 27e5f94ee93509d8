package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Don't return password hash in JSON
	Theme        string    `json:"theme"`
	CreatedAt    time.Time `json:"created_at"`
}

// Themes supported by the frontend.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// ValidTheme reports whether s is a recognized display theme.
func ValidTheme(s string) bool {
	return s == ThemeDark || s == ThemeLight
}
