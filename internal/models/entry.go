package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry represents a single diary entry owned by one user.
// Mood and Category are empty strings when unset; the closed enumerations
// below are enforced at the write boundary, not in the database.
type Entry struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Mood       string    `json:"mood,omitempty"`
	Category   string    `json:"category,omitempty"`
	Tags       []string  `json:"tags"`
	IsFavorite bool      `json:"is_favorite"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// WordCount is derived from the body, never stored.
func (e *Entry) WordCount() int {
	return len(strings.Fields(e.Body))
}

// Moods is the closed mood enumeration, in display order.
// The analytics trend emits one series per value, so adding a mood here
// changes both the filter surface and the trend shape.
var Moods = []string{"happy", "sad", "angry", "anxious", "calm", "excited", "tired"}

// Categories is the closed category enumeration.
var Categories = []string{
	"personal", "work", "family", "health", "travel",
	"hobbies", "goals", "gratitude", "reflection", "dreams", "other",
}

var (
	moodSet     = toSet(Moods)
	categorySet = toSet(Categories)
)

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// ValidMood reports whether s is in the mood enumeration. Empty is valid
// (mood is optional on an entry).
func ValidMood(s string) bool {
	return s == "" || moodSet[s]
}

// ValidCategory reports whether s is in the category enumeration.
func ValidCategory(s string) bool {
	return s == "" || categorySet[s]
}

// NormalizeTags lowercases, trims and deduplicates tags, preserving the
// first-seen order. Empty tags are dropped.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
