package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Insight is one generated assistant response, kept as a best-effort audit
// trail in MongoDB. PromptChars records the size of the submitted context,
// not its content.
type Insight struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      string             `bson:"user_id" json:"user_id"`
	Kind        string             `bson:"kind" json:"kind"`
	PromptChars int                `bson:"prompt_chars" json:"prompt_chars"`
	Response    string             `bson:"response" json:"response"`
	Model       string             `bson:"model" json:"model"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
