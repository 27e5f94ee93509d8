package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/inkwell-journal/inkwell-backend/internal/database"
	"github.com/inkwell-journal/inkwell-backend/internal/models"
)

const insightCollection = "insights"

// EnsureInsightIndexes configures indexes for the insights collection.
// Called on startup from main after Mongo has connected.
func EnsureInsightIndexes(ctx context.Context) error {
	col := database.MongoDB.Collection(insightCollection)

	// Compound index on (user_id, created_at) to support newest-first reads.
	idx := mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "created_at", Value: -1},
		},
		Options: options.Index().SetName("idx_user_created"),
	}

	_, err := col.Indexes().CreateOne(ctx, idx)
	return err
}

// RecordInsightAsync persists a generated insight to MongoDB without
// blocking the request. The history is best-effort: failures are logged and
// swallowed, and a missing Mongo connection is a no-op.
func RecordInsightAsync(userID uuid.UUID, result *InsightResult) {
	if database.MongoDB == nil {
		return
	}
	doc := models.Insight{
		UserID:      userID.String(),
		Kind:        string(result.Kind),
		PromptChars: result.PromptChars,
		Response:    result.Text,
		Model:       result.Model,
		CreatedAt:   time.Now().UTC(),
	}
	go func(d models.Insight) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		col := database.MongoDB.Collection(insightCollection)
		if _, err := col.InsertOne(ctx, d); err != nil {
			log.Printf("[InsightHistory] failed to record insight: %v", err)
		}
	}(doc)
}

// clampInsightLimit bounds a requested history page size: non-positive
// falls back to the default of 20, anything above 50 is capped at 50.
func clampInsightLimit(limit int64) int64 {
	if limit <= 0 {
		return 20
	}
	if limit > 50 {
		return 50
	}
	return limit
}

// RecentInsights returns the user's latest generated insights, newest first.
func RecentInsights(ctx context.Context, userID uuid.UUID, limit int64) ([]models.Insight, error) {
	limit = clampInsightLimit(limit)
	if database.MongoDB == nil {
		return []models.Insight{}, nil
	}

	col := database.MongoDB.Collection(insightCollection)
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cur, err := col.Find(ctx, bson.M{"user_id": userID.String()}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	insights := []models.Insight{}
	for cur.Next(ctx) {
		var in models.Insight
		if err := cur.Decode(&in); err != nil {
			continue
		}
		insights = append(insights, in)
	}
	return insights, cur.Err()
}
