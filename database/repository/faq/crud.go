package faqRepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"usadba/models"
)

// EnsureIndexes creates the text index the Search query depends on.
func EnsureIndexes(ctx context.Context, repo FAQRepository) error {
	mongoRepo, ok := repo.(*mongoFAQRepo)
	if !ok {
		return nil
	}
	_, err := mongoRepo.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "question", Value: "text"},
			{Key: "answer", Value: "text"},
		},
		Options: options.Index().SetDefaultLanguage("russian").SetName("faq_text"),
	})
	if err != nil {
		return fmt.Errorf("failed to create faq text index: %w", err)
	}
	return nil
}

func (r *mongoFAQRepo) Search(ctx context.Context, query string, limit int) ([]models.FAQHit, error) {
	if limit <= 0 {
		limit = 3
	}
	filter := bson.M{"$text": bson.M{"$search": query}}
	projection := bson.M{
		"question": 1,
		"answer":   1,
		"score":    bson.M{"$meta": "textScore"},
	}
	opts := options.Find().
		SetProjection(projection).
		SetSort(bson.M{"score": bson.M{"$meta": "textScore"}}).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("faq search failed: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Question string  `bson:"question"`
		Answer   string  `bson:"answer"`
		Score    float64 `bson:"score"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("faq search decode failed: %w", err)
	}

	hits := make([]models.FAQHit, 0, len(rows))
	for _, row := range rows {
		hits = append(hits, models.FAQHit{
			Question: row.Question,
			Answer:   row.Answer,
			// textScore is unbounded; squash into (0, 1) so the similarity
			// cutoff stays comparable across queries.
			Similarity: row.Score / (row.Score + 1),
		})
	}
	return hits, nil
}

func (r *mongoFAQRepo) Create(ctx context.Context, entry models.FAQEntry) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.UpdatedAt = time.Now().UTC()
	doc := bson.M{
		"_id":        entry.ID,
		"question":   entry.Question,
		"answer":     entry.Answer,
		"tags":       entry.Tags,
		"updated_at": entry.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to insert faq entry: %w", err)
	}
	return entry.ID, nil
}

func (r *mongoFAQRepo) List(ctx context.Context, limit int) ([]models.FAQEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to list faq entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []models.FAQEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode faq entries: %w", err)
	}
	return entries, nil
}

func (r *mongoFAQRepo) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete faq entry: %w", err)
	}
	return nil
}
