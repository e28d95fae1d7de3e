package knowledgeRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"usadba/models"
)

func (r *mongoKnowledgeRepo) Create(ctx context.Context, doc models.KnowledgeDoc) (string, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	doc.CreatedAt = time.Now().UTC()
	record := bson.M{
		"_id":        doc.ID,
		"title":      doc.Title,
		"text":       doc.Text,
		"source":     doc.Source,
		"type":       doc.Type,
		"created_at": doc.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, record); err != nil {
		return "", fmt.Errorf("failed to insert knowledge doc: %w", err)
	}
	return doc.ID, nil
}

func (r *mongoKnowledgeRepo) GetByID(ctx context.Context, id string) (*models.KnowledgeDoc, error) {
	var doc models.KnowledgeDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch knowledge doc %q: %w", id, err)
	}
	return &doc, nil
}

func (r *mongoKnowledgeRepo) List(ctx context.Context, limit int) ([]models.KnowledgeDoc, error) {
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge docs: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []models.KnowledgeDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode knowledge docs: %w", err)
	}
	return docs, nil
}

func (r *mongoKnowledgeRepo) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete knowledge doc: %w", err)
	}
	return nil
}
