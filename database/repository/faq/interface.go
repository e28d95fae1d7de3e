package faqRepo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"usadba/database"
	"usadba/models"
)

// FAQRepository serves the curated question/answer corpus.
type FAQRepository interface {
	// Search ranks entries against the query text. Similarity is normalized
	// to (0, 1); callers apply their own cutoff.
	Search(ctx context.Context, query string, limit int) ([]models.FAQHit, error)
	Create(ctx context.Context, entry models.FAQEntry) (string, error)
	List(ctx context.Context, limit int) ([]models.FAQEntry, error)
	DeleteByID(ctx context.Context, id string) error
}

type mongoFAQRepo struct {
	coll *mongo.Collection
}

// NewMongoFAQRepo returns a new FAQRepository instance using MongoDB.
func NewMongoFAQRepo() FAQRepository {
	db := database.MongoClient.Database(database.DatabaseName)
	return &mongoFAQRepo{
		coll: db.Collection("faq_entries"),
	}
}
