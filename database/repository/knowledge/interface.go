package knowledgeRepo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"usadba/database"
	"usadba/models"
)

// KnowledgeRepository stores curated knowledge documents. Mongo holds the
// canonical text; the vector index is rebuilt from it by the ingest worker.
type KnowledgeRepository interface {
	Create(ctx context.Context, doc models.KnowledgeDoc) (string, error)
	GetByID(ctx context.Context, id string) (*models.KnowledgeDoc, error)
	List(ctx context.Context, limit int) ([]models.KnowledgeDoc, error)
	DeleteByID(ctx context.Context, id string) error
}

type mongoKnowledgeRepo struct {
	coll *mongo.Collection
}

// NewMongoKnowledgeRepo returns a new KnowledgeRepository instance using MongoDB.
func NewMongoKnowledgeRepo() KnowledgeRepository {
	db := database.MongoClient.Database(database.DatabaseName)
	return &mongoKnowledgeRepo{
		coll: db.Collection("knowledge_docs"),
	}
}
