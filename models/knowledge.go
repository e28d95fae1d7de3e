package models

import "time"

// FAQEntry is one curated question/answer pair in MongoDB.
type FAQEntry struct {
	ID        string    `bson:"_id,omitempty" json:"id,omitempty"`
	Question  string    `bson:"question" json:"question"`
	Answer    string    `bson:"answer" json:"answer"`
	Tags      []string  `bson:"tags,omitempty" json:"tags,omitempty"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// KnowledgeDoc is a curated knowledge document. The Mongo record is the
// source of truth; the vector index holds its embedded chunks.
type KnowledgeDoc struct {
	ID        string    `bson:"_id,omitempty" json:"id,omitempty"`
	Title     string    `bson:"title" json:"title"`
	Text      string    `bson:"text" json:"text"`
	Source    string    `bson:"source,omitempty" json:"source,omitempty"`
	Type      string    `bson:"type,omitempty" json:"type,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}
