package models

// ChatRequest is the payload coming from the frontend into /v1/chat.
type ChatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message" binding:"required"`
}

// ChatResponse is what the chat handler returns to the frontend. Debug keys
// are part of the observable contract and are asserted on by tests.
type ChatResponse struct {
	Answer string         `json:"answer"`
	Debug  map[string]any `json:"debug,omitempty"`
}

// ChatMessage is one entry of the conversation history handed to the
// generation collaborator.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// KnowledgeUploadRequest carries a document for background ingestion.
type KnowledgeUploadRequest struct {
	Title  string `json:"title"`
	Text   string `json:"text" binding:"required"`
	Source string `json:"source"`
	Type   string `json:"type"`
}

// IngestPayload is the asynq task body for knowledge ingestion.
type IngestPayload struct {
	DocumentID string `json:"documentId"`
	Title      string `json:"title"`
	Text       string `json:"text"`
	Source     string `json:"source"`
	Type       string `json:"type"`
}
