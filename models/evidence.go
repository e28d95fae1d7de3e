package models

// Evidence hit origins, in merge priority order.
const (
	OriginFAQ     = "faq"
	OriginCurated = "curated"
	OriginVector  = "vector"
)

// EvidenceHit is one ranked snippet from the knowledge corpus. The score is a
// ranking signal only; no fixed range is guaranteed across sources.
type EvidenceHit struct {
	Score    float64        `json:"score"`
	Type     string         `json:"type,omitempty"`
	Title    string         `json:"title,omitempty"`
	EntityID string         `json:"entityId,omitempty"`
	Text     string         `json:"text"`
	Source   string         `json:"source,omitempty"`
	Origin   string         `json:"origin,omitempty"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// FAQHit is a curated question/answer row with its match similarity.
type FAQHit struct {
	Question   string  `json:"question"`
	Answer     string  `json:"answer"`
	Similarity float64 `json:"similarity"`
}

// Aggregated is the merged retrieval result handed to the answer guard.
type Aggregated struct {
	FactsHits []EvidenceHit `json:"factsHits"`
	FilesHits []EvidenceHit `json:"filesHits"`
	FAQHits   []FAQHit      `json:"faqHits"`

	// HitsTotal counts threshold-surviving vector hits plus FAQ hits; it is
	// what the minimum-evidence guard inspects.
	HitsTotal   int `json:"hitsTotal"`
	MergedCount int `json:"mergedCount"`

	MinScore         *float64 `json:"minScore,omitempty"`
	MaxScore         *float64 `json:"maxScore,omitempty"`
	ScoreThreshold   float64  `json:"scoreThreshold"`
	FilteredOutCount int      `json:"filteredOutCount"`

	RagLatencyMS   int    `json:"ragLatencyMs"`
	EmbedLatencyMS int    `json:"embedLatencyMs"`
	EmbedError     string `json:"embedError,omitempty"`
	VectorError    string `json:"vectorError,omitempty"`
	FAQError       string `json:"faqError,omitempty"`
}
