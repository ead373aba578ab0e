package model

// DocumentChunk is a unit of filing text stored in the vector index.
type DocumentChunk struct {
	ID        string                 `json:"id"`
	Text      string                 `json:"text"`
	Metadata  map[string]interface{} `json:"metadata"`
	Embedding []float32              `json:"embedding,omitempty"`
}
