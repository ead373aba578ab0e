package model

// EmbeddingCache is one persisted query embedding, keyed by the model that
// produced it, the task type it was embedded for and the sha256 of the text.
type EmbeddingCache struct {
	ModelName   string    `json:"model_name"`
	TaskType    string    `json:"task_type"`
	ContentHash string    `json:"content_hash"`
	Embedding   []float32 `json:"embedding"`
	Ctime       int64     `json:"ctime"`
}

// Valid reports whether the row can be stored; pgvector rejects empty vectors.
func (c *EmbeddingCache) Valid() bool {
	return c != nil && c.ModelName != "" && c.ContentHash != "" && len(c.Embedding) > 0
}
