package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mag7qa/internal/pkg/response"
)

// IndexInfo describes the loaded vector index.
type IndexInfo interface {
	Len() int
	Model() string
}

type HealthHandler struct {
	index          IndexInfo
	llmModel       string
	embeddingModel string
}

func NewHealthHandler(index IndexInfo, llmModel, embeddingModel string) *HealthHandler {
	return &HealthHandler{index: index, llmModel: llmModel, embeddingModel: embeddingModel}
}

func (h *HealthHandler) Health(c *gin.Context) {
	chunks := 0
	indexModel := ""
	if h.index != nil {
		chunks = h.index.Len()
		indexModel = h.index.Model()
	}
	response.Success(c, gin.H{
		"status":          "ok",
		"index_chunks":    chunks,
		"index_model":     indexModel,
		"llm_model":       h.llmModel,
		"embedding_model": h.embeddingModel,
	})
}
