package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/xxxsen/mag7qa/internal/ai"
	"github.com/xxxsen/mag7qa/internal/index"
	"github.com/xxxsen/mag7qa/internal/model"
	appErr "github.com/xxxsen/mag7qa/internal/pkg/errors"
)

var (
	ErrRetrieval  = errors.New("retrieval failed")
	ErrGeneration = errors.New("generation failed")
)

// Searcher is the nearest neighbour lookup behind the retriever.
type Searcher interface {
	Search(vec []float32, k int) ([]index.Hit, error)
}

type IRetriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]model.DocumentChunk, error)
}

type Retriever struct {
	embedder ai.IEmbedder
	searcher Searcher
}

func NewRetriever(embedder ai.IEmbedder, searcher Searcher) *Retriever {
	return &Retriever{embedder: embedder, searcher: searcher}
}

// Retrieve returns at most k chunks, most similar first.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]model.DocumentChunk, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1", appErr.ErrInvalid)
	}
	if r.embedder == nil || r.searcher == nil {
		return nil, fmt.Errorf("%w: index not loaded", ErrRetrieval)
	}
	vec, err := r.embedder.Embed(ctx, query, ai.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", ErrRetrieval, err)
	}
	hits, err := r.searcher.Search(vec, k)
	if err != nil {
		return nil, fmt.Errorf("%w: search index: %w", ErrRetrieval, err)
	}
	chunks := make([]model.DocumentChunk, 0, len(hits))
	for _, h := range hits {
		chunks = append(chunks, h.Chunk)
	}
	return chunks, nil
}
