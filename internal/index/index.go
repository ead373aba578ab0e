package index

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"

	"github.com/xxxsen/mag7qa/internal/model"
)

// File is the on-disk layout of a prebuilt index.
type File struct {
	Model     string                `json:"model"`
	Dimension int                   `json:"dimension"`
	Chunks    []model.DocumentChunk `json:"chunks"`
}

type Hit struct {
	Chunk model.DocumentChunk
	Score float64
}

// Source is where index files are read from.
type Source interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type Index struct {
	mu        sync.RWMutex
	model     string
	dimension int
	chunks    []model.DocumentChunk
}

func Decode(r io.Reader) (*File, error) {
	var f File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	if len(f.Chunks) == 0 {
		return nil, fmt.Errorf("index contains no chunks")
	}
	if f.Dimension == 0 {
		f.Dimension = len(f.Chunks[0].Embedding)
	}
	if f.Dimension == 0 {
		return nil, fmt.Errorf("index dimension is unknown")
	}
	for i, c := range f.Chunks {
		if len(c.Embedding) != f.Dimension {
			return nil, fmt.Errorf("chunk %d (%s) has dimension %d, want %d", i, c.ID, len(c.Embedding), f.Dimension)
		}
	}
	return &f, nil
}

func New(f *File) *Index {
	ix := &Index{}
	ix.Replace(f)
	return ix
}

func Load(ctx context.Context, src Source, key string) (*Index, error) {
	f, err := readFile(ctx, src, key)
	if err != nil {
		return nil, err
	}
	return New(f), nil
}

func readFile(ctx context.Context, src Source, key string) (*File, error) {
	rc, err := src.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", key, err)
	}
	defer rc.Close()
	return Decode(rc)
}

// Reload swaps in a fresh copy of the index. On failure the current content is kept.
func (ix *Index) Reload(ctx context.Context, src Source, key string) error {
	f, err := readFile(ctx, src, key)
	if err != nil {
		return err
	}
	ix.Replace(f)
	return nil
}

func (ix *Index) Replace(f *File) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.model = f.Model
	ix.dimension = f.Dimension
	ix.chunks = f.Chunks
}

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.chunks)
}

func (ix *Index) Model() string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.model
}

func (ix *Index) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dimension
}

// Search returns up to k chunks ordered by descending cosine similarity.
// Returned chunks are copies without embeddings.
func (ix *Index) Search(vec []float32, k int) ([]Hit, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be positive")
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if len(vec) != ix.dimension {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(vec), ix.dimension)
	}
	hits := make([]Hit, 0, len(ix.chunks))
	for i := range ix.chunks {
		hits = append(hits, Hit{Chunk: ix.chunks[i], Score: cosineSimilarity(vec, ix.chunks[i].Embedding)})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	for i := range hits {
		hits[i].Chunk = copyChunk(hits[i].Chunk)
	}
	return hits, nil
}

func copyChunk(c model.DocumentChunk) model.DocumentChunk {
	out := model.DocumentChunk{ID: c.ID, Text: c.Text}
	if c.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
