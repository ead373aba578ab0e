package embedcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mag7qa/internal/model"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) ModelName() string {
	return "all-minilm"
}

type memoryStore struct {
	items   map[string]*model.EmbeddingCache
	getErr  error
	saveErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{items: map[string]*model.EmbeddingCache{}}
}

func (m *memoryStore) Get(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	item, ok := m.items[modelName+taskType+contentHash]
	if !ok {
		return nil, false, nil
	}
	return item.Embedding, true, nil
}

func (m *memoryStore) Save(ctx context.Context, item *model.EmbeddingCache) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.items[item.ModelName+item.TaskType+item.ContentHash] = item
	return nil
}

func TestLruEmbedderCachesByTextAndTask(t *testing.T) {
	next := &countingEmbedder{}
	e := WrapLruCacheToEmbedder(next, 8, time.Minute)

	first, err := e.Embed(context.Background(), "msft cloud revenue", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	first[0] = 99

	second, err := e.Embed(context.Background(), "msft cloud revenue", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, float32(18), second[0])
	require.Equal(t, 1, next.calls)

	_, err = e.Embed(context.Background(), "msft cloud revenue", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, 2, next.calls)
	require.Equal(t, "all-minilm", e.ModelName())
}

func TestLruEmbedderDisabled(t *testing.T) {
	next := &countingEmbedder{}
	require.Same(t, next, WrapLruCacheToEmbedder(next, 0, time.Minute))
	require.Same(t, next, WrapLruCacheToEmbedder(next, 10, 0))
}

func TestLruEmbedderDoesNotCacheErrors(t *testing.T) {
	next := &countingEmbedder{err: errors.New("down")}
	e := WrapLruCacheToEmbedder(next, 8, time.Minute)
	_, err := e.Embed(context.Background(), "q", "")
	require.Error(t, err)
	_, err = e.Embed(context.Background(), "q", "")
	require.Error(t, err)
	require.Equal(t, 2, next.calls)
}

func TestDBEmbedderReadsThrough(t *testing.T) {
	next := &countingEmbedder{}
	store := newMemoryStore()
	e := WrapDBCacheToEmbedder(next, store)

	_, err := e.Embed(context.Background(), "tesla deliveries", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Len(t, store.items, 1)

	vec, err := e.Embed(context.Background(), "tesla deliveries", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, []float32{16, 1}, vec)
	require.Equal(t, 1, next.calls)
}

func TestDBEmbedderToleratesStoreFailures(t *testing.T) {
	next := &countingEmbedder{}
	store := newMemoryStore()
	store.getErr = errors.New("db down")
	store.saveErr = errors.New("db down")
	e := WrapDBCacheToEmbedder(next, store)

	vec, err := e.Embed(context.Background(), "meta capex", "")
	require.NoError(t, err)
	require.Equal(t, []float32{10, 1}, vec)
	require.Equal(t, 1, next.calls)
}

func TestCacheKey(t *testing.T) {
	key := newCacheKey(" ", "RETRIEVAL_QUERY", "abc")
	require.Equal(t, "unknown", key.Model)
	require.Len(t, key.ContentHash, 64)
	require.Equal(t, "embed:unknown:RETRIEVAL_QUERY:"+key.ContentHash, key.String())
}
