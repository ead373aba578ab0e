package agent

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/xxxsen/mag7qa/internal/ai"
	"github.com/xxxsen/mag7qa/internal/index"
	"github.com/xxxsen/mag7qa/internal/model"
)

type fakeEmbedder struct {
	vec   []float32
	err   error
	calls int32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

func (f *fakeEmbedder) ModelName() string {
	return "fake-embed"
}

type fakeGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (ai.TextResponse, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	return ai.NewTextResponse(f.reply), nil
}

func (f *fakeGenerator) ModelName() string {
	return "fake-llm"
}

type fakeRetriever struct {
	chunks []model.DocumentChunk
	err    error
	calls  int32
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, k int) ([]model.DocumentChunk, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	if k < len(f.chunks) {
		return f.chunks[:k], nil
	}
	return f.chunks, nil
}

var errBoom = errors.New("boom")

func strPtr(s string) *string {
	return &s
}

func testIndex() *index.Index {
	return index.New(&index.File{
		Model:     "fake-embed",
		Dimension: 2,
		Chunks: []model.DocumentChunk{
			{ID: "1", Text: "Apple total net sales were $117.2 billion.", Metadata: map[string]interface{}{"company": "AAPL", "form": "10-Q", "date": "2023-02-03", "url": "https://sec.gov/aapl"}, Embedding: []float32{1, 0}},
			{ID: "2", Text: "Microsoft cloud revenue grew.", Metadata: map[string]interface{}{"company": "MSFT", "form": "10-K", "year": float64(2023), "source": "msft.htm"}, Embedding: []float32{0, 1}},
			{ID: "3", Text: "NVIDIA data center.", Metadata: map[string]interface{}{"company": "NVDA"}, Embedding: []float32{0.6, 0.4}},
		},
	})
}
