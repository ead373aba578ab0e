package agent

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mag7qa/internal/conversation"
	"github.com/xxxsen/mag7qa/internal/metrics"
	"github.com/xxxsen/mag7qa/internal/model"
	appErr "github.com/xxxsen/mag7qa/internal/pkg/errors"
)

func aaplChunk() model.DocumentChunk {
	return model.DocumentChunk{
		ID:   "aapl-q1",
		Text: "Apple Q1 2023 revenue was $117.2B...",
		Metadata: map[string]interface{}{
			"company": "AAPL",
			"form":    "10-Q",
			"date":    "2023-Q1",
			"url":     "http://example.com/aapl10q",
		},
	}
}

func TestPipelineAnswersWithCitationFallback(t *testing.T) {
	gen := &fakeGenerator{reply: `{"answer":"$117.2B","sources":[],"confidence":"0.95"}`}
	p := NewPipeline(&fakeRetriever{chunks: []model.DocumentChunk{aaplChunk()}}, gen, WithMetrics(metrics.New()))
	sess := conversation.NewSession("s1", "u1")

	ans, err := p.Answer(context.Background(), sess, "What was AAPL revenue in Q1 2023?", Options{})
	require.NoError(t, err)
	require.Equal(t, "$117.2B", ans.Answer)
	require.Equal(t, 0.95, ans.Confidence)
	require.Len(t, ans.Sources, 1)
	require.Equal(t, "AAPL", *ans.Sources[0].Company)
	require.Equal(t, "10-Q", *ans.Sources[0].Filing)
	require.Equal(t, "2023-Q1", *ans.Sources[0].Period)
	require.Equal(t, "Apple Q1 2023 revenue was $117.2B...", ans.Sources[0].Snippet)
	require.Equal(t, "http://example.com/aapl10q", *ans.Sources[0].URL)

	require.Equal(t, "User: What was AAPL revenue in Q1 2023?\nAgent: $117.2B\n", sess.RenderRecent(6))
	require.Len(t, gen.prompts, 1)
	require.Contains(t, gen.prompts[0], "Context from SEC filings:\n"+aaplChunk().Text+"\n")

	data, err := json.Marshal(ans)
	require.NoError(t, err)
	var shape map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &shape))
	require.Len(t, shape, 3)
	source := shape["sources"].([]interface{})[0].(map[string]interface{})
	require.Len(t, source, 5)
	for _, key := range []string{"company", "filing", "period", "snippet", "url"} {
		require.Contains(t, source, key)
	}
}

func TestPipelineDegradesOnProse(t *testing.T) {
	gen := &fakeGenerator{reply: "I cannot comply"}
	p := NewPipeline(&fakeRetriever{chunks: []model.DocumentChunk{aaplChunk()}}, gen)
	sess := conversation.NewSession("s1", "u1")

	res, err := p.Run(context.Background(), sess, "q", Options{})
	require.NoError(t, err)
	require.True(t, res.Degraded)
	require.Equal(t, "I cannot comply", res.Answer.Answer)
	require.Equal(t, 0.7, res.Answer.Confidence)
	require.Len(t, res.Answer.Sources, 1)
	source := res.Answer.Sources[0]
	require.Equal(t, "AAPL", *source.Company)
	require.Equal(t, "10-Q", *source.Filing)
	require.Equal(t, "2023-Q1", *source.Period)
	require.Equal(t, "Apple Q1 2023 revenue was $117.2B...", source.Snippet)
	require.Equal(t, "http://example.com/aapl10q", *source.URL)
	require.Equal(t, "User: q\nAgent: I cannot comply\n", sess.RenderRecent(6))
}

func TestPipelineDegradedAnswerIsRawText(t *testing.T) {
	gen := &fakeGenerator{reply: "I cannot comply\n"}
	p := NewPipeline(&fakeRetriever{chunks: []model.DocumentChunk{aaplChunk()}}, gen)
	sess := conversation.NewSession("s1", "u1")

	res, err := p.Run(context.Background(), sess, "q", Options{})
	require.NoError(t, err)
	require.True(t, res.Degraded)
	require.Equal(t, "I cannot comply\n", res.Answer.Answer)
}

func TestPipelineHistoryFeedsPrompt(t *testing.T) {
	gen := &fakeGenerator{reply: `{"answer":"ok"}`}
	p := NewPipeline(&fakeRetriever{}, gen, WithHistoryTurns(2))
	sess := conversation.NewSession("s1", "u1")
	for _, q := range []string{"first", "second", "third"} {
		_, err := p.Answer(context.Background(), sess, q, Options{})
		require.NoError(t, err)
	}
	last := gen.prompts[2]
	require.Contains(t, last, "Chat history:\nUser: first\nAgent: ok\nUser: second\nAgent: ok\n")

	gen.prompts = nil
	_, err := p.Answer(context.Background(), sess, "fourth", Options{})
	require.NoError(t, err)
	require.NotContains(t, gen.prompts[0], "User: first")
	require.Equal(t, 4, sess.Len())
}

func TestPipelineErrorsLeaveSessionUntouched(t *testing.T) {
	sess := conversation.NewSession("s1", "u1")

	p := NewPipeline(&fakeRetriever{err: ErrRetrieval}, &fakeGenerator{reply: "x"})
	_, err := p.Answer(context.Background(), sess, "q", Options{})
	require.ErrorIs(t, err, ErrRetrieval)

	gen := &fakeGenerator{err: errBoom}
	p = NewPipeline(&fakeRetriever{chunks: []model.DocumentChunk{aaplChunk()}}, gen)
	_, err = p.Answer(context.Background(), sess, "q", Options{})
	require.ErrorIs(t, err, ErrGeneration)
	require.ErrorIs(t, err, errBoom)

	p = NewPipeline(&fakeRetriever{}, nil)
	_, err = p.Answer(context.Background(), sess, "q", Options{})
	require.ErrorIs(t, err, ErrGeneration)

	require.Equal(t, 0, sess.Len())
}

func TestPipelineOptions(t *testing.T) {
	chunks := []model.DocumentChunk{aaplChunk(), aaplChunk(), aaplChunk()}
	retriever := &fakeRetriever{chunks: chunks}
	p := NewPipeline(retriever, &fakeGenerator{reply: `{"answer":"a"}`})

	res, err := p.Run(context.Background(), conversation.NewSession("s", "u"), "q", Options{K: 2, SnippetLen: 5})
	require.NoError(t, err)
	require.Len(t, res.Chunks, 2)
	require.Equal(t, "Apple", res.Answer.Sources[0].Snippet)

	_, err = p.Run(context.Background(), conversation.NewSession("s", "u"), "q", Options{SnippetLen: -1})
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = p.Run(context.Background(), nil, "q", Options{})
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestPipelineCustomDefaults(t *testing.T) {
	p := NewPipeline(&fakeRetriever{}, &fakeGenerator{reply: `{"answer":"a"}`},
		WithDefaults(Defaults{Confidence: 0.5, FallbackConfidence: 0.1}))
	ans, err := p.Answer(context.Background(), conversation.NewSession("s", "u"), "q", Options{})
	require.NoError(t, err)
	require.Equal(t, 0.5, ans.Confidence)
	require.NotNil(t, ans.Sources)
}

func TestPipelineWithRealIndex(t *testing.T) {
	emb := &fakeEmbedder{vec: []float32{0, 1}}
	gen := &fakeGenerator{reply: "```json\n{\"answer\": \"Cloud grew\", \"confidence\": 0.8}\n```"}
	p := NewPipeline(NewRetriever(emb, testIndex()), gen)

	ans, err := p.Answer(context.Background(), conversation.NewSession("s", "u"), "msft cloud", Options{K: 1})
	require.NoError(t, err)
	require.Equal(t, "Cloud grew", ans.Answer)
	require.Len(t, ans.Sources, 1)
	require.Equal(t, "MSFT", *ans.Sources[0].Company)
	require.Equal(t, "2023", *ans.Sources[0].Period)
	require.Equal(t, "msft.htm", *ans.Sources[0].URL)
	require.True(t, strings.Contains(gen.prompts[0], "Microsoft cloud revenue grew."))
}
