package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func newOpenAITestProvider(t *testing.T, handler http.HandlerFunc) *openAIProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	p, err := newOpenAIProvider(map[string]interface{}{
		"api_key":  "test-key",
		"base_url": server.URL + "/v1",
	})
	require.NoError(t, err)
	return p
}

func TestOpenAIGenerate(t *testing.T) {
	p := newOpenAITestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "gpt-4.1-mini", body["model"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4.1-mini",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": " {\"answer\":\"$117.2B\"} "}}]
		}`))
	})

	resp, err := p.Generate(context.Background(), "gpt-4.1-mini", "What was AAPL revenue?")
	require.NoError(t, err)
	require.Equal(t, ` {"answer":"$117.2B"} `, resp.Text())
}

func TestOpenAIGenerateDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	p := newOpenAITestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	})

	_, err := p.Generate(context.Background(), "gpt-4.1-mini", "hi")
	require.Error(t, err)
	require.Equal(t, int32(1), calls.Load())
}

func TestOpenAIEmbed(t *testing.T) {
	p := newOpenAITestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"object": "list",
			"model": "text-embedding-3-small",
			"data": [{"object": "embedding", "index": 0, "embedding": [0.5, -0.25]}],
			"usage": {"prompt_tokens": 2, "total_tokens": 2}
		}`))
	})

	vec, err := p.Embed(context.Background(), "text-embedding-3-small", "nvidia margins", TaskRetrievalQuery)
	require.NoError(t, err)
	require.Equal(t, []float32{0.5, -0.25}, vec)
}

func TestOpenAIGenerateKeepsRawText(t *testing.T) {
	p := newOpenAITestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"I cannot comply\n"}}]}`))
	})

	resp, err := p.Generate(context.Background(), "gpt-4.1-mini", "hi")
	require.NoError(t, err)
	require.Equal(t, "I cannot comply\n", resp.Text())
}

func TestOpenAIMissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	p, err := newOpenAIProvider(nil)
	require.NoError(t, err)
	_, err = p.Generate(context.Background(), "gpt-4.1-mini", "hi")
	require.ErrorIs(t, err, ErrUnavailable)
	_, err = p.Embed(context.Background(), "text-embedding-3-small", "hi", "")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenAIResponseTextWithoutChoices(t *testing.T) {
	var resp *openAIResponse
	require.Equal(t, "", resp.Text())
}
