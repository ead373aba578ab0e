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

func TestOpenRouterGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer or-key", r.Header.Get("Authorization"))
		require.Equal(t, "https://mag7.example", r.Header.Get("HTTP-Referer"))
		require.Equal(t, "mag7qa", r.Header.Get("X-Title"))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "openai/gpt-4.1-mini", body["model"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"hello\n"}}]}`))
	}))
	defer server.Close()

	p, err := NewProvider("openrouter", map[string]interface{}{
		"api_key":      "or-key",
		"base_url":     server.URL + "/api/v1",
		"http_referer": "https://mag7.example",
		"x_title":      "mag7qa",
	})
	require.NoError(t, err)
	resp, err := p.Generate(context.Background(), "openai/gpt-4.1-mini", "hi")
	require.NoError(t, err)
	require.Equal(t, "hello\n", resp.Text())
}

func TestOpenRouterOmitsEmptyAttribution(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("HTTP-Referer"))
		require.Empty(t, r.Header.Get("X-Title"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer server.Close()

	p, err := NewProvider("openrouter", map[string]interface{}{"api_key": "k", "base_url": server.URL})
	require.NoError(t, err)
	resp, err := p.Generate(context.Background(), "m", "hi")
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Text())
}

func TestOpenRouterMissingKey(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	p, err := NewProvider("openrouter", nil)
	require.NoError(t, err)
	_, err = p.Generate(context.Background(), "m", "hi")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenRouterErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "http error", status: http.StatusUnauthorized, body: `{"error":{"message":"bad key"}}`},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`},
		{name: "bad json", status: http.StatusOK, body: `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()
			p, err := NewProvider("openrouter", map[string]interface{}{"api_key": "k", "base_url": server.URL})
			require.NoError(t, err)
			_, err = p.Generate(context.Background(), "m", "hi")
			require.Error(t, err)
			require.Contains(t, err.Error(), "openrouter")
			require.Equal(t, int32(1), calls.Load())
		})
	}
}
