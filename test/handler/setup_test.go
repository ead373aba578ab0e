package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/xxxsen/mag7qa/internal/agent"
	"github.com/xxxsen/mag7qa/internal/ai"
	"github.com/xxxsen/mag7qa/internal/conversation"
	"github.com/xxxsen/mag7qa/internal/handler"
	"github.com/xxxsen/mag7qa/internal/index"
	"github.com/xxxsen/mag7qa/internal/metrics"
	"github.com/xxxsen/mag7qa/internal/middleware"
	"github.com/xxxsen/mag7qa/internal/model"
	"github.com/xxxsen/mag7qa/internal/pkg/jwt"
	"github.com/xxxsen/mag7qa/internal/service"
)

var jwtSecret = []byte("test-secret")

type staticEmbedder struct{}

func (staticEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (staticEmbedder) ModelName() string {
	return "all-minilm"
}

type scriptedGenerator struct {
	reply string
	err   error
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (ai.TextResponse, error) {
	if g.err != nil {
		return nil, g.err
	}
	return ai.NewTextResponse(g.reply), nil
}

func (g *scriptedGenerator) ModelName() string {
	return "gpt-4.1-mini"
}

type testServer struct {
	handler   http.Handler
	generator *scriptedGenerator
}

func setupRouter(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ix := index.New(&index.File{
		Model:     "all-minilm",
		Dimension: 2,
		Chunks: []model.DocumentChunk{
			{
				ID:        "aapl-1",
				Text:      "Total net sales for the first quarter of 2023 were $117.2 billion.",
				Metadata:  map[string]interface{}{"company": "AAPL", "form": "10-Q", "date": "2023-02-03", "url": "https://www.sec.gov/aapl"},
				Embedding: []float32{1, 0},
			},
		},
	})
	gen := &scriptedGenerator{reply: `{"answer":"$117.2B","sources":[],"confidence":"0.95"}`}
	collector := metrics.New()
	pipeline := agent.NewPipeline(agent.NewRetriever(staticEmbedder{}, ix), gen, agent.WithMetrics(collector))
	qa := service.NewQAService(conversation.NewStore(), pipeline, nil, collector, agent.Options{K: 5, SnippetLen: 500})

	deps := handler.RouterDeps{
		Sessions:  handler.NewSessionHandler(qa),
		Health:    handler.NewHealthHandler(ix, gen.ModelName(), "all-minilm"),
		Metrics:   collector.Handler(),
		JWTSecret: jwtSecret,
	}
	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(nil),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	require.NoError(t, err)
	return &testServer{handler: engine, generator: gen}
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (s *testServer) do(t *testing.T, method, path, user string, body interface{}) envelope {
	t.Helper()
	payload := []byte{}
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		token, err := jwt.GenerateToken(user, jwtSecret, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	s.handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	return env
}
