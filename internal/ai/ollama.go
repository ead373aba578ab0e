package ai

import (
	"context"
	"strings"

	"github.com/openai/openai-go"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434/v1"
	// ollama ignores the key but the client always sends one
	ollamaAPIKey = "ollama"
)

type ollamaConfig struct {
	BaseURL string `json:"base_url"`
	Timeout int64  `json:"timeout"`
}

// ollamaProvider talks to the openai compatible api of a local ollama daemon.
type ollamaProvider struct {
	baseURL string
	client  openai.Client
}

func (p *ollamaProvider) Name() string {
	return "ollama"
}

func (p *ollamaProvider) Generate(ctx context.Context, model string, prompt string) (TextResponse, error) {
	return chatComplete(ctx, &p.client, p.Name(), model, prompt)
}

func (p *ollamaProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	return embedText(ctx, &p.client, p.Name(), model, text)
}

// ollamaBaseURL accepts both the daemon root and its /v1 prefix.
func ollamaBaseURL(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if base == "" {
		return defaultOllamaBaseURL
	}
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	return base
}

func newOllamaProvider(args interface{}) (*ollamaProvider, error) {
	cfg := &ollamaConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := ollamaBaseURL(cfg.BaseURL)
	return &ollamaProvider{
		baseURL: baseURL,
		client:  newCompatClient(ollamaAPIKey, baseURL, cfg.Timeout),
	}, nil
}

func createOllamaFactory(args interface{}) (IAIProvider, error) {
	return newOllamaProvider(args)
}

func createOllamaEmbedFactory(args interface{}) (IEmbedProvider, error) {
	return newOllamaProvider(args)
}

func init() {
	Register("ollama", createOllamaFactory)
	RegisterEmbed("ollama", createOllamaEmbedFactory)
}
