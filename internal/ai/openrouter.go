package ai

import (
	"context"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

type openrouterConfig struct {
	APIKey      string `json:"api_key"`
	BaseURL     string `json:"base_url"`
	HTTPReferer string `json:"http_referer"`
	XTitle      string `json:"x_title"`
	Timeout     int64  `json:"timeout"`
}

type openrouterProvider struct {
	apiKey string
	client openai.Client
}

func (p *openrouterProvider) Name() string {
	return "openrouter"
}

func (p *openrouterProvider) Generate(ctx context.Context, model string, prompt string) (TextResponse, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	return chatComplete(ctx, &p.client, p.Name(), model, prompt)
}

func createOpenRouterFactory(args interface{}) (IAIProvider, error) {
	cfg := &openrouterConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	// attribution headers for the openrouter rankings, both optional
	var headers []option.RequestOption
	if referer := strings.TrimSpace(cfg.HTTPReferer); referer != "" {
		headers = append(headers, option.WithHeader("HTTP-Referer", referer))
	}
	if title := strings.TrimSpace(cfg.XTitle); title != "" {
		headers = append(headers, option.WithHeader("X-Title", title))
	}
	apiKey := resolveAPIKey(cfg.APIKey, "OPENROUTER_API_KEY")
	return &openrouterProvider{
		apiKey: apiKey,
		client: newCompatClient(apiKey, baseURL, cfg.Timeout, headers...),
	}, nil
}

func init() {
	Register("openrouter", createOpenRouterFactory)
}
