package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type geminiConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Timeout int64  `json:"timeout"`
}

type geminiProvider struct {
	apiKey  string
	baseURL string
	timeout int64
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

func (p *geminiProvider) newClient(ctx context.Context) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      p.apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  newHTTPClient(p.timeout),
		HTTPOptions: genai.HTTPOptions{BaseURL: p.baseURL},
	})
}

// Generate returns the sdk response as is; it already carries Text().
func (p *geminiProvider) Generate(ctx context.Context, model string, prompt string) (TextResponse, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	client, err := p.newClient(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := client.Models.GenerateContent(
		ctx,
		model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		nil,
	)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("gemini response is empty")
	}
	return resp, nil
}

func (p *geminiProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	client, err := p.newClient(ctx)
	if err != nil {
		return nil, err
	}
	var config *genai.EmbedContentConfig
	if taskType != "" {
		config = &genai.EmbedContentConfig{
			TaskType: taskType,
		}
	}
	resp, err := client.Models.EmbedContent(
		ctx,
		model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		config,
	)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("no embedding values returned")
	}
	return resp.Embeddings[0].Values, nil
}

func newGeminiProvider(args interface{}) (*geminiProvider, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	return &geminiProvider{
		apiKey:  resolveAPIKey(cfg.APIKey, "GEMINI_API_KEY"),
		baseURL: strings.TrimSpace(cfg.BaseURL),
		timeout: cfg.Timeout,
	}, nil
}

func createGeminiFactory(args interface{}) (IAIProvider, error) {
	return newGeminiProvider(args)
}

func createGeminiEmbedFactory(args interface{}) (IEmbedProvider, error) {
	return newGeminiProvider(args)
}

func init() {
	Register("gemini", createGeminiFactory)
	RegisterEmbed("gemini", createGeminiEmbedFactory)
}
