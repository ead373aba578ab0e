package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

type openAIConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Timeout int64  `json:"timeout"`
}

type openAIProvider struct {
	apiKey string
	client openai.Client
}

// openAIResponse exposes the first choice of a chat completion, unmodified.
type openAIResponse struct {
	completion *openai.ChatCompletion
}

func (r *openAIResponse) Text() string {
	if r == nil || r.completion == nil || len(r.completion.Choices) == 0 {
		return ""
	}
	return r.completion.Choices[0].Message.Content
}

// newCompatClient builds an openai-go client for any openai compatible endpoint.
func newCompatClient(apiKey, baseURL string, timeout int64, extra ...option.RequestOption) openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
		option.WithHTTPClient(newHTTPClient(timeout)),
	}
	return openai.NewClient(append(opts, extra...)...)
}

func chatComplete(ctx context.Context, client *openai.Client, name, model, prompt string) (TextResponse, error) {
	completion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    model,
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
	})
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", name, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%s response has no choices", name)
	}
	return &openAIResponse{completion: completion}, nil
}

func embedText(ctx context.Context, client *openai.Client, name, model, text string) ([]float32, error) {
	resp, err := client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: model,
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
	})
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", name, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%s response has no embeddings", name)
	}
	values := resp.Data[0].Embedding
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out, nil
}

func (p *openAIProvider) Name() string {
	return "openai"
}

func (p *openAIProvider) Generate(ctx context.Context, model string, prompt string) (TextResponse, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	return chatComplete(ctx, &p.client, p.Name(), model, prompt)
}

func (p *openAIProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	return embedText(ctx, &p.client, p.Name(), model, text)
}

func newOpenAIProvider(args interface{}) (*openAIProvider, error) {
	cfg := &openAIConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	apiKey := resolveAPIKey(cfg.APIKey, "OPENAI_API_KEY")
	return &openAIProvider{apiKey: apiKey, client: newCompatClient(apiKey, baseURL, cfg.Timeout)}, nil
}

func createOpenAIFactory(args interface{}) (IAIProvider, error) {
	return newOpenAIProvider(args)
}

func createOpenAIEmbedFactory(args interface{}) (IEmbedProvider, error) {
	return newOpenAIProvider(args)
}

func init() {
	Register("openai", createOpenAIFactory)
	RegisterEmbed("openai", createOpenAIEmbedFactory)
}
