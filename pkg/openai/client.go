// Package openai wraps the official openai-go SDK behind the small chat
// completion surface the fetcher needs.
package openai

import (
	"context"
	"errors"
	"net/http"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rotisserie/eris"

	"github.com/trueinf/geosight-new-sub000/internal/resilience"
)

const defaultModel = "gpt-4o-mini"

// Client performs chat completions against the OpenAI API.
type Client interface {
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest is our own request type for ChatCompletion.
type ChatRequest struct {
	Model       string
	System      string
	Prompt      string
	Temperature *float64
	MaxTokens   int64
}

// ChatResponse is our own response type from ChatCompletion.
type ChatResponse struct {
	ID           string
	Model        string
	Content      string
	FinishReason string
	PromptTokens int64
	OutputTokens int64
}

// Option configures the client.
type Option func(*settings)

type settings struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(s *settings) { s.baseURL = url }
}

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(s *settings) { s.model = model }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) { s.httpClient = hc }
}

type sdkClient struct {
	client sdk.Client
	model  string
}

// NewClient creates an OpenAI client backed by the SDK with SDK-level retries
// disabled.
func NewClient(apiKey string, opts ...Option) Client {
	s := settings{model: defaultModel}
	for _, o := range opts {
		o(&s)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if s.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(s.baseURL))
	}
	if s.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(s.httpClient))
	}

	return &sdkClient{client: sdk.NewClient(reqOpts...), model: s.model}
}

func (c *sdkClient) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	var msgs []sdk.ChatCompletionMessageParamUnion
	if req.System != "" {
		msgs = append(msgs, sdk.SystemMessage(req.System))
	}
	msgs = append(msgs, sdk.UserMessage(req.Prompt))

	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(model),
		Messages: msgs,
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = sdk.Int(req.MaxTokens)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return nil, resilience.WithStatus(eris.Wrap(err, "openai: chat completion"), apiErr.StatusCode)
		}
		return nil, eris.Wrap(err, "openai: chat completion")
	}

	out := &ChatResponse{
		ID:           resp.ID,
		Model:        resp.Model,
		PromptTokens: resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
	if len(resp.Choices) > 0 {
		out.Content = resp.Choices[0].Message.Content
		out.FinishReason = resp.Choices[0].FinishReason
	}
	return out, nil
}
