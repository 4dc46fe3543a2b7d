// Package provider adapts each LLM API client to a single prompt-in,
// text-out contract the fetcher fans out over.
package provider

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/trueinf/geosight-new-sub000/internal/model"
	"github.com/trueinf/geosight-new-sub000/pkg/anthropic"
	"github.com/trueinf/geosight-new-sub000/pkg/gemini"
	"github.com/trueinf/geosight-new-sub000/pkg/openai"
	"github.com/trueinf/geosight-new-sub000/pkg/perplexity"
)

// ErrEmptyResponse is returned when a provider answers with no text.
var ErrEmptyResponse = eris.New("provider: empty response")

// Caller sends one prompt to one provider and returns the raw answer text.
type Caller interface {
	Provider() model.Provider
	Complete(ctx context.Context, prompt string) (string, error)
}

type claudeCaller struct{ client anthropic.Client }

// NewClaude adapts an Anthropic client.
func NewClaude(client anthropic.Client) Caller { return &claudeCaller{client: client} }

func (c *claudeCaller) Provider() model.Provider { return model.ProviderClaude }

func (c *claudeCaller) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		System:   systemPrompt,
		Messages: []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return nonEmpty(resp.Text())
}

type openAICaller struct{ client openai.Client }

// NewOpenAI adapts an OpenAI client.
func NewOpenAI(client openai.Client) Caller { return &openAICaller{client: client} }

func (c *openAICaller) Provider() model.Provider { return model.ProviderOpenAI }

func (c *openAICaller) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.ChatCompletion(ctx, openai.ChatRequest{System: systemPrompt, Prompt: prompt})
	if err != nil {
		return "", err
	}
	return nonEmpty(resp.Content)
}

type perplexityCaller struct{ client perplexity.Client }

// NewPerplexity adapts a Perplexity client.
func NewPerplexity(client perplexity.Client) Caller { return &perplexityCaller{client: client} }

func (c *perplexityCaller) Provider() model.Provider { return model.ProviderPerplexity }

func (c *perplexityCaller) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	return nonEmpty(resp.Content())
}

type geminiCaller struct{ client gemini.Client }

// NewGemini adapts a Gemini client. The candidate/parts envelope is flattened
// to plain text here so the parser only ever sees strings.
func NewGemini(client gemini.Client) Caller { return &geminiCaller{client: client} }

func (c *geminiCaller) Provider() model.Provider { return model.ProviderGemini }

func (c *geminiCaller) Complete(ctx context.Context, prompt string) (string, error) {
	req := gemini.UserText(prompt)
	req.SystemInstruction = &gemini.Content{Parts: []gemini.Part{{Text: systemPrompt}}}
	resp, err := c.client.GenerateContent(ctx, req)
	if err != nil {
		return "", err
	}
	return nonEmpty(resp.Text())
}

func nonEmpty(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
