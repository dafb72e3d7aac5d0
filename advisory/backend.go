// Package advisory resolves a climate report and an optional user question
// into natural-language irrigation recommendations through an ordered chain of
// LLM backends, ending in a deterministic template that cannot fail.
package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const systemPersona = "Eres un asesor agroclimático experto. Responde en español, claro y conciso, orientado a productores agropecuarios."

// Backend is one advisory capability in the fallback chain. Available is
// re-evaluated on every advisory call: credentials set or cleared at runtime
// grow or shrink the chain without a restart.
type Backend interface {
	Name() string
	Available() bool
	Generate(ctx context.Context, prompt string) (string, error)
}

// OpenAIBackend generates through the OpenAI chat completions API. The key is
// read through keyFunc at call time.
type OpenAIBackend struct {
	keyFunc func() string
	model   string
}

func NewOpenAIBackend(keyFunc func() string, model string) *OpenAIBackend {
	return &OpenAIBackend{keyFunc: keyFunc, model: model}
}

func (b *OpenAIBackend) Name() string { return "openai" }

func (b *OpenAIBackend) Available() bool { return b.keyFunc() != "" }

func (b *OpenAIBackend) Generate(ctx context.Context, prompt string) (string, error) {
	client := openai.NewClient(b.keyFunc())

	resp, err := client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: b.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPersona,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   400,
			Temperature: 0.2,
		},
	)
	if err != nil {
		return "", fmt.Errorf("openai chat completion error: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai returned empty response or choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

const hostedInferenceBase = "https://api-inference.huggingface.co/models/"

type hostedRequest struct {
	Inputs     string                 `json:"inputs"`
	Parameters map[string]interface{} `json:"parameters"`
}

type hostedResponse []struct {
	GeneratedText string `json:"generated_text"`
}

// HostedBackend generates through the Hugging Face hosted inference API, a
// plain HTTP JSON call against an open model.
type HostedBackend struct {
	tokenFunc  func() string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewHostedBackend(tokenFunc func() string, model string) *HostedBackend {
	return &HostedBackend{
		tokenFunc:  tokenFunc,
		model:      model,
		baseURL:    hostedInferenceBase,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (b *HostedBackend) Name() string { return "hosted-inference" }

func (b *HostedBackend) Available() bool { return b.tokenFunc() != "" }

func (b *HostedBackend) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(hostedRequest{
		Inputs: prompt,
		Parameters: map[string]interface{}{
			"max_new_tokens":   400,
			"temperature":      0.2,
			"return_full_text": false,
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+b.model, bytes.NewBuffer(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.tokenFunc())

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("hosted inference returned status %s", resp.Status)
	}

	var out hostedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out) == 0 || strings.TrimSpace(out[0].GeneratedText) == "" {
		return "", fmt.Errorf("hosted inference returned empty generation")
	}
	return strings.TrimSpace(out[0].GeneratedText), nil
}
