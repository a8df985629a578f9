// internal/models/local.go
package models

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const defaultLocalBaseURL = "http://localhost:11434/v1"

// LocalModel talks to an OpenAI-compatible local inference server
// (Ollama, llama.cpp server, vLLM). No auth header; token usage is
// estimated when the server does not report it.
type LocalModel struct {
	modelName   string
	baseURL     string
	temperature float64
	client      *RetryableClient
}

func NewLocal(modelName, baseURL string, temperature float64, retry RetryConfig) *LocalModel {
	if baseURL == "" {
		baseURL = defaultLocalBaseURL
	}
	return &LocalModel{
		modelName:   modelName,
		baseURL:     baseURL,
		temperature: temperature,
		client:      NewRetryableClient(retry),
	}
}

func (m *LocalModel) ID() string {
	return "local/" + m.modelName
}

func (m *LocalModel) Generate(ctx context.Context, messages []Message) (string, Usage, error) {
	body, err := json.Marshal(chatRequest{
		Model:       m.modelName,
		Messages:    messages,
		Temperature: m.temperature,
	})
	if err != nil {
		return "", Usage{}, fmt.Errorf("marshal: %w", err)
	}

	req, err := NewRequestWithBody(ctx, http.MethodPost, m.baseURL+"/chat/completions", body)
	if err != nil {
		return "", Usage{}, fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.DoWithRetry(ctx, "local", req)
	if err != nil {
		return "", Usage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", Usage{}, &ProviderError{
			Provider: "local",
			Kind:     Permanent,
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("%s", raw),
		}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", Usage{}, &ProviderError{Provider: "local", Kind: Transient, Err: fmt.Errorf("decode: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return "", Usage{}, &ProviderError{Provider: "local", Kind: Transient, Err: fmt.Errorf("empty choices")}
	}

	text := parsed.Choices[0].Message.Content
	usage := parsed.Usage
	if usage.TotalTokens == 0 {
		// Rough estimate for servers that omit usage accounting.
		for _, msg := range messages {
			usage.PromptTokens += (len(msg.Content) + 3) / 4
		}
		usage.CompletionTokens = (len(text) + 3) / 4
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	return text, usage, nil
}
