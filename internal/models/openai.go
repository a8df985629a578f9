// internal/models/openai.go
package models

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIModel talks to the OpenAI chat completions API.
type OpenAIModel struct {
	apiKey      string
	modelName   string
	baseURL     string
	temperature float64
	client      *RetryableClient
}

func NewOpenAI(apiKey, modelName, baseURL string, temperature float64, retry RetryConfig) *OpenAIModel {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIModel{
		apiKey:      apiKey,
		modelName:   modelName,
		baseURL:     baseURL,
		temperature: temperature,
		client:      NewRetryableClient(retry),
	}
}

func (m *OpenAIModel) ID() string {
	return "openai/" + m.modelName
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (m *OpenAIModel) Generate(ctx context.Context, messages []Message) (string, Usage, error) {
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
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.DoWithRetry(ctx, "openai", req)
	if err != nil {
		return "", Usage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", Usage{}, &ProviderError{
			Provider: "openai",
			Kind:     Permanent,
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("%s", raw),
		}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", Usage{}, &ProviderError{Provider: "openai", Kind: Transient, Err: fmt.Errorf("decode: %w", err)}
	}
	if parsed.Error != nil {
		return "", Usage{}, &ProviderError{Provider: "openai", Kind: Permanent, Err: fmt.Errorf("%s: %s", parsed.Error.Type, parsed.Error.Message)}
	}
	if len(parsed.Choices) == 0 {
		return "", Usage{}, &ProviderError{Provider: "openai", Kind: Transient, Err: fmt.Errorf("empty choices")}
	}

	return parsed.Choices[0].Message.Content, parsed.Usage, nil
}
