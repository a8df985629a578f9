// internal/models/gemini.go
package models

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiModel talks to the Google Gemini generateContent API.
type GeminiModel struct {
	apiKey      string
	modelName   string
	baseURL     string
	temperature float64
	client      *RetryableClient
}

func NewGemini(apiKey, modelName, baseURL string, temperature float64, retry RetryConfig) *GeminiModel {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &GeminiModel{
		apiKey:      apiKey,
		modelName:   modelName,
		baseURL:     baseURL,
		temperature: temperature,
		client:      NewRetryableClient(retry),
	}
}

func (m *GeminiModel) ID() string {
	return "gemini/" + m.modelName
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  struct {
		Temperature float64 `json:"temperature,omitempty"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

func (m *GeminiModel) Generate(ctx context.Context, messages []Message) (string, Usage, error) {
	var req geminiRequest
	req.GenerationConfig.Temperature = m.temperature

	// Gemini separates the system instruction from the turn contents and
	// names the assistant role "model".
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: msg.Content}}}
		case RoleAssistant:
			req.Contents = append(req.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: msg.Content}}})
		default:
			req.Contents = append(req.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: msg.Content}}})
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", Usage{}, fmt.Errorf("marshal: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", m.baseURL, m.modelName)
	httpReq, err := NewRequestWithBody(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", Usage{}, fmt.Errorf("request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", m.apiKey)

	resp, err := m.client.DoWithRetry(ctx, "gemini", httpReq)
	if err != nil {
		return "", Usage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", Usage{}, &ProviderError{
			Provider: "gemini",
			Kind:     Permanent,
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("%s", raw),
		}
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", Usage{}, &ProviderError{Provider: "gemini", Kind: Transient, Err: fmt.Errorf("decode: %w", err)}
	}
	if len(parsed.Candidates) == 0 {
		return "", Usage{}, &ProviderError{Provider: "gemini", Kind: Transient, Err: fmt.Errorf("no candidates")}
	}

	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}

	usage := Usage{
		PromptTokens:     parsed.UsageMetadata.PromptTokenCount,
		CompletionTokens: parsed.UsageMetadata.CandidatesTokenCount,
		TotalTokens:      parsed.UsageMetadata.TotalTokenCount,
	}
	return sb.String(), usage, nil
}
