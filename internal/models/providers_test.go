// internal/models/providers_test.go
package models

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"polemic/internal/config"
)

func chatCompletionJSON(content string, usage Usage) string {
	doc := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
		"usage": usage,
	}
	raw, _ := json.Marshal(doc)
	return string(raw)
}

// --- OpenAI Tests ---

func TestOpenAI_Generate(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatCompletionJSON("The claim holds.", Usage{PromptTokens: 12, CompletionTokens: 4, TotalTokens: 16})))
	}))
	defer server.Close()

	m := NewOpenAI("sk-test", "gpt-4o", server.URL, 0.7, testRetryConfig(1))

	text, usage, err := m.Generate(context.Background(), []Message{
		{Role: RoleSystem, Content: "You argue for the claim."},
		{Role: RoleUser, Content: "Begin."},
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if text != "The claim holds." {
		t.Errorf("Expected completion text, got %q", text)
	}
	if usage.TotalTokens != 16 {
		t.Errorf("Expected usage 16, got %d", usage.TotalTokens)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Expected bearer auth header, got %q", gotAuth)
	}
	if gotReq.Model != "gpt-4o" || len(gotReq.Messages) != 2 {
		t.Errorf("Unexpected request payload: model=%q messages=%d", gotReq.Model, len(gotReq.Messages))
	}
	if gotReq.Temperature != 0.7 {
		t.Errorf("Expected temperature forwarded, got %f", gotReq.Temperature)
	}
	if m.ID() != "openai/gpt-4o" {
		t.Errorf("Unexpected ID %q", m.ID())
	}
}

func TestOpenAI_PermanentErrorOnBadRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer server.Close()

	m := NewOpenAI("sk-bad", "gpt-4o", server.URL, 0, testRetryConfig(1))

	_, _, err := m.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatal("Expected error for 401 response")
	}

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected ProviderError, got %T", err)
	}
	if pe.Kind != Permanent {
		t.Errorf("Expected permanent kind, got %v", pe.Kind)
	}
	if pe.Status != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", pe.Status)
	}
	if IsTransient(err) {
		t.Error("Expected IsTransient to report false")
	}
}

func TestOpenAI_TransientErrorOnEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	m := NewOpenAI("sk", "gpt-4o", server.URL, 0, testRetryConfig(1))
	_, _, err := m.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if !IsTransient(err) {
		t.Errorf("Expected transient error for empty choices, got %v", err)
	}
}

// --- Local Tests ---

func TestLocal_EstimatesUsageWhenOmitted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("Expected no auth header for local provider")
		}
		w.Write([]byte(chatCompletionJSON("a local reply of some length", Usage{})))
	}))
	defer server.Close()

	m := NewLocal("llama3", server.URL, 0, testRetryConfig(1))

	text, usage, err := m.Generate(context.Background(), []Message{{Role: RoleUser, Content: "Begin the debate."}})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if text != "a local reply of some length" {
		t.Errorf("Unexpected text %q", text)
	}
	if usage.TotalTokens == 0 {
		t.Error("Expected estimated usage when the server omits accounting")
	}
	if usage.TotalTokens != usage.PromptTokens+usage.CompletionTokens {
		t.Errorf("Expected consistent estimate, got %+v", usage)
	}
	if m.ID() != "local/llama3" {
		t.Errorf("Unexpected ID %q", m.ID())
	}
}

// --- Gemini Tests ---

func TestGemini_Generate(t *testing.T) {
	var gotKey string
	var gotReq geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		if r.URL.Path != "/models/gemini-pro:generateContent" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(`{
			"candidates":[{"content":{"role":"model","parts":[{"text":"A strong "},{"text":"rebuttal."}]}}],
			"usageMetadata":{"promptTokenCount":9,"candidatesTokenCount":3,"totalTokenCount":12}
		}`))
	}))
	defer server.Close()

	m := NewGemini("g-key", "gemini-pro", server.URL, 0.2, testRetryConfig(1))

	text, usage, err := m.Generate(context.Background(), []Message{
		{Role: RoleSystem, Content: "You contest the claim."},
		{Role: RoleUser, Content: "The claim is true."},
		{Role: RoleAssistant, Content: "I doubt it."},
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if text != "A strong rebuttal." {
		t.Errorf("Expected concatenated parts, got %q", text)
	}
	if usage.TotalTokens != 12 {
		t.Errorf("Expected usage 12, got %d", usage.TotalTokens)
	}
	if gotKey != "g-key" {
		t.Errorf("Expected api key header, got %q", gotKey)
	}
	if gotReq.SystemInstruction == nil {
		t.Fatal("Expected the system message separated into systemInstruction")
	}
	if len(gotReq.Contents) != 2 {
		t.Fatalf("Expected 2 content turns, got %d", len(gotReq.Contents))
	}
	if gotReq.Contents[1].Role != "model" {
		t.Errorf("Expected assistant mapped to role model, got %q", gotReq.Contents[1].Role)
	}
}

// --- Registry Tests ---

func TestNewRegistry_BindsConfiguredRoles(t *testing.T) {
	cfg := config.Default()
	cfg.Models.Persuader = config.Binding{Provider: "openai", Model: "gpt-4o", APIKey: "sk"}
	cfg.Models.Debater = config.Binding{Provider: "local", Model: "llama3"}

	r, err := NewRegistry(cfg)
	if err != nil {
		t.Fatalf("NewRegistry returned error: %v", err)
	}

	if m := r.Get(RolePersuader); m == nil || m.ID() != "openai/gpt-4o" {
		t.Errorf("Expected persuader bound to openai, got %v", m)
	}
	if m := r.Get(RoleDebater); m == nil || m.ID() != "local/llama3" {
		t.Errorf("Expected debater bound to local, got %v", m)
	}
	if m := r.Get(RoleSummarizer); m != nil {
		t.Errorf("Expected unbound summarizer to be nil, got %v", m)
	}
}

func TestFromBinding_RejectsUnknownProvider(t *testing.T) {
	_, err := FromBinding(config.Binding{Provider: "anthropic", Model: "x"}, DefaultRetryConfig())
	if err == nil {
		t.Error("Expected error for unknown provider")
	}
}
