// internal/runner/runner_test.go
package runner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"polemic/internal/claims"
	"polemic/internal/config"
	"polemic/internal/debate"
	"polemic/internal/moderation"
)

// newModelServer serves an OpenAI-compatible chat completions endpoint
// whose reply depends on the caller's system prompt, so the debater
// concedes in round 2 while the persuader keeps arguing.
func newModelServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}

		reply := "A fresh argument for the claim."
		if len(req.Messages) > 0 && strings.Contains(req.Messages[0].Content, "Debater") {
			reply = "I still doubt that."
			if len(req.Messages) > 3 {
				reply = "Alright, I am convinced."
			}
		}

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": reply}, "finish_reason": "stop"},
			},
			"usage": map[string]int{"prompt_tokens": 20, "completion_tokens": 8, "total_tokens": 28},
		}
		json.NewEncoder(w).Encode(resp)
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, &calls
}

func testConfig(t *testing.T, serverURL string) *config.Config {
	t.Helper()
	tmp := t.TempDir()

	cfg := config.Default()
	cfg.Models.Persuader = config.Binding{Provider: "local", Model: "test-model", BaseURL: serverURL}
	cfg.Models.Debater = config.Binding{Provider: "local", Model: "test-model", BaseURL: serverURL}
	cfg.Models.Helper = config.Binding{Provider: "local", Model: "test-model", BaseURL: serverURL}
	cfg.Debate.MaxRounds = 4
	cfg.Moderators = []config.ModeratorSpec{{Name: "concession", Check: "convinced"}}
	cfg.Export.Dir = filepath.Join(tmp, "debates")
	cfg.Export.Summary = filepath.Join(tmp, "all_debates_summary.xlsx")
	cfg.Export.Markdown = true
	cfg.Export.JSON = true
	cfg.Store.Enabled = true
	cfg.Store.Path = filepath.Join(tmp, "debates.db")
	cfg.Retry.Attempts = 1
	return cfg
}

var testClaim = claims.Claim{TopicID: "5", Text: "Standardized tests measure the wrong skills"}

// --- Constructor Tests ---

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default() // no model bindings
	if _, err := New(cfg, zap.NewNop(), ""); err == nil {
		t.Error("Expected error for config without bindings")
	}
}

// --- RunOne Tests ---

func TestRunOne_DebateConvergesAndExports(t *testing.T) {
	server, _ := newModelServer(t)
	cfg := testConfig(t, server.URL)

	r, err := New(cfg, zap.NewNop(), "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer r.Close()

	outcome, err := r.RunOne(context.Background(), testClaim, "none")
	if err != nil {
		t.Fatalf("RunOne returned error: %v", err)
	}

	if outcome.Result != debate.ResultConverged {
		t.Fatalf("Expected converged result, got %v (%s)", outcome.Result, outcome.Reason)
	}
	if outcome.Rounds != 2 {
		t.Errorf("Expected 2 rounds, got %d", outcome.Rounds)
	}
	if outcome.DebateID == "" {
		t.Error("Expected a generated debate id")
	}
	if outcome.TopicID != "5" {
		t.Errorf("Expected topic id carried through, got %q", outcome.TopicID)
	}
	if outcome.Usage.TotalTokens == 0 {
		t.Error("Expected aggregated usage")
	}

	// Artifacts land in <dir>/<topic>/<helper>/<debate_id>/.
	debateDir := filepath.Join(cfg.Export.Dir, "5", "none", outcome.DebateID)
	for _, name := range []string{"transcript.md", "outcome.json"} {
		if _, err := os.Stat(filepath.Join(debateDir, name)); err != nil {
			t.Errorf("Expected %s exported: %v", name, err)
		}
	}
	if _, err := os.Stat(cfg.Export.Summary); err != nil {
		t.Errorf("Expected summary spreadsheet created: %v", err)
	}
}

func TestRunOne_MaxRoundsModeratorLimitsDebate(t *testing.T) {
	server, _ := newModelServer(t)
	cfg := testConfig(t, server.URL)
	cfg.Debate.MaxRounds = 2
	// No round limit set on the spec: it defaults to debate.max_rounds.
	cfg.Moderators = []config.ModeratorSpec{{Name: "limit", Check: "max_rounds"}}

	r, err := New(cfg, zap.NewNop(), "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer r.Close()

	outcome, err := r.RunOne(context.Background(), testClaim, "none")
	if err != nil {
		t.Fatalf("RunOne returned error: %v", err)
	}

	if outcome.Result != debate.ResultMaxRounds {
		t.Fatalf("Expected max-rounds result, got %v (%s)", outcome.Result, outcome.Reason)
	}
	if outcome.Rounds != 2 {
		t.Errorf("Expected 2 rounds, got %d", outcome.Rounds)
	}

	var found bool
	for _, v := range outcome.Verdicts {
		if v.Moderator == "limit" && v.Signal == moderation.SignalMaxRounds {
			found = true
		}
	}
	if !found {
		t.Error("Expected the round limit recorded in the verdict audit trail")
	}
}

func TestRunOne_HelperRequiresBoundModel(t *testing.T) {
	server, _ := newModelServer(t)
	cfg := testConfig(t, server.URL)
	cfg.Models.Helper = config.Binding{}

	r, err := New(cfg, zap.NewNop(), "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer r.Close()

	if _, err := r.RunOne(context.Background(), testClaim, "fallacy"); err == nil {
		t.Error("Expected error running a helper debate without a helper model")
	}
}

func TestRunOne_UnreachableProviderYieldsErrorOutcome(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")

	r, err := New(cfg, zap.NewNop(), "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer r.Close()

	outcome, err := r.RunOne(context.Background(), testClaim, "none")
	if err != nil {
		t.Fatalf("RunOne returned error: %v", err)
	}
	if outcome.Result != debate.ResultError {
		t.Errorf("Expected error result, got %v", outcome.Result)
	}
	if len(outcome.Transcript) != 0 {
		t.Errorf("Expected empty transcript, got %d turns", len(outcome.Transcript))
	}
}

// --- RunBatch Tests ---

func TestRunBatch_SweepsClaimsAndHelpers(t *testing.T) {
	server, _ := newModelServer(t)
	cfg := testConfig(t, server.URL)

	r, err := New(cfg, zap.NewNop(), "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer r.Close()

	cs := []claims.Claim{
		{TopicID: "1", Text: "Claim one"},
		{TopicID: "2", Text: "Claim two"},
	}

	summary, err := r.RunBatch(context.Background(), cs, []string{"none", "fallacy"}, 2)
	if err != nil {
		t.Fatalf("RunBatch returned error: %v", err)
	}

	if summary.Overall.Total != 4 {
		t.Fatalf("Expected 4 debates (2 claims x 2 helpers), got %d", summary.Overall.Total)
	}
	if summary.Overall.Converged != 4 {
		t.Errorf("Expected all debates converged, got %d", summary.Overall.Converged)
	}
	if len(summary.ByHelper) != 2 {
		t.Errorf("Expected per-helper tallies for 2 helper types, got %d", len(summary.ByHelper))
	}
	for helper, tally := range summary.ByHelper {
		if tally.Total != 2 {
			t.Errorf("Expected 2 debates for helper %q, got %d", helper, tally.Total)
		}
	}
	if len(summary.Outcomes) != 4 {
		t.Errorf("Expected 4 outcomes kept, got %d", len(summary.Outcomes))
	}
}

func TestRunBatch_DefaultsToConfiguredHelper(t *testing.T) {
	server, _ := newModelServer(t)
	cfg := testConfig(t, server.URL)
	cfg.Debate.Helper = "vanilla"

	r, err := New(cfg, zap.NewNop(), "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer r.Close()

	summary, err := r.RunBatch(context.Background(), []claims.Claim{{TopicID: "1", Text: "c"}}, nil, 1)
	if err != nil {
		t.Fatalf("RunBatch returned error: %v", err)
	}
	if _, ok := summary.ByHelper["vanilla"]; !ok {
		t.Errorf("Expected the configured helper used, got %v", summary.ByHelper)
	}
}

func TestRunBatch_CancellationStopsScheduling(t *testing.T) {
	server, _ := newModelServer(t)
	cfg := testConfig(t, server.URL)

	r, err := New(cfg, zap.NewNop(), "")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cs := []claims.Claim{
		{TopicID: "1", Text: "Claim one"},
		{TopicID: "2", Text: "Claim two"},
	}
	summary, err := r.RunBatch(ctx, cs, []string{"none"}, 1)
	if err == nil {
		t.Error("Expected the context error surfaced")
	}
	if summary.Overall.Converged != 0 {
		t.Errorf("Expected no converged debates after immediate cancellation, got %d", summary.Overall.Converged)
	}
}
