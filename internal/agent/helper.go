// internal/agent/helper.go
package agent

import (
	"context"
	"fmt"

	"polemic/internal/models"
	"polemic/internal/prompts"
)

// HelperKind selects the auxiliary pass an agent runs before speaking.
type HelperKind string

const (
	// HelperVanilla suggests the strongest line of response.
	HelperVanilla HelperKind = "vanilla"
	// HelperFallacy analyzes the opponent's argument for logical fallacies.
	HelperFallacy HelperKind = "fallacy"
)

// Helper is an auxiliary LLM pass whose output is folded into the next
// prompt without entering the visible transcript.
type Helper struct {
	kind  HelperKind
	model models.Model
	lib   *prompts.Library
	claim string
}

// NewHelper creates a helper pass for the given claim.
func NewHelper(kind HelperKind, model models.Model, lib *prompts.Library, claim string) (*Helper, error) {
	switch kind {
	case HelperVanilla, HelperFallacy:
	default:
		return nil, fmt.Errorf("unknown helper kind %q", kind)
	}
	return &Helper{kind: kind, model: model, lib: lib, claim: claim}, nil
}

// Advise runs the helper pass against the opponent's latest utterance.
func (h *Helper) Advise(ctx context.Context, opponent string) (string, models.Usage, error) {
	key := prompts.KeyHelperVanilla
	if h.kind == HelperFallacy {
		key = prompts.KeyHelperFallacy
	}

	prompt, err := h.lib.Render(key, map[string]string{
		"Claim":    h.claim,
		"Opponent": opponent,
	})
	if err != nil {
		return "", models.Usage{}, err
	}

	text, usage, err := h.model.Generate(ctx, []models.Message{
		{Role: models.RoleUser, Content: prompt},
	})
	if err != nil {
		return "", usage, err
	}
	return text, usage, nil
}
