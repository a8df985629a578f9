// internal/models/registry.go
package models

import (
	"fmt"

	"polemic/internal/config"
)

// Registry holds the per-role model bindings for one debate run.
type Registry struct {
	byRole map[string]Model
}

// Role keys used by the registry.
const (
	RolePersuader  = "persuader"
	RoleDebater    = "debater"
	RoleModerator  = "moderator"
	RoleSummarizer = "summarizer"
	RoleHelper     = "helper"
)

// NewRegistry builds models for every bound role in the config.
// Optional roles (moderator, summarizer, helper) are skipped when unbound.
func NewRegistry(cfg *config.Config) (*Registry, error) {
	retry := RetryConfig{
		MaxAttempts: cfg.Retry.Attempts,
		BaseDelay:   cfg.RetryDelay(),
		Timeout:     cfg.RequestTimeout(),
	}

	r := &Registry{byRole: make(map[string]Model)}

	bindings := map[string]config.Binding{
		RolePersuader:  cfg.Models.Persuader,
		RoleDebater:    cfg.Models.Debater,
		RoleModerator:  cfg.Models.Moderator,
		RoleSummarizer: cfg.Models.Summarizer,
		RoleHelper:     cfg.Models.Helper,
	}

	for role, binding := range bindings {
		if binding.Provider == "" {
			continue
		}
		m, err := FromBinding(binding, retry)
		if err != nil {
			return nil, fmt.Errorf("bind %s: %w", role, err)
		}
		r.byRole[role] = m
	}

	return r, nil
}

// FromBinding constructs a single model client from one binding.
func FromBinding(b config.Binding, retry RetryConfig) (Model, error) {
	switch b.Provider {
	case "openai":
		return NewOpenAI(b.APIKey, b.Model, b.BaseURL, b.Temperature, retry), nil
	case "gemini":
		return NewGemini(b.APIKey, b.Model, b.BaseURL, b.Temperature, retry), nil
	case "local":
		return NewLocal(b.Model, b.BaseURL, b.Temperature, retry), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", b.Provider)
	}
}

// Get returns the model bound to a role, or nil when unbound.
func (r *Registry) Get(role string) Model {
	return r.byRole[role]
}
