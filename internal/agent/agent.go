// internal/agent/agent.go
// Debate participants. An agent wraps one role around a memory manager
// and an LLM client and exposes a single take-turn operation.
package agent

import (
	"context"
	"fmt"
	"time"

	"polemic/internal/debate"
	"polemic/internal/memory"
	"polemic/internal/models"
)

// GenerationFailure is raised when the underlying client's retry budget
// is exhausted. Fatal for the current debate only.
type GenerationFailure struct {
	Role  debate.Role
	Round int
	Err   error
}

func (e *GenerationFailure) Error() string {
	return fmt.Sprintf("%s failed to generate in round %d: %v", e.Role, e.Round, e.Err)
}

func (e *GenerationFailure) Unwrap() error {
	return e.Err
}

// Agent is one debate participant (Persuader or Debater).
type Agent struct {
	role   debate.Role
	model  models.Model
	mem    *memory.Manager
	helper *Helper // nil unless a helper pass is configured
	usage  models.Usage

	helperErr error // last turn's helper failure, if any
}

// NewPersuader creates the persuading agent. helper may be nil.
func NewPersuader(model models.Model, mem *memory.Manager, helper *Helper) *Agent {
	return &Agent{role: debate.RolePersuader, model: model, mem: mem, helper: helper}
}

// NewDebater creates the contesting agent.
func NewDebater(model models.Model, mem *memory.Manager) *Agent {
	return &Agent{role: debate.RoleDebater, model: model, mem: mem}
}

// Role returns the agent's debate role.
func (a *Agent) Role() debate.Role {
	return a.role
}

// Act takes one turn: the incoming utterance (opponent's last turn, or
// the opening instruction in round 1) goes into the agent's own memory,
// the rendered history goes to the model, and the reply comes back as an
// immutable Turn. Helper advice, when available, is folded into the
// prompt but never appears in the returned turn.
func (a *Agent) Act(ctx context.Context, incoming string, round int) (debate.Turn, error) {
	content := incoming
	a.helperErr = nil
	if a.helper != nil {
		advice, usage, err := a.helper.Advise(ctx, incoming)
		a.usage.Add(usage)
		if err == nil && advice != "" {
			content = fmt.Sprintf("%s\n\n[Advisor note, not visible to your opponent: %s]", incoming, advice)
		}
		// Helper failures are non-fatal; the agent argues unadvised and
		// the failure is surfaced through HelperFailure for the audit log.
		a.helperErr = err
	}

	a.mem.Append(models.RoleUser, content)

	messages, err := a.mem.Render(ctx)
	if err != nil {
		return debate.Turn{}, &GenerationFailure{Role: a.role, Round: round, Err: err}
	}

	text, usage, err := a.model.Generate(ctx, messages)
	if err != nil {
		return debate.Turn{}, &GenerationFailure{Role: a.role, Round: round, Err: err}
	}
	a.usage.Add(usage)

	a.mem.Append(models.RoleAssistant, text)

	return debate.Turn{
		Role:      a.role,
		Text:      text,
		Round:     round,
		Tokens:    usage.CompletionTokens,
		Timestamp: time.Now(),
	}, nil
}

// Usage returns tokens consumed by this agent: generation, helper passes
// and memory summarization combined.
func (a *Agent) Usage() models.Usage {
	total := a.usage
	total.Add(a.mem.Usage())
	return total
}

// HelperFailure returns the helper-pass error from the most recent Act,
// or nil if there was none.
func (a *Agent) HelperFailure() error {
	return a.helperErr
}

// MemoryState exposes the agent's memory bookkeeping for audit events.
func (a *Agent) MemoryState() memory.State {
	return a.mem.State()
}
