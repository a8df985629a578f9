// internal/memory/memory.go
// Bounded per-agent conversation memory. Each agent owns one Manager;
// the pinned system turn (role instructions plus the claim) survives
// every compression.
package memory

import (
	"context"
	"fmt"
	"strings"

	"polemic/internal/models"
)

// CompressionKind records how the last compression happened.
type CompressionKind int

const (
	CompressionNone CompressionKind = iota
	CompressionTruncated
	CompressionSummarized
)

func (k CompressionKind) String() string {
	switch k {
	case CompressionTruncated:
		return "truncated"
	case CompressionSummarized:
		return "summarized"
	default:
		return "none"
	}
}

// State is a snapshot of a manager's bookkeeping.
type State struct {
	TurnCount       int
	TokenEstimate   int
	LastCompression CompressionKind
}

type entry struct {
	msg     models.Message
	tokens  int
	summary bool
}

// Options configures a Manager.
type Options struct {
	// TokenBudget caps the rendered history size.
	TokenBudget int
	// SummarizeTrigger is the turn count beyond which summarization is
	// attempted before truncation. Only meaningful with a Summarizer.
	SummarizeTrigger int
	// KeepRecent is how many of the newest turns stay verbatim when a
	// block is summarized.
	KeepRecent int
	// Summarizer, when set, condenses the oldest turns with a dedicated
	// LLM call. Summarization failures fall back to truncation.
	Summarizer models.Model
}

const defaultSummaryInstruction = "Condense the following debate exchange into a short factual summary. " +
	"Preserve every position taken, every concession made, and any argument still open. Reply with the summary only."

// Manager holds one agent's conversation history.
type Manager struct {
	pinned    entry
	turns     []entry
	opts      Options
	estimator *Estimator
	usage     models.Usage
	lastComp  CompressionKind
}

// NewManager creates a memory manager with the given pinned system
// content. The pinned turn is never truncated or summarized away.
func NewManager(system string, opts Options) *Manager {
	if opts.TokenBudget <= 0 {
		opts.TokenBudget = 3000
	}
	if opts.KeepRecent <= 0 {
		opts.KeepRecent = 4
	}
	est := NewEstimator()
	return &Manager{
		pinned: entry{
			msg:    models.Message{Role: models.RoleSystem, Content: system},
			tokens: est.Count(system),
		},
		opts:      opts,
		estimator: est,
	}
}

// Append adds a turn to history and updates the token estimate.
func (m *Manager) Append(role, content string) {
	m.turns = append(m.turns, entry{
		msg:    models.Message{Role: role, Content: content},
		tokens: m.estimator.Count(content),
	})
}

// Render returns the message sequence representing current history,
// compressing first if the estimate exceeds the token budget.
// Summarization runs at most once per render and must strictly shrink
// the estimate; otherwise the same pass falls through to truncation, so
// the loop always makes progress.
func (m *Manager) Render(ctx context.Context) ([]models.Message, error) {
	summarized := false
	for m.estimate() > m.opts.TokenBudget && len(m.turns) > 0 {
		before := m.estimate()
		if !summarized && m.canSummarize() {
			if err := m.summarizeOldest(ctx); err == nil {
				summarized = true
				m.lastComp = CompressionSummarized
				if m.estimate() < before {
					continue
				}
			}
			// Summarization failure is recovered locally; the debate goes
			// on with a truncated history.
		}
		m.truncateOldest()
		m.lastComp = CompressionTruncated
	}

	out := make([]models.Message, 0, len(m.turns)+1)
	out = append(out, m.pinned.msg)
	for _, e := range m.turns {
		out = append(out, e.msg)
	}
	return out, nil
}

// State returns a snapshot of the manager's bookkeeping.
func (m *Manager) State() State {
	return State{
		TurnCount:       len(m.turns),
		TokenEstimate:   m.estimate(),
		LastCompression: m.lastComp,
	}
}

// Usage returns tokens consumed by summarization calls.
func (m *Manager) Usage() models.Usage {
	return m.usage
}

func (m *Manager) estimate() int {
	total := m.pinned.tokens
	for _, e := range m.turns {
		total += e.tokens
	}
	return total
}

// canSummarize reports whether the oldest block is eligible for a
// summarization pass.
func (m *Manager) canSummarize() bool {
	return m.opts.Summarizer != nil &&
		len(m.turns) > m.opts.SummarizeTrigger &&
		len(m.turns) > m.opts.KeepRecent
}

// summarizeOldest replaces everything except the KeepRecent newest turns
// with a single summary turn.
func (m *Manager) summarizeOldest(ctx context.Context) error {
	cut := len(m.turns) - m.opts.KeepRecent
	block := m.turns[:cut]

	var sb strings.Builder
	for _, e := range block {
		if e.summary {
			sb.WriteString("[earlier summary] ")
		}
		fmt.Fprintf(&sb, "%s: %s\n", e.msg.Role, e.msg.Content)
	}

	text, usage, err := m.opts.Summarizer.Generate(ctx, []models.Message{
		{Role: models.RoleSystem, Content: defaultSummaryInstruction},
		{Role: models.RoleUser, Content: sb.String()},
	})
	if err != nil {
		return err
	}
	m.usage.Add(usage)

	content := "Summary of the earlier exchange: " + strings.TrimSpace(text)
	summary := entry{
		msg:     models.Message{Role: models.RoleUser, Content: content},
		tokens:  m.estimator.Count(content),
		summary: true,
	}

	kept := make([]entry, 0, m.opts.KeepRecent+1)
	kept = append(kept, summary)
	kept = append(kept, m.turns[cut:]...)
	m.turns = kept
	return nil
}

// truncateOldest drops the oldest non-pinned turn. Called repeatedly by
// Render until the estimate is back under budget.
func (m *Manager) truncateOldest() {
	if len(m.turns) == 0 {
		return
	}
	m.turns = m.turns[1:]
}
