// internal/events/events.go
// Structured per-round event sink. The orchestrator emits one event per
// turn, verdict and state transition; sinks decide where they land.
package events

import (
	"strconv"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Event types.
const (
	TypeDebateStarted    = "debate_started"
	TypeTurnRecorded     = "turn_recorded"
	TypeVerdictRecorded  = "verdict_recorded"
	TypeHelperFailed     = "helper_failed"
	TypeDebateTerminated = "debate_terminated"
)

// Event is one structured debate event.
type Event struct {
	Type     string            `json:"type"`
	DebateID string            `json:"debate_id"`
	Round    int               `json:"round,omitempty"`
	Data     map[string]string `json:"data,omitempty"`
}

// Sink receives debate events. Implementations must not block the debate.
type Sink interface {
	Emit(event Event)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Emit(Event) {}

// ZapSink writes events as structured log entries.
type ZapSink struct {
	logger *zap.Logger
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger}
}

func (s *ZapSink) Emit(event Event) {
	fields := make([]zap.Field, 0, len(event.Data)+2)
	fields = append(fields, zap.String("debate_id", event.DebateID))
	if event.Round > 0 {
		fields = append(fields, zap.Int("round", event.Round))
	}
	for k, v := range event.Data {
		fields = append(fields, zap.String(k, v))
	}
	s.logger.Info(event.Type, fields...)
}

// MultiSink fans one event out to several sinks.
type MultiSink []Sink

func (m MultiSink) Emit(event Event) {
	for _, s := range m {
		s.Emit(event)
	}
}

// DebateStarted builds a debate_started event.
func DebateStarted(debateID, topicID, helperType string) Event {
	return Event{
		Type:     TypeDebateStarted,
		DebateID: debateID,
		Data: map[string]string{
			"topic_id":    topicID,
			"helper_type": helperType,
		},
	}
}

// TurnRecorded builds a turn_recorded event.
func TurnRecorded(debateID string, round int, role, text string, tokens int) Event {
	return Event{
		Type:     TypeTurnRecorded,
		DebateID: debateID,
		Round:    round,
		Data: map[string]string{
			"role":   role,
			"text":   truncate(text, 300),
			"tokens": strconv.Itoa(tokens),
		},
	}
}

// VerdictRecorded builds a verdict_recorded event.
func VerdictRecorded(debateID string, round int, moderator, signal, rationale string) Event {
	return Event{
		Type:     TypeVerdictRecorded,
		DebateID: debateID,
		Round:    round,
		Data: map[string]string{
			"moderator": moderator,
			"signal":    signal,
			"rationale": truncate(rationale, 200),
		},
	}
}

// HelperFailed builds a helper_failed event. Helper failures are
// non-fatal but belong in the per-round audit trail.
func HelperFailed(debateID string, round int, role, reason string) Event {
	return Event{
		Type:     TypeHelperFailed,
		DebateID: debateID,
		Round:    round,
		Data: map[string]string{
			"role":   role,
			"reason": truncate(reason, 200),
		},
	}
}

// DebateTerminated builds a debate_terminated event.
func DebateTerminated(debateID string, rounds int, result, reason string) Event {
	return Event{
		Type:     TypeDebateTerminated,
		DebateID: debateID,
		Round:    rounds,
		Data: map[string]string{
			"result": result,
			"reason": truncate(reason, 300),
		},
	}
}

// truncate limits a string to maxLen bytes, cutting on a rune boundary
// so the emitted event stays valid UTF-8.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
