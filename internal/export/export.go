// internal/export/export.go
// Outcome persistence: per-debate directory with markdown transcript and
// JSON outcome, plus the central results spreadsheet.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"polemic/internal/orchestrator"
)

// DebateDir creates (if needed) and returns the directory for one
// debate's artifacts: <base>/<topic_id>/<helper_type>/<debate_id>/.
func DebateDir(baseDir, topicID, helperType, debateID string) (string, error) {
	dir := filepath.Join(baseDir, sanitize(topicID), sanitize(helperType), sanitize(debateID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create debate directory: %w", err)
	}
	return dir, nil
}

// WriteJSON writes the full outcome as outcome.json in dir.
func WriteJSON(outcome *orchestrator.Outcome, dir string) (string, error) {
	path := filepath.Join(dir, "outcome.json")

	data, err := json.MarshalIndent(outcomeDoc(outcome), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal outcome: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write outcome: %w", err)
	}
	return path, nil
}

// outcomeDoc flattens the outcome into a stable JSON shape.
func outcomeDoc(o *orchestrator.Outcome) map[string]any {
	turns := make([]map[string]any, 0, len(o.Transcript))
	for _, t := range o.Transcript {
		turns = append(turns, map[string]any{
			"role":      string(t.Role),
			"round":     t.Round,
			"text":      t.Text,
			"tokens":    t.Tokens,
			"timestamp": t.Timestamp.Format(time.RFC3339),
		})
	}
	verdicts := make([]map[string]any, 0, len(o.Verdicts))
	for _, v := range o.Verdicts {
		verdicts = append(verdicts, map[string]any{
			"moderator": v.Moderator,
			"round":     v.Round,
			"signal":    v.Signal.String(),
			"rationale": v.Rationale,
		})
	}
	return map[string]any{
		"debate_id":   o.DebateID,
		"topic_id":    o.TopicID,
		"claim":       o.Claim,
		"helper_type": o.HelperType,
		"result":      o.Result.String(),
		"result_code": o.Result.Code(),
		"reason":      o.Reason,
		"rounds":      o.Rounds,
		"usage": map[string]int{
			"prompt_tokens":     o.Usage.PromptTokens,
			"completion_tokens": o.Usage.CompletionTokens,
			"total_tokens":      o.Usage.TotalTokens,
		},
		"started_at": o.StartedAt.Format(time.RFC3339),
		"ended_at":   o.EndedAt.Format(time.RFC3339),
		"transcript": turns,
		"verdicts":   verdicts,
	}
}

// sanitize removes characters unsuitable for path segments.
func sanitize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "-")

	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		}
	}
	result := strings.Trim(sb.String(), "-")
	if result == "" {
		result = "debate"
	}
	if len(result) > 50 {
		result = result[:50]
	}
	return result
}
