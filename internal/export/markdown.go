// internal/export/markdown.go
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"polemic/internal/debate"
	"polemic/internal/moderation"
	"polemic/internal/orchestrator"
)

// RenderMarkdown generates a human-readable transcript of a debate.
func RenderMarkdown(o *orchestrator.Outcome) string {
	var sb strings.Builder

	sb.WriteString("# Debate ")
	sb.WriteString(o.TopicID)
	sb.WriteString("\n\n")

	sb.WriteString("---\n\n")
	sb.WriteString(fmt.Sprintf("**Debate ID:** `%s`\n\n", o.DebateID))
	sb.WriteString(fmt.Sprintf("**Claim:** %s\n\n", o.Claim))
	sb.WriteString(fmt.Sprintf("**Helper:** %s\n\n", o.HelperType))
	sb.WriteString(fmt.Sprintf("**Result:** %s (%d rounds)\n\n", o.Result, o.Rounds))
	if o.Reason != "" {
		sb.WriteString(fmt.Sprintf("**Termination reason:** %s\n\n", o.Reason))
	}
	sb.WriteString("---\n\n")

	sb.WriteString("## Transcript\n\n")

	verdictsByRound := make(map[int][]moderation.Verdict)
	for _, v := range o.Verdicts {
		verdictsByRound[v.Round] = append(verdictsByRound[v.Round], v)
	}

	lastRound := 0
	for _, turn := range o.Transcript {
		if turn.Round != lastRound {
			if lastRound != 0 {
				writeVerdicts(&sb, verdictsByRound[lastRound])
			}
			sb.WriteString(fmt.Sprintf("### Round %d\n\n", turn.Round))
			lastRound = turn.Round
		}

		sb.WriteString(fmt.Sprintf("**[%s] %s**\n\n", turn.Timestamp.Format("15:04:05"), formatRole(turn.Role)))
		for _, line := range strings.Split(strings.TrimSpace(turn.Text), "\n") {
			sb.WriteString("> ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	if lastRound != 0 {
		writeVerdicts(&sb, verdictsByRound[lastRound])
	}

	sb.WriteString("---\n\n")
	sb.WriteString(fmt.Sprintf("*Total tokens: %d*\n", o.Usage.TotalTokens))

	return sb.String()
}

// WriteMarkdown writes the transcript as transcript.md in dir.
func WriteMarkdown(o *orchestrator.Outcome, dir string) (string, error) {
	path := filepath.Join(dir, "transcript.md")
	if err := os.WriteFile(path, []byte(RenderMarkdown(o)), 0644); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	return path, nil
}

func writeVerdicts(sb *strings.Builder, verdicts []moderation.Verdict) {
	if len(verdicts) == 0 {
		return
	}
	sb.WriteString("*Moderation:*\n\n")
	for _, v := range verdicts {
		line := fmt.Sprintf("- `%s`: %s", v.Moderator, v.Signal)
		if v.Rationale != "" {
			line += " (" + v.Rationale + ")"
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

func formatRole(role debate.Role) string {
	switch role {
	case debate.RolePersuader:
		return "Persuader"
	case debate.RoleDebater:
		return "Debater"
	case debate.RoleModerator:
		return "Moderator"
	default:
		return string(role)
	}
}
