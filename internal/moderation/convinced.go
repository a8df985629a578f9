// internal/moderation/convinced.go
package moderation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"polemic/internal/claims"
	"polemic/internal/debate"
	"polemic/internal/models"
	"polemic/internal/prompts"
)

// DefaultConvincedMarker is the phrase the debater's system prompt asks
// it to emit on conceding.
const DefaultConvincedMarker = "I am convinced"

// markerConvinced signals convinced when the latest debater utterance
// contains the marker phrase.
type markerConvinced struct {
	name    string
	marker  string
	pattern *regexp.Regexp
}

func newMarkerConvinced(name, marker string) (*markerConvinced, error) {
	if marker == "" {
		marker = DefaultConvincedMarker
	}
	pattern, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(marker))
	if err != nil {
		return nil, fmt.Errorf("moderator %q: bad marker: %w", name, err)
	}
	return &markerConvinced{name: name, marker: marker, pattern: pattern}, nil
}

func (c *markerConvinced) Name() string { return c.name }

func (c *markerConvinced) Check(_ context.Context, _ claims.Claim, transcript []debate.Turn, round int) (Verdict, error) {
	v := Verdict{Moderator: c.name, Signal: SignalContinue, Round: round}

	last, ok := debate.LastByRole(transcript, debate.RoleDebater)
	if !ok {
		return v, nil
	}
	if c.pattern.MatchString(last.Text) {
		v.Signal = SignalConvinced
		v.Rationale = fmt.Sprintf("debater utterance contains %q", c.marker)
	}
	return v, nil
}

// modelConvinced asks a moderator model whether the debater has conceded.
type modelConvinced struct {
	name  string
	model models.Model
	lib   *prompts.Library
	usage models.Usage
}

func newModelConvinced(name string, model models.Model, lib *prompts.Library) *modelConvinced {
	return &modelConvinced{name: name, model: model, lib: lib}
}

func (c *modelConvinced) Name() string { return c.name }

func (c *modelConvinced) Usage() models.Usage { return c.usage }

func (c *modelConvinced) Check(ctx context.Context, claim claims.Claim, transcript []debate.Turn, round int) (Verdict, error) {
	v := Verdict{Moderator: c.name, Signal: SignalContinue, Round: round}

	prompt, err := c.lib.Render(prompts.KeyModeratorConvinced, map[string]string{
		"Claim":    claim.Text,
		"Exchange": latestExchange(transcript, round),
	})
	if err != nil {
		return v, err
	}

	text, usage, err := c.model.Generate(ctx, []models.Message{
		{Role: models.RoleUser, Content: prompt},
	})
	if err != nil {
		return v, err
	}
	c.usage.Add(usage)

	if token, ok := parseVerdict(text); ok && token == "CONVINCED" {
		v.Signal = SignalConvinced
		v.Rationale = rationaleAfterVerdict(text)
	}
	return v, nil
}

// latestExchange formats the turns of the given round for a moderator
// prompt.
func latestExchange(transcript []debate.Turn, round int) string {
	var sb strings.Builder
	for _, t := range transcript {
		if t.Round != round {
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\n\n", strings.ToUpper(string(t.Role)), t.Text)
	}
	return strings.TrimSpace(sb.String())
}
