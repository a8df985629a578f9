// internal/moderation/topic.go
package moderation

import (
	"context"
	"fmt"

	"polemic/internal/claims"
	"polemic/internal/debate"
	"polemic/internal/models"
	"polemic/internal/prompts"
)

// DefaultDriftThreshold is the minimum claim-keyword overlap an exchange
// needs to count as on-topic.
const DefaultDriftThreshold = 0.1

// driftTopic hard-stops when both sides of the latest round have drifted
// away from the claim's vocabulary.
type driftTopic struct {
	name      string
	threshold float64
}

func newDriftTopic(name string, threshold float64) *driftTopic {
	if threshold <= 0 {
		threshold = DefaultDriftThreshold
	}
	return &driftTopic{name: name, threshold: threshold}
}

func (c *driftTopic) Name() string { return c.name }

func (c *driftTopic) Check(_ context.Context, claim claims.Claim, transcript []debate.Turn, round int) (Verdict, error) {
	v := Verdict{Moderator: c.name, Signal: SignalContinue, Round: round}

	reference := extractKeywords(claim.Text)
	if len(reference) == 0 {
		return v, nil
	}

	drifted := 0
	checked := 0
	for _, t := range transcript {
		if t.Round != round {
			continue
		}
		checked++
		if overlapRatio(reference, t.Text) < c.threshold {
			drifted++
		}
	}

	// A single tangential turn is tolerated; the round is off-topic only
	// when every utterance in it lost the claim.
	if checked > 0 && drifted == checked {
		v.Signal = SignalHardStop
		v.Rationale = fmt.Sprintf("round %d no longer references the claim (overlap below %.2f)", round, c.threshold)
	}
	return v, nil
}

// modelTopic asks a moderator model whether the exchange is still about
// the claim.
type modelTopic struct {
	name  string
	model models.Model
	lib   *prompts.Library
	usage models.Usage
}

func newModelTopic(name string, model models.Model, lib *prompts.Library) *modelTopic {
	return &modelTopic{name: name, model: model, lib: lib}
}

func (c *modelTopic) Name() string { return c.name }

func (c *modelTopic) Usage() models.Usage { return c.usage }

func (c *modelTopic) Check(ctx context.Context, claim claims.Claim, transcript []debate.Turn, round int) (Verdict, error) {
	v := Verdict{Moderator: c.name, Signal: SignalContinue, Round: round}

	prompt, err := c.lib.Render(prompts.KeyModeratorTopic, map[string]string{
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

	if token, ok := parseVerdict(text); ok && token == "OFF-TOPIC" {
		v.Signal = SignalHardStop
		v.Rationale = rationaleAfterVerdict(text)
	}
	return v, nil
}
