// internal/moderation/repetition.go
package moderation

import (
	"context"
	"fmt"

	"polemic/internal/claims"
	"polemic/internal/debate"
)

// DefaultRepetitionThreshold is the token-set similarity beyond which two
// persuader turns count as the same argument.
const DefaultRepetitionThreshold = 0.8

// repetition hard-stops when the persuader restates an earlier turn
// almost verbatim, which means the debate has stalled.
type repetition struct {
	name      string
	threshold float64
}

func newRepetition(name string, threshold float64) *repetition {
	if threshold <= 0 {
		threshold = DefaultRepetitionThreshold
	}
	return &repetition{name: name, threshold: threshold}
}

func (c *repetition) Name() string { return c.name }

func (c *repetition) Check(_ context.Context, _ claims.Claim, transcript []debate.Turn, round int) (Verdict, error) {
	v := Verdict{Moderator: c.name, Signal: SignalContinue, Round: round}

	turns := debate.ByRole(transcript, debate.RolePersuader)
	if len(turns) < 2 {
		return v, nil
	}

	latest := turns[len(turns)-1]
	for _, earlier := range turns[:len(turns)-1] {
		if sim := jaccard(latest.Text, earlier.Text); sim >= c.threshold {
			v.Signal = SignalHardStop
			v.Rationale = fmt.Sprintf("persuader round %d repeats round %d (similarity %.2f)", latest.Round, earlier.Round, sim)
			return v, nil
		}
	}
	return v, nil
}
