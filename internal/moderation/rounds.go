// internal/moderation/rounds.go
package moderation

import (
	"context"
	"fmt"

	"polemic/internal/claims"
	"polemic/internal/debate"
)

// maxRounds signals once the debate has used up its round allowance, so
// the limit appears in the per-round audit trail like any other check.
type maxRounds struct {
	name   string
	rounds int
}

func newMaxRounds(name string, rounds int) (*maxRounds, error) {
	if rounds < 1 {
		return nil, fmt.Errorf("moderator %q: round limit must be at least 1", name)
	}
	return &maxRounds{name: name, rounds: rounds}, nil
}

func (c *maxRounds) Name() string { return c.name }

func (c *maxRounds) Check(_ context.Context, _ claims.Claim, _ []debate.Turn, round int) (Verdict, error) {
	v := Verdict{Moderator: c.name, Signal: SignalContinue, Round: round}
	if round >= c.rounds {
		v.Signal = SignalMaxRounds
		v.Rationale = fmt.Sprintf("round limit of %d reached", c.rounds)
	}
	return v, nil
}
