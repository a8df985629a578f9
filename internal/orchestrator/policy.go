// internal/orchestrator/policy.go
package orchestrator

import (
	"fmt"

	"polemic/internal/debate"
	"polemic/internal/moderation"
)

// Termination condition names, matching config.Termination.Priority.
const (
	CondConvinced = "convinced"
	CondHardStop  = "hard_stop"
	CondMaxRounds = "max_rounds"
)

// Policy decides when and why a debate stops. Conditions are evaluated
// in priority order only after every moderator verdict for the round has
// been collected.
type Policy struct {
	Priority  []string
	MaxRounds int
}

// DefaultPriority is the inferred ordering: an explicit concession beats
// a hard stop, which beats running out of rounds.
var DefaultPriority = []string{CondConvinced, CondHardStop, CondMaxRounds}

// NewPolicy builds a policy, applying the default priority when none is
// configured.
func NewPolicy(priority []string, maxRounds int) Policy {
	if len(priority) == 0 {
		priority = DefaultPriority
	}
	return Policy{Priority: priority, MaxRounds: maxRounds}
}

// Decide evaluates the round's verdicts against the priority order.
// It returns the result, the termination reason, and whether to stop.
func (p Policy) Decide(verdicts []moderation.Verdict, round int) (debate.Result, string, bool) {
	for _, cond := range p.Priority {
		switch cond {
		case CondConvinced:
			for _, v := range verdicts {
				if v.Signal == moderation.SignalConvinced {
					return debate.ResultConverged, reasonFor(v), true
				}
			}
		case CondHardStop:
			for _, v := range verdicts {
				if v.Signal == moderation.SignalHardStop {
					return debate.ResultHardStop, reasonFor(v), true
				}
			}
		case CondMaxRounds:
			for _, v := range verdicts {
				if v.Signal == moderation.SignalMaxRounds {
					return debate.ResultMaxRounds, reasonFor(v), true
				}
			}
			if round >= p.MaxRounds {
				return debate.ResultMaxRounds, fmt.Sprintf("reached the configured maximum of %d rounds", p.MaxRounds), true
			}
		}
	}
	return debate.ResultMaxRounds, "", false
}

func reasonFor(v moderation.Verdict) string {
	if v.Rationale != "" {
		return fmt.Sprintf("%s: %s", v.Moderator, v.Rationale)
	}
	return fmt.Sprintf("%s signaled %s", v.Moderator, v.Signal)
}
