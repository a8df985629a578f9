// internal/moderation/moderation.go
// Moderator checks. Each moderator instance runs exactly one check type
// against the shared transcript and emits a verdict; moderators never
// speak in the debate itself.
package moderation

import (
	"context"
	"fmt"

	"polemic/internal/claims"
	"polemic/internal/config"
	"polemic/internal/debate"
	"polemic/internal/models"
	"polemic/internal/prompts"
)

// Signal is the categorical outcome of one moderator check.
type Signal int

const (
	SignalContinue Signal = iota
	SignalConvinced
	SignalHardStop
	SignalMaxRounds
)

func (s Signal) String() string {
	switch s {
	case SignalConvinced:
		return "convinced"
	case SignalHardStop:
		return "hard-stop"
	case SignalMaxRounds:
		return "max-rounds"
	default:
		return "continue"
	}
}

// Verdict is the structured result of one moderator check for one round.
// Immutable once created.
type Verdict struct {
	Moderator string
	Signal    Signal
	Rationale string
	Round     int
}

// Checker is one configured moderator.
type Checker interface {
	Name() string
	Check(ctx context.Context, claim claims.Claim, transcript []debate.Turn, round int) (Verdict, error)
}

// UsageReporter is implemented by model-backed checkers.
type UsageReporter interface {
	Usage() models.Usage
}

// New builds a checker from its config spec. model may be nil for
// rule-based checks.
func New(spec config.ModeratorSpec, model models.Model, lib *prompts.Library) (Checker, error) {
	switch spec.Check {
	case "convinced":
		if spec.UseModel {
			if model == nil {
				return nil, fmt.Errorf("moderator %q: model-backed check with no model", spec.Name)
			}
			return newModelConvinced(spec.Name, model, lib), nil
		}
		return newMarkerConvinced(spec.Name, spec.Marker)
	case "off_topic":
		if spec.UseModel {
			if model == nil {
				return nil, fmt.Errorf("moderator %q: model-backed check with no model", spec.Name)
			}
			return newModelTopic(spec.Name, model, lib), nil
		}
		return newDriftTopic(spec.Name, spec.Threshold), nil
	case "repetition":
		return newRepetition(spec.Name, spec.Threshold), nil
	case "max_rounds":
		return newMaxRounds(spec.Name, spec.Rounds)
	default:
		return nil, fmt.Errorf("moderator %q: unknown check type %q", spec.Name, spec.Check)
	}
}
