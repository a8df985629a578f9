// internal/orchestrator/orchestrator.go
// The debate state machine: sequences agent turns, runs every moderator
// check after each round, applies the termination policy and assembles
// the final outcome.
package orchestrator

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"polemic/internal/agent"
	"polemic/internal/claims"
	"polemic/internal/config"
	"polemic/internal/db"
	"polemic/internal/debate"
	"polemic/internal/events"
	"polemic/internal/moderation"
	"polemic/internal/models"
	"polemic/internal/prompts"
)

// State of the debate machine.
type State int

const (
	StateInit State = iota
	StateRoundInProgress
	StateModeration
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateRoundInProgress:
		return "round-in-progress"
	case StateModeration:
		return "moderation"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Outcome is the final record of one debate. Immutable once returned.
type Outcome struct {
	DebateID   string
	TopicID    string
	Claim      string
	HelperType string
	Result     debate.Result
	Reason     string
	Rounds     int
	Transcript []debate.Turn
	Verdicts   []moderation.Verdict
	Usage      models.Usage
	StartedAt  time.Time
	EndedAt    time.Time
}

// Options wires one debate's collaborators.
type Options struct {
	DebateID   string
	HelperType string

	Persuader  *agent.Agent
	Debater    *agent.Agent
	Moderators []moderation.Checker

	Policy    Policy
	TurnDelay time.Duration

	Prompts *prompts.Library
	Sink    events.Sink
	Logger  *zap.Logger
	Store   *db.Store // optional write-through persistence
}

// Orchestrator drives one debate. Strictly sequential: each agent call
// is fully ordered after the previous one.
type Orchestrator struct {
	opts  Options
	state State
}

// New validates the wiring and returns an orchestrator in StateInit.
// Invalid wiring fails here, before any debate state is created.
func New(opts Options) (*Orchestrator, error) {
	if opts.Persuader == nil {
		return nil, &config.ConfigurationError{Field: "persuader", Reason: "missing agent"}
	}
	if opts.Debater == nil {
		return nil, &config.ConfigurationError{Field: "debater", Reason: "missing agent"}
	}
	if opts.Policy.MaxRounds < 1 {
		return nil, &config.ConfigurationError{Field: "max_rounds", Reason: "must be at least 1"}
	}
	if opts.Sink == nil {
		opts.Sink = events.NopSink{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Prompts == nil {
		opts.Prompts = prompts.NewLibrary("")
	}
	return &Orchestrator{opts: opts, state: StateInit}, nil
}

// State returns the machine's current state.
func (o *Orchestrator) State() State {
	return o.state
}

// Run executes the debate for one claim and always returns an outcome;
// failures terminate the debate with result = error and the partial
// transcript preserved. TERMINATED is absorbing: a second Run on the
// same orchestrator returns an error outcome immediately.
func (o *Orchestrator) Run(ctx context.Context, claim claims.Claim) *Outcome {
	outcome := &Outcome{
		DebateID:   o.opts.DebateID,
		TopicID:    claim.TopicID,
		Claim:      claim.Text,
		HelperType: o.opts.HelperType,
		StartedAt:  time.Now(),
	}

	if o.state != StateInit {
		outcome.Result = debate.ResultError
		outcome.Reason = "orchestrator already ran: terminated state is absorbing"
		outcome.EndedAt = time.Now()
		return outcome
	}

	log := o.opts.Logger.With(zap.String("debate_id", o.opts.DebateID), zap.String("topic_id", claim.TopicID))
	o.opts.Sink.Emit(events.DebateStarted(o.opts.DebateID, claim.TopicID, o.opts.HelperType))
	if o.opts.Store != nil {
		if err := o.opts.Store.CreateDebate(o.opts.DebateID, claim.TopicID, claim.Text, o.opts.HelperType); err != nil {
			log.Warn("store: create debate failed", zap.Error(err))
		}
	}

	opening, err := o.opts.Prompts.Render(prompts.KeyPersuaderOpening, map[string]string{"Claim": claim.Text})
	if err != nil {
		o.terminate(outcome, debate.ResultError, "render opening prompt: "+err.Error(), log)
		return outcome
	}

	round := 0
	incoming := opening

	for o.state != StateTerminated {
		// ROUND_IN_PROGRESS: persuader speaks first, then the debater
		// responds with the persuader's new turn in view.
		o.state = StateRoundInProgress
		round++

		if stopped := o.interrupted(ctx, outcome, round, log); stopped {
			return outcome
		}

		pTurn, err := o.takeTurn(ctx, o.opts.Persuader, incoming, round, outcome, log)
		if err != nil {
			return outcome
		}

		dTurn, err := o.takeTurn(ctx, o.opts.Debater, pTurn.Text, round, outcome, log)
		if err != nil {
			return outcome
		}
		incoming = dTurn.Text
		outcome.Rounds = round

		// MODERATION: every moderator runs, in configured order, and all
		// verdicts are collected before any termination decision. No
		// short-circuit on the first positive signal: post-hoc analysis
		// needs the complete audit trail for the round.
		o.state = StateModeration
		roundVerdicts := make([]moderation.Verdict, 0, len(o.opts.Moderators))
		for _, checker := range o.opts.Moderators {
			if stopped := o.interrupted(ctx, outcome, round, log); stopped {
				return outcome
			}
			verdict, err := checker.Check(ctx, claim, outcome.Transcript, round)
			if err != nil {
				o.terminate(outcome, debate.ResultError, "moderator "+checker.Name()+": "+err.Error(), log)
				return outcome
			}
			roundVerdicts = append(roundVerdicts, verdict)
			outcome.Verdicts = append(outcome.Verdicts, verdict)
			o.opts.Sink.Emit(events.VerdictRecorded(o.opts.DebateID, round, verdict.Moderator, verdict.Signal.String(), verdict.Rationale))
			if o.opts.Store != nil {
				if err := o.opts.Store.AddVerdict(o.opts.DebateID, verdict.Moderator, round, verdict.Signal.String(), verdict.Rationale); err != nil {
					log.Warn("store: add verdict failed", zap.Error(err))
				}
			}
		}

		if result, reason, stop := o.opts.Policy.Decide(roundVerdicts, round); stop {
			o.terminate(outcome, result, reason, log)
			return outcome
		}
	}

	return outcome
}

// takeTurn runs one agent call with the configured inter-turn delay and
// records the produced turn. A GenerationFailure terminates the debate
// with result = error; the transcript up to that point is preserved.
func (o *Orchestrator) takeTurn(ctx context.Context, a *agent.Agent, incoming string, round int, outcome *Outcome, log *zap.Logger) (debate.Turn, error) {
	if o.opts.TurnDelay > 0 {
		select {
		case <-ctx.Done():
			o.terminate(outcome, debate.ResultInterrupted, "interrupted before "+string(a.Role())+" turn", log)
			return debate.Turn{}, ctx.Err()
		case <-time.After(o.opts.TurnDelay):
		}
	}

	turn, err := a.Act(ctx, incoming, round)
	if err != nil {
		var genErr *agent.GenerationFailure
		if errors.Is(err, context.Canceled) || (errors.As(err, &genErr) && errors.Is(genErr.Err, context.Canceled)) {
			o.terminate(outcome, debate.ResultInterrupted, "interrupted during "+string(a.Role())+" turn", log)
			return debate.Turn{}, err
		}
		o.terminate(outcome, debate.ResultError, err.Error(), log)
		return debate.Turn{}, err
	}

	if helperErr := a.HelperFailure(); helperErr != nil {
		o.opts.Sink.Emit(events.HelperFailed(o.opts.DebateID, round, string(a.Role()), helperErr.Error()))
		log.Warn("helper pass failed", zap.Int("round", round), zap.Error(helperErr))
	}

	outcome.Transcript = append(outcome.Transcript, turn)
	o.opts.Sink.Emit(events.TurnRecorded(o.opts.DebateID, round, string(turn.Role), turn.Text, turn.Tokens))
	if o.opts.Store != nil {
		if _, err := o.opts.Store.AddTurn(o.opts.DebateID, string(turn.Role), round, turn.Text, turn.Tokens); err != nil {
			log.Warn("store: add turn failed", zap.Error(err))
		}
	}
	return turn, nil
}

// interrupted checks for cooperative cancellation between steps.
func (o *Orchestrator) interrupted(ctx context.Context, outcome *Outcome, round int, log *zap.Logger) bool {
	select {
	case <-ctx.Done():
		o.terminate(outcome, debate.ResultInterrupted, "run cancelled in round "+strconv.Itoa(round), log)
		return true
	default:
		return false
	}
}

// terminate moves the machine to its absorbing state and seals the
// outcome. Exactly one termination reason is ever recorded.
func (o *Orchestrator) terminate(outcome *Outcome, result debate.Result, reason string, log *zap.Logger) {
	o.state = StateTerminated
	outcome.Result = result
	outcome.Reason = reason
	outcome.EndedAt = time.Now()

	usage := o.opts.Persuader.Usage()
	usage.Add(o.opts.Debater.Usage())
	for _, checker := range o.opts.Moderators {
		if reporter, ok := checker.(moderation.UsageReporter); ok {
			usage.Add(reporter.Usage())
		}
	}
	outcome.Usage = usage

	o.opts.Sink.Emit(events.DebateTerminated(o.opts.DebateID, outcome.Rounds, result.String(), reason))
	if o.opts.Store != nil {
		if err := o.opts.Store.FinishDebate(o.opts.DebateID, result.String(), reason, outcome.Rounds); err != nil {
			log.Warn("store: finish debate failed", zap.Error(err))
		}
	}
	log.Info("debate terminated",
		zap.String("result", result.String()),
		zap.Int("rounds", outcome.Rounds),
		zap.String("reason", reason),
	)
}
