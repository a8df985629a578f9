// internal/runner/runner.go
// Debate runner: builds one fully isolated debate per (claim, helper
// type) pair and drives single runs or batches. Agents, memory managers
// and moderators are never shared between debates.
package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"polemic/internal/agent"
	"polemic/internal/claims"
	"polemic/internal/config"
	"polemic/internal/db"
	"polemic/internal/debate"
	"polemic/internal/events"
	"polemic/internal/export"
	"polemic/internal/memory"
	"polemic/internal/moderation"
	"polemic/internal/models"
	"polemic/internal/orchestrator"
	"polemic/internal/prompts"
)

// Runner executes debates according to one loaded config.
type Runner struct {
	cfg     *config.Config
	logger  *zap.Logger
	prompts *prompts.Library
	sink    events.Sink
	store   *db.Store
	summary *export.SummaryWriter
}

// New builds a runner. The config must already validate; shared
// resources (store, summary spreadsheet, event sinks) are opened once
// and reused across every debate the runner starts.
func New(cfg *config.Config, logger *zap.Logger, promptDir string) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Runner{
		cfg:     cfg,
		logger:  logger,
		prompts: prompts.NewLibrary(promptDir),
	}

	sinks := events.MultiSink{events.NewZapSink(logger)}
	if cfg.Events.Webhook != "" {
		sinks = append(sinks, events.NewWebhookSink(cfg.Events.Webhook))
	}
	r.sink = sinks

	if cfg.Store.Enabled {
		store, err := db.Open(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		r.store = store
	}
	if cfg.Export.Summary != "" {
		r.summary = export.NewSummaryWriter(cfg.Export.Summary)
	}

	return r, nil
}

// Close releases the runner's shared resources.
func (r *Runner) Close() error {
	if r.store != nil {
		return r.store.Close()
	}
	return nil
}

// RunOne executes a single debate for one claim with the given helper
// type ("none", "vanilla" or "fallacy") and exports its artifacts.
func (r *Runner) RunOne(ctx context.Context, claim claims.Claim, helperType string) (*orchestrator.Outcome, error) {
	orch, err := r.build(claim, helperType)
	if err != nil {
		return nil, err
	}

	outcome := orch.Run(ctx, claim)

	if err := r.export(outcome); err != nil {
		r.logger.Warn("export failed",
			zap.String("debate_id", outcome.DebateID),
			zap.Error(err),
		)
	}
	return outcome, nil
}

// build assembles one debate's collaborators from scratch.
func (r *Runner) build(claim claims.Claim, helperType string) (*orchestrator.Orchestrator, error) {
	registry, err := models.NewRegistry(r.cfg)
	if err != nil {
		return nil, err
	}

	marker := r.convincedMarker()

	persuaderSystem, err := r.prompts.Render(prompts.KeyPersuaderSystem, map[string]string{"Claim": claim.Text})
	if err != nil {
		return nil, err
	}
	debaterSystem, err := r.prompts.Render(prompts.KeyDebaterSystem, map[string]string{
		"Claim":  claim.Text,
		"Marker": marker,
	})
	if err != nil {
		return nil, err
	}

	memOpts := memory.Options{
		TokenBudget:      r.cfg.Memory.TokenBudget,
		SummarizeTrigger: r.cfg.Memory.SummarizeTrigger,
		KeepRecent:       r.cfg.Memory.KeepRecent,
	}
	if r.cfg.Memory.Summarize {
		memOpts.Summarizer = registry.Get(models.RoleSummarizer)
	}

	var helper *agent.Helper
	if helperType != "" && helperType != "none" {
		helperModel := registry.Get(models.RoleHelper)
		if helperModel == nil {
			return nil, &config.ConfigurationError{Field: "models.helper", Reason: "helper enabled but no helper model bound"}
		}
		helper, err = agent.NewHelper(agent.HelperKind(helperType), helperModel, r.prompts, claim.Text)
		if err != nil {
			return nil, err
		}
	}

	persuader := agent.NewPersuader(registry.Get(models.RolePersuader), memory.NewManager(persuaderSystem, memOpts), helper)
	debater := agent.NewDebater(registry.Get(models.RoleDebater), memory.NewManager(debaterSystem, memOpts))

	moderators := make([]moderation.Checker, 0, len(r.cfg.Moderators))
	for _, spec := range r.cfg.Moderators {
		if spec.Check == "max_rounds" && spec.Rounds == 0 {
			spec.Rounds = r.cfg.Debate.MaxRounds
		}
		var model models.Model
		if spec.UseModel {
			model = registry.Get(models.RoleModerator)
		}
		checker, err := moderation.New(spec, model, r.prompts)
		if err != nil {
			return nil, err
		}
		moderators = append(moderators, checker)
	}

	return orchestrator.New(orchestrator.Options{
		DebateID:   uuid.NewString(),
		HelperType: normalizeHelper(helperType),
		Persuader:  persuader,
		Debater:    debater,
		Moderators: moderators,
		Policy:     orchestrator.NewPolicy(r.cfg.Termination.Priority, r.cfg.Debate.MaxRounds),
		TurnDelay:  r.cfg.TurnDelay(),
		Prompts:    r.prompts,
		Sink:       r.sink,
		Logger:     r.logger,
		Store:      r.store,
	})
}

// convincedMarker picks the marker phrase the debater is told to use:
// the first convinced moderator's configured marker, or the default.
func (r *Runner) convincedMarker() string {
	for _, spec := range r.cfg.Moderators {
		if spec.Check == "convinced" && spec.Marker != "" {
			return spec.Marker
		}
	}
	return moderation.DefaultConvincedMarker
}

func normalizeHelper(helperType string) string {
	if helperType == "" {
		return "none"
	}
	return helperType
}

// export writes the per-debate artifacts and the summary row.
func (r *Runner) export(o *orchestrator.Outcome) error {
	dir, err := export.DebateDir(r.cfg.Export.Dir, o.TopicID, o.HelperType, o.DebateID)
	if err != nil {
		return err
	}
	if r.cfg.Export.Markdown {
		if _, err := export.WriteMarkdown(o, dir); err != nil {
			return err
		}
	}
	if r.cfg.Export.JSON {
		if _, err := export.WriteJSON(o, dir); err != nil {
			return err
		}
	}
	if r.summary != nil {
		if err := r.summary.Append(o); err != nil {
			return err
		}
	}
	return nil
}

// Tally counts outcomes by result.
type Tally struct {
	Total     int
	Converged int
	MaxRounds int
	HardStop  int
	Errored   int
}

func (t *Tally) add(result debate.Result) {
	t.Total++
	switch result {
	case debate.ResultConverged:
		t.Converged++
	case debate.ResultMaxRounds:
		t.MaxRounds++
	case debate.ResultHardStop:
		t.HardStop++
	default:
		t.Errored++
	}
}

// BatchSummary aggregates a batch run.
type BatchSummary struct {
	Overall  Tally
	ByHelper map[string]*Tally
	Outcomes []*orchestrator.Outcome
}

type job struct {
	claim  claims.Claim
	helper string
}

// RunBatch runs every (claim, helper type) pair with up to workers
// concurrent debates. Cancellation stops scheduling new debates and
// interrupts the ones in flight; completed outcomes are kept.
func (r *Runner) RunBatch(ctx context.Context, cs []claims.Claim, helperTypes []string, workers int) (*BatchSummary, error) {
	if len(helperTypes) == 0 {
		helperTypes = []string{r.cfg.Debate.Helper}
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan job)
	summary := &BatchSummary{ByHelper: make(map[string]*Tally)}
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				outcome, err := r.RunOne(ctx, j.claim, j.helper)
				if err != nil {
					r.logger.Error("debate setup failed",
						zap.String("topic_id", j.claim.TopicID),
						zap.String("helper_type", j.helper),
						zap.Error(err),
					)
					continue
				}

				mu.Lock()
				summary.Outcomes = append(summary.Outcomes, outcome)
				summary.Overall.add(outcome.Result)
				tally := summary.ByHelper[outcome.HelperType]
				if tally == nil {
					tally = &Tally{}
					summary.ByHelper[outcome.HelperType] = tally
				}
				tally.add(outcome.Result)
				mu.Unlock()
			}
		}()
	}

schedule:
	for _, helper := range helperTypes {
		for _, claim := range cs {
			select {
			case jobs <- job{claim: claim, helper: helper}:
			case <-ctx.Done():
				break schedule
			}
		}
	}
	close(jobs)
	wg.Wait()

	r.logger.Info("batch finished",
		zap.Int("debates", summary.Overall.Total),
		zap.Int("converged", summary.Overall.Converged),
		zap.Int("max_rounds", summary.Overall.MaxRounds),
		zap.Int("errored", summary.Overall.Errored+summary.Overall.HardStop),
	)
	return summary, ctx.Err()
}
