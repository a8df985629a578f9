// Command polemic runs persuader-versus-debater LLM debates from the
// command line: single debates, batch sweeps over a claim dataset, and
// inspection of stored results.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"polemic/internal/claims"
	"polemic/internal/config"
	"polemic/internal/db"
	"polemic/internal/logging"
	"polemic/internal/runner"
)

type rootOptions struct {
	configPath string
	promptDir  string
	debug      bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "polemic",
		Short:         "Structured LLM debates with moderated termination",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "polemic.yaml", "Path to YAML config")
	root.PersistentFlags().StringVar(&opts.promptDir, "prompts", "", "Directory of prompt template overrides")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newBatchCmd(opts))
	root.AddCommand(newHelpersCmd(opts))
	root.AddCommand(newShowCmd(opts))

	return root
}

func (o *rootOptions) setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(o.debug), nil
}

type runCommander struct {
	root       *rootOptions
	claimText  string
	claimsPath string
	index      int
	helper     string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	cmder := &runCommander{root: root}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one debate",
		Long: `Run a single debate for one claim, given inline with --claim or
picked from a CSV dataset with --claims and --index.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVar(&cmder.claimText, "claim", "", "Claim text to debate")
	cmd.Flags().StringVar(&cmder.claimsPath, "claims", "", "CSV dataset of claims")
	cmd.Flags().IntVar(&cmder.index, "index", 0, "Row index into the claims dataset")
	cmd.Flags().StringVar(&cmder.helper, "helper", "", "Helper pass: none, vanilla or fallacy (overrides config)")

	return cmd
}

func (c *runCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, logger, err := c.root.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	claim, err := c.pickClaim()
	if err != nil {
		return err
	}

	helper := cfg.Debate.Helper
	if c.helper != "" {
		helper = c.helper
	}

	r, err := runner.New(cfg, logger, c.root.promptDir)
	if err != nil {
		return err
	}
	defer r.Close()

	outcome, err := r.RunOne(ctx, claim, helper)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Debate %s finished: %s after %d rounds\n", outcome.DebateID, outcome.Result, outcome.Rounds)
	if outcome.Reason != "" {
		fmt.Fprintf(out, "  reason: %s\n", outcome.Reason)
	}
	fmt.Fprintf(out, "  tokens: %d\n", outcome.Usage.TotalTokens)
	return nil
}

func (c *runCommander) pickClaim() (claims.Claim, error) {
	if c.claimText != "" {
		return claims.Claim{TopicID: "0", Text: c.claimText}, nil
	}
	if c.claimsPath == "" {
		return claims.Claim{}, fmt.Errorf("either --claim or --claims is required")
	}
	all, err := claims.LoadCSV(c.claimsPath)
	if err != nil {
		return claims.Claim{}, err
	}
	if c.index < 0 || c.index >= len(all) {
		return claims.Claim{}, fmt.Errorf("--index %d out of range: dataset has %d claims", c.index, len(all))
	}
	return all[c.index], nil
}

type batchCommander struct {
	root       *rootOptions
	claimsPath string
	helpers    []string
	workers    int
	limit      int
}

func newBatchCmd(root *rootOptions) *cobra.Command {
	cmder := &batchCommander{root: root}

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run every claim in a dataset across helper types",
		Long: `Run one debate per (claim, helper type) pair. Results land in the
export directory and the shared summary spreadsheet.

Examples:
  polemic batch --claims claims.csv
  polemic batch --claims claims.csv --helpers none,vanilla,fallacy --workers 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVar(&cmder.claimsPath, "claims", "", "CSV dataset of claims (required)")
	cmd.Flags().StringSliceVar(&cmder.helpers, "helpers", nil, "Helper types to sweep (default: the configured one)")
	cmd.Flags().IntVar(&cmder.workers, "workers", 1, "Concurrent debates")
	cmd.Flags().IntVar(&cmder.limit, "limit", 0, "Only run the first N claims (0 = all)")
	cmd.MarkFlagRequired("claims")

	return cmd
}

func (c *batchCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, logger, err := c.root.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cs, err := claims.LoadCSV(c.claimsPath)
	if err != nil {
		return err
	}
	if c.limit > 0 && c.limit < len(cs) {
		cs = cs[:c.limit]
	}

	r, err := runner.New(cfg, logger, c.root.promptDir)
	if err != nil {
		return err
	}
	defer r.Close()

	summary, runErr := r.RunBatch(ctx, cs, c.helpers, c.workers)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Ran %d debates: %d converged, %d hit max rounds, %d hard-stopped, %d errored\n",
		summary.Overall.Total, summary.Overall.Converged, summary.Overall.MaxRounds,
		summary.Overall.HardStop, summary.Overall.Errored)
	for helper, tally := range summary.ByHelper {
		fmt.Fprintf(out, "  %s: %d/%d converged\n", helper, tally.Converged, tally.Total)
	}
	return runErr
}

var helperDescriptions = map[string]string{
	"none":    "no auxiliary pass",
	"vanilla": "suggests the strongest line of response before each persuader turn",
	"fallacy": "analyzes the opponent's latest argument for logical fallacies",
}

func newHelpersCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "helpers",
		Short: "List helper pass types",
		Long:  "List the helper pass types a debate can run, marking the configured default.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			out := cmd.OutOrStdout()
			for _, h := range config.HelperTypes() {
				line := fmt.Sprintf("%-8s %s", h, helperDescriptions[h])
				if h == cfg.Debate.Helper {
					line += " (configured)"
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

type showCommander struct {
	root     *rootOptions
	verdicts bool
}

func newShowCmd(root *rootOptions) *cobra.Command {
	cmder := &showCommander{root: root}

	cmd := &cobra.Command{
		Use:   "show [debate_id]",
		Short: "Inspect stored debates",
		Long:  "List stored debates, or print one debate's transcript and verdicts from the store.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args)
		},
	}

	cmd.Flags().BoolVar(&cmder.verdicts, "verdicts", false, "Include moderator verdicts")

	return cmd
}

func (c *showCommander) run(cmd *cobra.Command, args []string) error {
	cfg, logger, err := c.root.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := db.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()

	if len(args) == 0 {
		rows, err := store.ListDebates()
		if err != nil {
			return err
		}
		for _, d := range rows {
			result := d.Result
			if result == "" {
				result = "in progress"
			}
			fmt.Fprintf(out, "%s  %-12s  rounds=%d  helper=%s  %s\n",
				d.ID, result, d.Rounds, d.HelperType, d.Claim)
		}
		return nil
	}

	id := args[0]
	d, err := store.GetDebate(id)
	if err != nil {
		return fmt.Errorf("debate %s: %w", id, err)
	}

	fmt.Fprintf(out, "Debate %s\n", d.ID)
	fmt.Fprintf(out, "  claim:  %s\n", d.Claim)
	fmt.Fprintf(out, "  helper: %s\n", d.HelperType)
	fmt.Fprintf(out, "  result: %s (%d rounds)\n", d.Result, d.Rounds)
	if d.Reason != "" {
		fmt.Fprintf(out, "  reason: %s\n", d.Reason)
	}

	turns, err := store.GetTurns(id)
	if err != nil {
		return err
	}
	for _, t := range turns {
		fmt.Fprintf(out, "\n[round %d] %s:\n%s\n", t.Round, t.Role, strings.TrimSpace(t.Content))
	}

	if c.verdicts {
		vs, err := store.GetVerdicts(id)
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		for _, v := range vs {
			fmt.Fprintf(out, "[round %d] %s: %s", v.Round, v.Moderator, v.Signal)
			if v.Rationale != "" {
				fmt.Fprintf(out, " (%s)", v.Rationale)
			}
			fmt.Fprintln(out)
		}
	}
	return nil
}
