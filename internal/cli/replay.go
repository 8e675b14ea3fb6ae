package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/animdiff/internal/harness"
	"github.com/roach88/animdiff/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID          string `json:"run_id"`
	Name           string `json:"name"`
	Frames         int    `json:"frames"`
	Stopped        bool   `json:"stopped"`
	Gaps           []int  `json:"gaps,omitempty"`
	StoredDigest   string `json:"stored_digest"`
	ComputedDigest string `json:"computed_digest"`
	// RecompiledDigest is empty when the run has no stored scenario.
	RecompiledDigest string `json:"recompiled_digest,omitempty"`
	Deterministic    bool   `json:"deterministic"`
	Error            string `json:"error,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Recompile recorded runs and verify their frame digest",
		Long: `Verify recorded runs against their digest.

For each run the stored frames are re-read and their digest recomputed; the
frame sequence must have no gaps. When the run recorded its scenario, the
scenario is compiled again and must produce the same digest.

Exit codes:
  0 - All runs verified
  1 - A run's frames or recompiled output differ from its digest
  2 - Command error (database not found, etc.)

Examples:
  animdiff replay --db ./rec.db
  animdiff replay --db ./rec.db --run 0192f0c4-...
  animdiff replay --db ./rec.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var runs []store.Run
	if opts.RunID != "" {
		run, err := st.ReadRun(ctx, opts.RunID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		runs = []store.Run{run}
	} else {
		runs, err = st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(runs)),
		TotalRuns:        len(runs),
		AllDeterministic: true,
	}

	if len(runs) == 0 && opts.Format != "json" {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found in database.")
		return nil
	}

	// Recompiles are independent; results keep recording order.
	runResults := make([]ReplayRunResult, len(runs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, run := range runs {
		g.Go(func() error {
			runResult, err := replayRun(gctx, st, run)
			if err != nil {
				return fmt.Errorf("run %s: %w", run.ID, err)
			}
			runResults[i] = runResult
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return WrapExitError(ExitCommandError, "failed to replay runs", err)
	}

	for _, runResult := range runResults {
		result.Runs = append(result.Runs, runResult)
		if !runResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}

	return outputReplayText(cmd, result, opts.Verbose)
}

// replayRun checks a run's stored frames and recompiles its scenario.
func replayRun(ctx context.Context, st *store.Store, run store.Run) (ReplayRunResult, error) {
	integrity, err := st.CheckRun(ctx, run.ID)
	if err != nil {
		return ReplayRunResult{}, err
	}

	res := ReplayRunResult{
		RunID:          run.ID,
		Name:           run.Header.Name,
		Frames:         integrity.Frames,
		Stopped:        run.Stopped,
		Gaps:           integrity.Gaps,
		StoredDigest:   integrity.Stored,
		ComputedDigest: integrity.Computed,
		Deterministic:  integrity.OK(),
	}
	if !run.Stopped {
		res.Error = "run was not stopped"
	}

	if run.Scenario == "" {
		return res, nil
	}

	scenario, err := harness.ParseScenario([]byte(run.Scenario), run.ScenarioFormat, run.ID)
	if err != nil {
		res.Deterministic = false
		res.Error = fmt.Sprintf("stored scenario: %v", err)
		return res, nil
	}
	recompiled, err := harness.Execute(ctx, scenario, nil)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return ReplayRunResult{}, err
		}
		res.Deterministic = false
		res.Error = fmt.Sprintf("recompile: %v", err)
		return res, nil
	}
	res.RecompiledDigest = recompiled.Digest
	if recompiled.Digest != integrity.Stored {
		res.Deterministic = false
	}
	if recompiled.RecompiledDigest != recompiled.Digest {
		res.Deterministic = false
		res.Error = "track recompile differs from compiled frames"
	}
	return res, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "digest verification failed",
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "digest verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		status := "✓"
		if !run.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Run: %s (%s)\n", status, run.RunID, run.Name)
		fmt.Fprintf(w, "  Frames: %d\n", run.Frames)

		if verbose || !run.Deterministic {
			fmt.Fprintf(w, "  Stored digest:     %s\n", run.StoredDigest)
			fmt.Fprintf(w, "  Computed digest:   %s\n", run.ComputedDigest)
			if run.RecompiledDigest != "" {
				fmt.Fprintf(w, "  Recompiled digest: %s\n", run.RecompiledDigest)
			}
		}
		if len(run.Gaps) > 0 {
			fmt.Fprintf(w, "  Missing frames: %v\n", run.Gaps)
		}
		if run.Error != "" {
			fmt.Fprintf(w, "  Warning: %s\n", run.Error)
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All runs verified")
		return nil
	}

	fmt.Fprintln(w, "✗ Digest verification failed")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "digest verification failed")
}
