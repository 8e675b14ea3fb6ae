package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/animdiff/internal/ir"
	"github.com/roach88/animdiff/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - latest run when empty
	Node     string // optional - filter to one node's deltas
}

// TraceFrame is one recorded frame. With a node filter Delta is that node's
// delta only.
type TraceFrame struct {
	Index int       `json:"index"`
	Delta ir.Object `json:"delta"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Frames      int `json:"frames"`
	EmptyFrames int `json:"empty_frames"`
	Nodes       int `json:"nodes"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID  string       `json:"run_id"`
	Name   string       `json:"name"`
	FPS    int          `json:"fps"`
	Node   string       `json:"node,omitempty"`
	Digest string       `json:"digest"`
	Frames []TraceFrame `json:"frames"`
	Stats  TraceStats   `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print the frames of a recorded run",
		Long: `Print the frames recorded for a run, one line per frame.

Without --run the most recent run is shown. With --node only the frames in
which that node changed are shown, with its delta alone.

Examples:
  animdiff trace --db ./rec.db
  animdiff trace --db ./rec.db --run 0192f0c4-... --node Car1
  animdiff trace --db ./rec.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id (default: latest run)")
	cmd.Flags().StringVar(&opts.Node, "node", "", "filter to a single node")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var run store.Run
	if opts.RunID != "" {
		run, err = st.ReadRun(ctx, opts.RunID)
	} else {
		run, err = st.LatestRun(ctx)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	result, err := buildTrace(ctx, st, run, opts.Node)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read frames", err)
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd.OutOrStdout(), result)
}

func buildTrace(ctx context.Context, st *store.Store, run store.Run, node string) (TraceResult, error) {
	result := TraceResult{
		RunID:  run.ID,
		Name:   run.Header.Name,
		FPS:    run.Header.FPS,
		Node:   node,
		Digest: run.Digest,
		Frames: []TraceFrame{},
	}

	if node != "" {
		frames, err := st.ReadNodeFrames(ctx, run.ID, node)
		if err != nil {
			return TraceResult{}, err
		}
		for _, f := range frames {
			result.Frames = append(result.Frames, TraceFrame{Index: f.Index, Delta: f.Delta})
		}
		result.Stats = TraceStats{Frames: len(frames), Nodes: 1}
		return result, nil
	}

	frames, err := st.ReadFrames(ctx, run.ID)
	if err != nil {
		return TraceResult{}, err
	}
	nodes := map[string]bool{}
	for _, f := range frames {
		result.Frames = append(result.Frames, TraceFrame{Index: f.Index, Delta: f.Delta})
		if len(f.Delta) == 0 {
			result.Stats.EmptyFrames++
		}
		for name := range f.Delta {
			nodes[name] = true
		}
	}
	result.Stats.Frames = len(frames)
	result.Stats.Nodes = len(nodes)
	return result, nil
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	response := CLIResponse{
		Status: "ok",
		RunID:  result.RunID,
		Data:   result,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTraceText outputs the trace result as human-readable text.
func outputTraceText(w io.Writer, result TraceResult) error {
	fmt.Fprintf(w, "Trace for Run: %s (%s, %d fps)\n", result.RunID, result.Name, result.FPS)
	if result.Node != "" {
		fmt.Fprintf(w, "Node: %s\n", result.Node)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Frames ===")
	if len(result.Frames) == 0 {
		fmt.Fprintln(w, "  (no frames)")
	}
	for _, f := range result.Frames {
		data, err := ir.MarshalCanonical(f.Delta)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  [%d] %s\n", f.Index, data)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Frames:       %d\n", result.Stats.Frames)
	if result.Node == "" {
		fmt.Fprintf(w, "  Empty Frames: %d\n", result.Stats.EmptyFrames)
		fmt.Fprintf(w, "  Nodes:        %d\n", result.Stats.Nodes)
	}
	fmt.Fprintf(w, "  Digest:       %s\n", result.Digest)

	return nil
}
