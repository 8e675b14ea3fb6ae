package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/animdiff/internal/harness"
	"github.com/roach88/animdiff/internal/sink"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompileSummary describes a compiled scenario.
type CompileSummary struct {
	Name       string   `json:"name"`
	Output     string   `json:"output"`
	FPS        int      `json:"fps"`
	Frames     int      `json:"frames"`
	Rejections int      `json:"rejections"`
	Digest     string   `json:"digest"`
	Pass       bool     `json:"pass"`
	Errors     []string `json:"errors,omitempty"`
}

func (s CompileSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ Compiled %s: %d frames at %d fps -> %s\n", s.Name, s.Frames, s.FPS, s.Output)
	fmt.Fprintf(&b, "  rejected updates: %d\n", s.Rejections)
	fmt.Fprintf(&b, "  digest: %s", s.Digest)
	return b.String()
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <scenario>",
		Short: "Compile a scenario to the JSON frame document",
		Long: `Run a scenario through the script scheduler and write the output document:

  {"name": ..., "fps": ..., "frames": [{<node>: {<attr>: value}}, ...]}

frames[i] is frame i+1. Without -o the document is written to stdout.

Exit codes:
  0 - Scenario compiled and its assertions hold
  1 - Scenario compiled, but an update was unexpectedly rejected or an assertion failed
  2 - Command error (scenario not found or invalid, output not writable)

Examples:
  animdiff compile car.yaml
  animdiff compile car.cue -o car.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, err := LoadScenarioFile(path)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Loaded %s scenario %q from %s", loaded.Format, loaded.Scenario.Name, path)

	var w io.Writer = cmd.OutOrStdout()
	var file *os.File
	if opts.Output != "" {
		file, err = os.Create(opts.Output)
		if err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("failed to create output: %v", err))
		}
		defer file.Close()
		w = file
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := harness.Execute(ctx, loaded.Scenario, sink.NewJSON(w),
		harness.WithLogger(newLogger(opts.RootOptions, formatter.GetErrWriter())))
	if err != nil {
		return outputCommandError(formatter, ErrCodeRunFailed, fmt.Sprintf("failed to compile %s: %v", path, err))
	}
	if file != nil {
		if err := file.Close(); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("failed to write output: %v", err))
		}
	}

	summary := CompileSummary{
		Name:       loaded.Scenario.Name,
		Output:     opts.Output,
		FPS:        result.Header.FPS,
		Frames:     len(result.Frames),
		Rejections: len(result.Rejections),
		Digest:     result.Digest,
		Pass:       result.Pass,
		Errors:     result.Errors,
	}

	// The document went to stdout; only diagnostics may follow, on stderr.
	if opts.Output == "" {
		for _, e := range result.Errors {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", e)
		}
	} else if err := formatter.SuccessRun(result.RunID, summary); err != nil {
		return err
	}

	if !result.Pass {
		if opts.Output != "" && opts.Format != "json" {
			for _, e := range result.Errors {
				fmt.Fprintf(formatter.Writer, "  %s\n", e)
			}
		}
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed with %d error(s)", summary.Name, len(result.Errors)))
	}
	return nil
}

// outputLoadError reports a scenario load failure as a command error.
func outputLoadError(formatter *OutputFormatter, err error) error {
	code := ErrCodeGeneric
	var details any
	if le, ok := err.(*LoadError); ok {
		code = le.Code
		if line := le.Line(); line > 0 {
			details = map[string]any{"file": le.File, "line": line}
		}
	}
	_ = formatter.Error(code, err.Error(), details)
	return NewExitError(ExitCommandError, err.Error())
}

// outputCommandError reports a command-level error (exit code 2).
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}
