package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/animdiff/internal/engine"
	"github.com/roach88/animdiff/internal/harness"
	"github.com/roach88/animdiff/internal/metrics"
	"github.com/roach88/animdiff/internal/sink"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Sinks       string
	Database    string
	MetricsAddr string
	Realtime    bool

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// RunSummary describes a streamed run.
type RunSummary struct {
	Name       string   `json:"name"`
	RunID      string   `json:"run_id"`
	Frames     int      `json:"frames"`
	Rejections int      `json:"rejections"`
	Digest     string   `json:"digest"`
	Sinks      []string `json:"sinks"`
	Pass       bool     `json:"pass"`
	Errors     []string `json:"errors,omitempty"`
}

func (s RunSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ Run %s of %s: %d frames\n", s.RunID, s.Name, s.Frames)
	fmt.Fprintf(&b, "  sinks: %s\n", strings.Join(s.Sinks, ", "))
	fmt.Fprintf(&b, "  rejected updates: %d\n", s.Rejections)
	fmt.Fprintf(&b, "  digest: %s", s.Digest)
	return b.String()
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Stream a scenario's frames to the configured sinks",
		Long: `Run a scenario and stream every frame to the sinks named in the sinks file
(MQTT, WebSocket, Postgres, SQLite, JSON file). Each run gets a UUIDv7 run id.

--db is shorthand for a SQLite recording sink; recorded runs can be checked
later with "animdiff replay" and inspected with "animdiff trace".

With --realtime frame i is delivered i/fps seconds after the start, so
subscribers see the animation at its real speed.

Examples:
  animdiff run car.yaml --db rec.db
  animdiff run car.yaml --sinks sinks.yaml --realtime --metrics-addr :9090`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Sinks, "sinks", "", "path to sinks config (YAML)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run to this SQLite database")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&opts.Realtime, "realtime", false, "pace frames in wall-clock time")

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, formatter.GetErrWriter())

	loaded, err := LoadScenarioFile(path)
	if err != nil {
		return outputLoadError(formatter, err)
	}

	cfg := &SinksConfig{}
	if opts.Sinks != "" {
		if cfg, err = LoadSinksConfig(opts.Sinks); err != nil {
			return outputCommandError(formatter, ErrCodeSinkFailed, err.Error())
		}
	}
	if opts.Database != "" {
		cfg.SQLite = &PathConfig{Path: opts.Database}
	}
	if cfg.Empty() {
		return outputCommandError(formatter, ErrCodeSinkFailed, "no sinks configured: pass --sinks or --db")
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if opts.MetricsAddr != "" {
		shutdown, err := serveMetrics(opts.MetricsAddr, logger)
		if err != nil {
			return outputCommandError(formatter, ErrCodeSinkFailed, fmt.Sprintf("metrics server: %v", err))
		}
		defer func() { _ = shutdown() }()
	}

	sinks, err := openSinks(ctx, cfg, loaded, logger)
	if err != nil {
		return outputCommandError(formatter, ErrCodeSinkFailed, err.Error())
	}
	defer func() {
		if closeErr := sinks.Close(); closeErr != nil {
			logger.Error("error closing sinks", "error", closeErr)
		}
	}()

	var out sink.Sink = sinks.tee
	if opts.Realtime {
		out = newPacedSink(out)
	}

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = engine.UUIDv7Generator{}
	}

	logger.Info("run starting", "scenario", loaded.Scenario.Name, "sinks", cfg.names())
	result, err := harness.Execute(ctx, loaded.Scenario, out,
		harness.WithRunIDs(runIDs),
		harness.WithLogger(logger))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return WrapExitError(ExitFailure, "run interrupted", err)
		}
		return outputCommandError(formatter, ErrCodeRunFailed, fmt.Sprintf("run failed: %v", err))
	}
	logger.Info("run stopped", "run_id", result.RunID, "frames", len(result.Frames))

	summary := RunSummary{
		Name:       loaded.Scenario.Name,
		RunID:      result.RunID,
		Frames:     len(result.Frames),
		Rejections: len(result.Rejections),
		Digest:     result.Digest,
		Sinks:      cfg.names(),
		Pass:       result.Pass,
		Errors:     result.Errors,
	}
	if err := formatter.SuccessRun(result.RunID, summary); err != nil {
		return err
	}

	if !result.Pass {
		if opts.Format != "json" {
			for _, e := range result.Errors {
				fmt.Fprintf(formatter.Writer, "  %s\n", e)
			}
		}
		return NewExitError(ExitFailure, fmt.Sprintf("run %s failed with %d error(s)", result.RunID, len(result.Errors)))
	}
	return nil
}

// names lists the configured sinks in a fixed order.
func (c *SinksConfig) names() []string {
	var names []string
	if c.File != nil {
		names = append(names, "file")
	}
	if c.SQLite != nil {
		names = append(names, "sqlite")
	}
	if c.Postgres != nil {
		names = append(names, "postgres")
	}
	if c.MQTT != nil {
		names = append(names, "mqtt")
	}
	if c.WebSocket != nil {
		names = append(names, "websocket")
	}
	return names
}

// serveMetrics serves /metrics until the returned shutdown is called.
func serveMetrics(addr string, logger *slog.Logger) (func() error, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	logger.Info("metrics listening", "addr", ln.Addr().String())

	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}, nil
}
