package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/animdiff/internal/engine"
	"github.com/roach88/animdiff/internal/ir"
	"github.com/roach88/animdiff/internal/scene"
	"github.com/roach88/animdiff/internal/sink"
	"github.com/roach88/animdiff/internal/testutil"
)

// Option configures an execution.
type Option func(*Harness)

// WithRunIDs replaces the scenario's fixed run id, e.g. with UUIDv7 ids for
// recorded runs.
func WithRunIDs(g engine.RunIDGenerator) Option {
	return func(h *Harness) {
		h.runIDs = g
	}
}

// WithLogger sets the animator logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Harness drives one scenario through an Animator.
// Time only moves when the script says so, so execution is deterministic.
type Harness struct {
	scenario *Scenario
	clock    *engine.SimClock
	runIDs   engine.RunIDGenerator
	logger   *slog.Logger
	memory   *sink.Memory
	animator *engine.Animator
}

// Run executes a scenario in memory and returns the result.
func Run(scenario *Scenario) (*Result, error) {
	return Execute(context.Background(), scenario, nil)
}

// Execute runs the scenario, streaming frames to out as well as collecting
// them for the result. out may be nil.
//
// Execution flow:
// 1. Register the declared nodes and start the run
// 2. For each script step, advance the clock to At and apply the update
// 3. Step to Until, or flush every compiled frame when Until is zero
// 4. Stop the run and evaluate assertions
//
// A returned error means the run itself failed (bad node setup, sink
// failure). Rejected updates and failed assertions are reported in the
// result.
func Execute(ctx context.Context, scenario *Scenario, out sink.Sink, opts ...Option) (*Result, error) {
	h := &Harness{
		scenario: scenario,
		clock:    engine.NewSimClock(),
		runIDs:   testutil.NewFixedRunID(scenario.RunID),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		memory:   sink.NewMemory(),
	}
	for _, opt := range opts {
		opt(h)
	}

	var target sink.Sink = h.memory
	if out != nil {
		target = sink.Tee{h.memory, out}
	}

	a, err := engine.New(scenario.Config(), target,
		engine.WithClock(h.clock),
		engine.WithRunID(h.runIDs),
		engine.WithLogger(h.logger),
	)
	if err != nil {
		return nil, err
	}
	h.animator = a

	for _, n := range scenario.Nodes {
		if _, err := a.AddNode(n.Name, scene.Kind(n.Kind)); err != nil {
			return nil, fmt.Errorf("add node %q: %w", n.Name, err)
		}
	}

	if err := a.Start(ctx); err != nil {
		return nil, err
	}

	result := NewResult()
	result.RunID = a.RunID()
	for i, step := range scenario.Script {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, err
		}
	}

	if scenario.Until > 0 {
		h.clock.Set(scenario.Until)
		err = a.Tick(ctx)
	} else {
		err = a.Flush(ctx)
	}
	if err != nil {
		return nil, err
	}
	if err := a.Stop(ctx); err != nil {
		return nil, err
	}

	result.Header = h.memory.Header
	result.Frames = h.memory.Frames

	digest := ir.NewRunDigest()
	for _, f := range result.Frames {
		if err := digest.Add(f.Index, f.Delta); err != nil {
			return nil, fmt.Errorf("digest frame %d: %w", f.Index, err)
		}
	}
	result.Digest = digest.Sum()

	recompiled, err := checkRecompile(a, result)
	if err != nil {
		return nil, err
	}
	result.RecompiledDigest = recompiled

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep advances time to the step and applies its update.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	h.clock.Set(step.At)
	if err := h.animator.Tick(ctx); err != nil {
		return fmt.Errorf("script[%d]: %w", index, err)
	}

	spec, err := buildKeyframe(step)
	if err != nil {
		return fmt.Errorf("script[%d]: %w", index, err)
	}

	node, ok := h.animator.Node(step.Node)
	if !ok {
		return fmt.Errorf("script[%d]: undeclared node %q", index, step.Node)
	}

	err = node.Update(spec)
	switch {
	case err == nil && step.ExpectError != "":
		result.AddError(fmt.Sprintf("script[%d]: expected %s for node %s, update was accepted",
			index, step.ExpectError, step.Node))
	case err != nil:
		code := string(engine.Code(err))
		if code == "" {
			return fmt.Errorf("script[%d]: %w", index, err)
		}
		expected := code == step.ExpectError
		result.Rejections = append(result.Rejections, Rejection{
			Step:     index,
			Node:     step.Node,
			Code:     code,
			Expected: expected,
		})
		if !expected {
			result.AddError(fmt.Sprintf("script[%d]: %v", index, err))
		}
	}
	return nil
}

// buildKeyframe converts a script step into an update.
func buildKeyframe(step Step) (engine.KeyframeSpec, error) {
	start, err := step.Start.Shape()
	if err != nil {
		return engine.KeyframeSpec{}, fmt.Errorf("start: %w", err)
	}
	end := start
	if step.End != nil {
		if end, err = step.End.Shape(); err != nil {
			return engine.KeyframeSpec{}, fmt.Errorf("end: %w", err)
		}
	}
	return engine.KeyframeSpec{
		Start: start,
		End:   end,
		Style: step.Style.Style(),
		T0:    step.T0,
		T1:    step.T1,
		Keep:  step.Keep,
	}, nil
}

// checkRecompile rebuilds every track from its keyframes and compares the
// merged frames with the emitted ones. It returns the digest of the rebuilt
// stream and records the first differing frame as an error.
func checkRecompile(a *engine.Animator, result *Result) (string, error) {
	digest := ir.NewRunDigest()
	reported := false
	for i, delta := range a.Recompile() {
		index := i + 1
		if err := digest.Add(index, delta); err != nil {
			return "", fmt.Errorf("digest recompiled frame %d: %w", index, err)
		}
		if reported {
			continue
		}
		f, ok := result.Frame(index)
		if !ok {
			result.AddError(fmt.Sprintf("recompiled frame %d was never emitted", index))
			reported = true
			continue
		}
		want, err := ir.FrameDigest(f.Index, f.Delta)
		if err != nil {
			return "", err
		}
		got, err := ir.FrameDigest(index, delta)
		if err != nil {
			return "", err
		}
		if got != want {
			result.AddError(fmt.Sprintf("recompiled frame %d differs from emitted frame", index))
			reported = true
		}
	}
	return digest.Sum(), nil
}
