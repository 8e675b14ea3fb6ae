package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/roach88/animdiff/internal/compiler"
	"github.com/roach88/animdiff/internal/ir"
	"github.com/roach88/animdiff/internal/metrics"
	"github.com/roach88/animdiff/internal/mux"
	"github.com/roach88/animdiff/internal/scene"
	"github.com/roach88/animdiff/internal/sink"
)

// frameEpsilon absorbs floating point error when mapping seconds to frames,
// so t = k·Δ lands on frame k.
const frameEpsilon = 1e-9

// Config describes a run.
type Config struct {
	Name string `yaml:"name" json:"name"`

	// TimeStep is Δ, the seconds per frame. 1/Δ must be a whole number.
	TimeStep float64 `yaml:"time_step" json:"time_step"`

	Width  *int `yaml:"width,omitempty" json:"width,omitempty"`
	Height *int `yaml:"height,omitempty" json:"height,omitempty"`
	StartX *int `yaml:"start_x,omitempty" json:"start_x,omitempty"`
	StartY *int `yaml:"start_y,omitempty" json:"start_y,omitempty"`
}

// Validate checks the time step.
func (c Config) Validate() error {
	if math.IsNaN(c.TimeStep) || c.TimeStep <= 0 || c.TimeStep > 1 {
		return newError(ErrCodeInvalidConfig, "", "time step %g must be in (0, 1]", c.TimeStep)
	}
	inv := 1 / c.TimeStep
	if math.Abs(inv-math.Round(inv)) > frameEpsilon {
		return newError(ErrCodeInvalidConfig, "", "1/time step = %g is not a whole number", inv)
	}
	return nil
}

// FPS returns 1/TimeStep. Only meaningful for a valid config.
func (c Config) FPS() int {
	return int(math.Round(1 / c.TimeStep))
}

// Header returns the sink header for the config.
func (c Config) Header(runID string) sink.Header {
	return sink.Header{
		Name:   c.Name,
		FPS:    c.FPS(),
		Width:  c.Width,
		Height: c.Height,
		StartX: c.StartX,
		StartY: c.StartY,
		RunID:  runID,
	}
}

// Option configures an Animator.
type Option func(*Animator)

// WithClock sets the clock read by Tick. Default: a SimClock at 0.
func WithClock(c Clock) Option {
	return func(a *Animator) {
		a.clock = c
	}
}

// WithRunID sets the run id generator. Default: UUIDv7Generator.
func WithRunID(g RunIDGenerator) Option {
	return func(a *Animator) {
		a.runIDs = g
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Animator) {
		a.log = l
	}
}

// Animator compiles keyframes for a set of nodes and streams the merged
// frames to a sink.
type Animator struct {
	cfg    Config
	fps    int
	sink   sink.Sink
	clock  Clock
	runIDs RunIDGenerator
	log    *slog.Logger

	nodes  []*Node
	byName map[string]*Node

	// now is the time of the last step; prior is the last frame sent.
	now   float64
	prior int

	runID   string
	started bool
	stopped bool
}

// New validates cfg and returns an Animator writing to s.
func New(cfg Config, s sink.Sink, opts ...Option) (*Animator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, newError(ErrCodeInvalidConfig, "", "sink is required")
	}

	a := &Animator{
		cfg:    cfg,
		fps:    cfg.FPS(),
		sink:   s,
		clock:  NewSimClock(),
		runIDs: UUIDv7Generator{},
		log:    slog.Default(),
		byName: make(map[string]*Node),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Config returns the run configuration.
func (a *Animator) Config() Config { return a.cfg }

// FPS returns frames per second.
func (a *Animator) FPS() int { return a.fps }

// Now returns the time of the last step.
func (a *Animator) Now() float64 { return a.now }

// RunID returns the id assigned at Start.
func (a *Animator) RunID() string { return a.runID }

// current is the time updates are checked against: the last step, or the
// clock when it is ahead.
func (a *Animator) current() float64 {
	if c := a.clock.Now(); finite(c) && c > a.now {
		return c
	}
	return a.now
}

func finite(t float64) bool {
	return !math.IsNaN(t) && !math.IsInf(t, 0)
}

// LastSent returns the last frame index delivered to the sink.
func (a *Animator) LastSent() int { return a.prior }

// FrameAt maps a time in seconds to its frame index.
func (a *Animator) FrameAt(t float64) int {
	return int(math.Floor(t*float64(a.fps) + frameEpsilon))
}

// TimeOf returns the earliest time that maps to frame.
func (a *Animator) TimeOf(frame int) float64 {
	return float64(frame) / float64(a.fps)
}

// AddNode registers a node. Names must be unique and must not contain "/".
func (a *Animator) AddNode(name string, kind scene.Kind) (*Node, error) {
	if a.stopped {
		return nil, newError(ErrCodeLifecycle, name, "animator stopped")
	}
	if err := scene.ValidateName(name); err != nil {
		return nil, &RuntimeError{Code: ErrCodeInvalidName, Message: "invalid node name", Node: name, Err: err}
	}
	if !scene.ValidKinds[kind] {
		return nil, newError(ErrCodeKindMismatch, name, "unknown kind %q", kind)
	}
	if _, ok := a.byName[name]; ok {
		return nil, newError(ErrCodeDuplicateNode, name, "node already exists")
	}
	n := &Node{a: a, track: compiler.NewTrack(name, kind)}
	a.nodes = append(a.nodes, n)
	a.byName[name] = n
	a.log.Debug("node added", "node", name, "kind", kind)
	return n, nil
}

// Node returns the named node.
func (a *Animator) Node(name string) (*Node, bool) {
	n, ok := a.byName[name]
	return n, ok
}

// Nodes returns nodes in registration order.
func (a *Animator) Nodes() []*Node {
	return append([]*Node(nil), a.nodes...)
}

// LastFrame returns the last frame any node has compiled.
func (a *Animator) LastFrame() int {
	last := a.prior
	for _, n := range a.nodes {
		last = max(last, n.track.LastFrame())
	}
	return last
}

// Start assigns a run id and sends the header.
func (a *Animator) Start(ctx context.Context) error {
	if a.started {
		return newError(ErrCodeLifecycle, "", "animator already started")
	}
	a.runID = a.runIDs.Generate()
	if err := a.sink.SendStart(ctx, a.cfg.Header(a.runID)); err != nil {
		return fmt.Errorf("send start: %w", err)
	}
	a.started = true
	a.log.Info("run started", "run_id", a.runID, "name", a.cfg.Name, "fps", a.fps)
	return nil
}

// Step sends every frame in (prior, frame(now)] and releases them.
// now must not be earlier than the previous step.
func (a *Animator) Step(ctx context.Context, now float64) error {
	timer := metrics.Timer("step")
	defer timer.ObserveDuration()

	if err := a.live(); err != nil {
		return err
	}
	if !finite(now) || now < a.now {
		return &RuntimeError{
			Code:    ErrCodeNonMonotonicStep,
			Message: "step time is not finite or moves backwards",
			Details: map[string]string{"now": fmt.Sprintf("%g", now), "prior": fmt.Sprintf("%g", a.now)},
		}
	}

	from, to := a.prior+1, a.FrameAt(now)
	a.now = now
	if to < from {
		return nil
	}

	var runs []mux.Run
	for _, n := range a.nodes {
		for _, u := range n.track.FramesFromTo(from, to) {
			runs = append(runs, mux.Run{Node: n.track.Name(), Start: u.Start, Frames: u.Frames})
		}
	}

	for i, delta := range mux.Merge(from, to, runs) {
		index := from + i
		if err := a.sink.SendFrame(ctx, sink.Frame{Index: index, Delta: delta}); err != nil {
			return fmt.Errorf("send frame %d: %w", index, err)
		}
		a.prior = index
		metrics.FramesEmitted.Inc()
		metrics.LastEmittedFrame.Set(float64(index))
	}

	for _, n := range a.nodes {
		n.track.Release(to)
	}
	a.log.Debug("step", "now", now, "from", from, "to", to, "runs", len(runs))
	return nil
}

// Recompile rebuilds every node's units from its retained keyframes and
// merges them over the frames already sent. For a deterministic compiler the
// result equals what the sink received.
func (a *Animator) Recompile() []ir.Object {
	var runs []mux.Run
	for _, n := range a.nodes {
		for _, u := range n.track.Recompile() {
			runs = append(runs, mux.Run{Node: n.track.Name(), Start: u.Start, Frames: u.Frames})
		}
	}
	return mux.Merge(1, a.prior, runs)
}

// Tick steps to the clock's current time.
func (a *Animator) Tick(ctx context.Context) error {
	return a.Step(ctx, a.clock.Now())
}

// Flush steps to the last compiled frame, so trailing frames such as
// removals are delivered before Stop.
func (a *Animator) Flush(ctx context.Context) error {
	if err := a.live(); err != nil {
		return err
	}
	last := a.LastFrame()
	if last <= a.prior {
		return nil
	}
	return a.Step(ctx, math.Max(a.now, a.TimeOf(last)))
}

// Stop sends the stop signal. Frames not yet stepped to are dropped.
func (a *Animator) Stop(ctx context.Context) error {
	if err := a.live(); err != nil {
		return err
	}
	a.stopped = true
	if err := a.sink.SendStop(ctx); err != nil {
		return fmt.Errorf("send stop: %w", err)
	}
	a.log.Info("run stopped", "run_id", a.runID, "frames", a.prior)
	return nil
}

func (a *Animator) live() error {
	if !a.started {
		return newError(ErrCodeLifecycle, "", "animator not started")
	}
	if a.stopped {
		return newError(ErrCodeLifecycle, "", "animator stopped")
	}
	return nil
}

// reject logs and counts a rejected update.
func (a *Animator) reject(err *RuntimeError) error {
	metrics.KeyframesRejected.WithLabelValues(string(err.Code)).Inc()
	a.log.Warn("keyframe rejected", "node", err.Node, "code", err.Code, "error", err.Message)
	return err
}

// asRuntimeError maps compiler and scene errors to host error codes.
func asRuntimeError(node string, err error) *RuntimeError {
	code := ErrCodeRejectedUpdate
	if errors.Is(err, compiler.ErrKindMismatch) {
		code = ErrCodeKindMismatch
	}
	return &RuntimeError{Code: code, Message: "keyframe not compiled", Node: node, Err: err}
}
