// Package sink delivers compiled frames to their consumers.
//
// A Sink receives exactly one SendStart, then frames with consecutive
// indices starting at 1, then exactly one SendStop. Implementations enforce
// that contract with a Sequence and report ErrNotStarted or ErrOutOfOrder.
package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/animdiff/internal/ir"
)

var (
	// ErrNotStarted is returned for frames or stops before SendStart.
	ErrNotStarted = errors.New("sink not started")

	// ErrAlreadyStarted is returned for a second SendStart.
	ErrAlreadyStarted = errors.New("sink already started")

	// ErrStopped is returned for anything sent after SendStop.
	ErrStopped = errors.New("sink stopped")

	// ErrOutOfOrder is returned when a frame index is not the successor of
	// the previous one.
	ErrOutOfOrder = errors.New("frame out of order")
)

// Header describes a run. Optional fields are nil when unset.
type Header struct {
	Name   string `json:"name"`
	FPS    int    `json:"fps"`
	Width  *int   `json:"width,omitempty"`
	Height *int   `json:"height,omitempty"`
	StartX *int   `json:"startX,omitempty"`
	StartY *int   `json:"startY,omitempty"`

	// RunID identifies the run for sinks that persist it.
	RunID string `json:"-"`
}

// Frame is one output frame: {node: delta} for every node that changed.
type Frame struct {
	Index int       `json:"index"`
	Delta ir.Object `json:"delta"`
}

// Sink consumes one run of frames.
type Sink interface {
	SendStart(ctx context.Context, h Header) error
	SendFrame(ctx context.Context, f Frame) error
	SendStop(ctx context.Context) error
}

// Sequence tracks the start/frame/stop protocol for one run.
// The zero value expects SendStart.
type Sequence struct {
	started bool
	stopped bool
	last    int
}

// Start records SendStart.
func (s *Sequence) Start() error {
	switch {
	case s.stopped:
		return ErrStopped
	case s.started:
		return ErrAlreadyStarted
	}
	s.started = true
	return nil
}

// Frame records a frame index.
func (s *Sequence) Frame(index int) error {
	if err := s.live(); err != nil {
		return err
	}
	if index != s.last+1 {
		return fmt.Errorf("%w: got %d after %d", ErrOutOfOrder, index, s.last)
	}
	s.last = index
	return nil
}

// Stop records SendStop.
func (s *Sequence) Stop() error {
	if err := s.live(); err != nil {
		return err
	}
	s.stopped = true
	return nil
}

// Last returns the last accepted frame index, 0 before any frame.
func (s *Sequence) Last() int {
	return s.last
}

func (s *Sequence) live() error {
	if s.stopped {
		return ErrStopped
	}
	if !s.started {
		return ErrNotStarted
	}
	return nil
}
