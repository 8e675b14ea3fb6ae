package sink

import (
	"context"

	"github.com/roach88/animdiff/internal/ir"
)

// Memory keeps everything it receives. It backs the compile command and
// tests.
type Memory struct {
	seq Sequence

	Header  Header
	Frames  []Frame
	Stopped bool
}

// NewMemory returns an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) SendStart(_ context.Context, h Header) error {
	if err := m.seq.Start(); err != nil {
		return err
	}
	m.Header = h
	return nil
}

func (m *Memory) SendFrame(_ context.Context, f Frame) error {
	if err := m.seq.Frame(f.Index); err != nil {
		return err
	}
	m.Frames = append(m.Frames, Frame{Index: f.Index, Delta: f.Delta.Clone()})
	return nil
}

func (m *Memory) SendStop(context.Context) error {
	if err := m.seq.Stop(); err != nil {
		return err
	}
	m.Stopped = true
	return nil
}

// Deltas returns the frame deltas in order; Deltas()[i] is frame i+1.
func (m *Memory) Deltas() []ir.Object {
	out := make([]ir.Object, len(m.Frames))
	for i, f := range m.Frames {
		out[i] = f.Delta
	}
	return out
}
