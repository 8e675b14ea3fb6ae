// Package mux merges per-node delta runs into one frame stream.
//
// Every node contributes runs of consecutive deltas starting at some frame.
// Merge lays them out over a window [a, b] so that frame a+i of the output
// holds {node: delta} for every node that has something to say at that
// frame. The output is gap-free: frames nobody touches are empty objects.
package mux

import (
	"slices"

	"github.com/roach88/animdiff/internal/ir"
)

// Run is a node's consecutive deltas; Frames[i] applies at frame Start+i.
type Run struct {
	Node   string
	Start  int
	Frames []ir.Object
}

// Stop returns the last frame the run covers.
func (r Run) Stop() int {
	return r.Start + len(r.Frames) - 1
}

// cursor walks one run.
type cursor struct {
	run Run
	pos int
}

func (c *cursor) done() bool {
	return c.pos >= len(c.run.Frames)
}

// Merge returns frames a..b, one object per frame index.
//
// Runs are activated in Start order; runs with equal Start keep the order
// they were given in, so callers control tie-breaking by registration order.
// Deltas outside [a, b] are ignored and empty deltas are skipped. When two
// runs for the same node land on the same frame the later one wins; the
// compiler never produces overlapping runs for one node.
func Merge(a, b int, runs []Run) []ir.Object {
	if b < a {
		return nil
	}

	pending := slices.Clone(runs)
	slices.SortStableFunc(pending, func(x, y Run) int {
		return x.Start - y.Start
	})

	out := make([]ir.Object, b-a+1)
	var active []*cursor
	next := 0

	for frame := a; frame <= b; frame++ {
		for next < len(pending) && pending[next].Start <= frame {
			c := &cursor{run: pending[next]}
			// Skip deltas before the window.
			c.pos = frame - c.run.Start
			active = append(active, c)
			next++
		}

		obj := ir.Object{}
		live := active[:0]
		for _, c := range active {
			if c.done() {
				continue
			}
			if d := c.run.Frames[c.pos]; len(d) > 0 {
				obj[c.run.Node] = d
			}
			c.pos++
			if !c.done() {
				live = append(live, c)
			}
		}
		active = live
		out[frame-a] = obj
	}
	return out
}
