package compiler

import (
	"github.com/roach88/animdiff/internal/ir"
	"github.com/roach88/animdiff/internal/scene"
)

// Baseline is what the player holds for a node after some frame.
type Baseline struct {
	// State is the last emitted state, nil before the first write.
	State *scene.State
	// Visible is the last emitted visibility. Nodes start invisible.
	Visible bool
	// TypeSent records whether the node's "type" key has been emitted.
	TypeSent bool
}

// emitter threads a baseline through one compilation.
type emitter struct {
	name string
	base Baseline
}

// show diffs st against the baseline and makes st the new baseline.
// The first diff after an invisible state re-asserts visibility, and the
// node's type goes out with its first visible frame.
func (e *emitter) show(st scene.State) ir.Object {
	delta := scene.Diff(e.name, e.base.State, st)
	if !e.base.Visible {
		delta[scene.KeyVisibility] = ir.Bool(true)
	}
	if !e.base.TypeSent {
		delta[scene.KeyType] = ir.String(st.Kind)
	}
	e.base = Baseline{State: &st, Visible: true, TypeSent: true}
	return delta
}

// hide emits only the visibility flip.
func (e *emitter) hide() ir.Object {
	e.base.Visible = false
	return ir.Object{scene.KeyVisibility: ir.Bool(false)}
}
