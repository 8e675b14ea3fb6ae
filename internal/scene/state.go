package scene

import (
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/animdiff/internal/ir"
)

// Attr is one sampled attribute.
type Attr struct {
	Name  string
	Value ir.Value
	// Colour marks string values that blend as colours during interpolation.
	Colour bool
}

func intAttr(name string, v int) Attr {
	return Attr{Name: name, Value: ir.Int(v)}
}

func intsAttr(name string, vs []int) Attr {
	return Attr{Name: name, Value: ir.Ints(vs...)}
}

func textAttr(name, v string) Attr {
	return Attr{Name: name, Value: ir.String(norm.NFC.String(v))}
}

func colourAttr(name, v string) Attr {
	return Attr{Name: name, Value: ir.String(NormalizeColour(v)), Colour: true}
}

// State is a node sampled at one frame. States are immutable once built;
// the compiler shares them between baselines without copying.
type State struct {
	Kind     Kind
	Geometry []Attr
	Style    []Attr
	Children []Child
}

// Child is a named group member's state.
type Child struct {
	Name  string
	State State
}

// Sample evaluates shape and style at frame.
func Sample(shape Shape, style Style, frame int) State {
	st := State{
		Kind:     shape.Kind(),
		Geometry: shape.geometry(frame),
		Style:    style.attrs(frame),
	}
	if g, ok := shape.(*Group); ok {
		st.Children = make([]Child, len(g.children))
		for i, m := range g.children {
			st.Children[i] = Child{Name: m.name, State: Sample(m.shape, m.style, frame)}
		}
	}
	return st
}

// IsConst reports whether shape and style sample identically at every frame.
func IsConst(shape Shape, style Style) bool {
	return shape.isConst() && style.isConst()
}

// Equal reports structural value equality of two states.
func Equal(a, b State) bool {
	if a.Kind != b.Kind || !attrsEqual(a.Geometry, b.Geometry) || !attrsEqual(a.Style, b.Style) {
		return false
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if a.Children[i].Name != b.Children[i].Name || !Equal(a.Children[i].State, b.Children[i].State) {
			return false
		}
	}
	return true
}

func attrsEqual(a, b []Attr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || !ir.Equal(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}

// ShapesEqual reports whether start and end describe the same state at
// frame. It selects between the static and the interpolating compile paths.
func ShapesEqual(start, end Shape, style Style, frame int) bool {
	if start.Kind() != end.Kind() {
		return false
	}
	return Equal(Sample(start, style, frame), Sample(end, style, frame))
}

// Lookup returns the named attribute from geometry or style.
func (s State) Lookup(name string) (ir.Value, bool) {
	for _, a := range s.Geometry {
		if a.Name == name {
			return a.Value, true
		}
	}
	for _, a := range s.Style {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

// Child returns the named child state.
func (s State) Child(name string) (State, bool) {
	for _, c := range s.Children {
		if c.Name == name {
			return c.State, true
		}
	}
	return State{}, false
}
