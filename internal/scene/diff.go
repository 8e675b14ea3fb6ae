package scene

import (
	"github.com/roach88/animdiff/internal/ir"
)

// Reserved delta keys.
const (
	KeyType       = "type"
	KeyVisibility = "visibility"
	KeyRemove     = "remove"
	KeyShapes     = "shapes"
)

// Diff returns the attributes of next that differ from prev.
//
// With prev == nil every attribute is emitted (first write for the node).
// The node's own "type" key is the compiler's business and is not added
// here; group children that appear get a full emit including their type.
//
// Group children diff by name under the "shapes" key, namespaced
// "<name>/<child>": new children are emitted in full, changed children emit
// changed sub-attributes, vanished children emit {"remove": true}.
func Diff(name string, prev *State, next State) ir.Object {
	out := ir.Object{}
	if prev == nil {
		emitAll(out, next.Geometry)
		emitAll(out, next.Style)
		if shapes := childrenFull(name, next.Children); len(shapes) > 0 {
			out[KeyShapes] = shapes
		}
		return out
	}

	if prev.Kind != next.Kind {
		invariant("Diff", "node %q changed kind %s -> %s", name, prev.Kind, next.Kind)
	}

	diffGeometry(out, name, prev.Geometry, next.Geometry)
	diffStyle(out, prev.Style, next.Style)
	if shapes := diffChildren(name, prev.Children, next.Children); len(shapes) > 0 {
		out[KeyShapes] = shapes
	}
	return out
}

// FullEmit returns every attribute of st including its "type" key.
func FullEmit(name string, st State) ir.Object {
	out := Diff(name, nil, st)
	out[KeyType] = ir.String(st.Kind)
	return out
}

func emitAll(out ir.Object, attrs []Attr) {
	for _, a := range attrs {
		out[a.Name] = a.Value
	}
}

// diffGeometry compares aligned geometry lists. Geometry of one kind always
// has the same names in the same order; anything else is a bug.
func diffGeometry(out ir.Object, name string, prev, next []Attr) {
	if len(prev) != len(next) {
		invariant("Diff", "node %q geometry length %d != %d", name, len(prev), len(next))
	}
	for i := range next {
		if prev[i].Name != next[i].Name {
			invariant("Diff", "node %q attribute %q missing from previous state", name, next[i].Name)
		}
		if !ir.Equal(prev[i].Value, next[i].Value) {
			out[next[i].Name] = next[i].Value
		}
	}
}

// diffStyle compares optional style attributes by name. An attribute that was
// not declared before is emitted; one that is no longer declared is left as
// the player last saw it.
func diffStyle(out ir.Object, prev, next []Attr) {
	for _, a := range next {
		old, ok := findAttr(prev, a.Name)
		if !ok || !ir.Equal(old.Value, a.Value) {
			out[a.Name] = a.Value
		}
	}
}

func findAttr(attrs []Attr, name string) (Attr, bool) {
	for _, a := range attrs {
		if a.Name == name {
			return a, true
		}
	}
	return Attr{}, false
}

func childPath(parent, child string) string {
	return parent + PathSeparator + child
}

func childrenFull(parent string, children []Child) ir.Object {
	if len(children) == 0 {
		return nil
	}
	shapes := ir.Object{}
	for _, c := range children {
		path := childPath(parent, c.Name)
		shapes[path] = FullEmit(path, c.State)
	}
	return shapes
}

func diffChildren(parent string, prev, next []Child) ir.Object {
	shapes := ir.Object{}
	for _, c := range next {
		path := childPath(parent, c.Name)
		old, ok := findChild(prev, c.Name)
		switch {
		case !ok || old.Kind != c.State.Kind:
			shapes[path] = FullEmit(path, c.State)
		default:
			if d := Diff(path, &old, c.State); len(d) > 0 {
				shapes[path] = d
			}
		}
	}
	for _, c := range prev {
		if _, ok := findChild(next, c.Name); !ok {
			shapes[childPath(parent, c.Name)] = ir.Object{KeyRemove: ir.Bool(true)}
		}
	}
	return shapes
}

func findChild(children []Child, name string) (State, bool) {
	for _, c := range children {
		if c.Name == name {
			return c.State, true
		}
	}
	return State{}, false
}
