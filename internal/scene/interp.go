package scene

import (
	"math"

	"github.com/roach88/animdiff/internal/ir"
)

// Interpolate returns the state at step i of an n-step linear transition
// from start to end, with t = i/(n-1).
//
// Integers use round((1-t)*a + t*b) in double precision, rounding half away
// from zero onto the pixel grid. Integer lists of equal length interpolate
// element-wise; hex colours blend in RGB. Values that cannot interpolate
// (text, lists of different length, named colours, children that appear or
// vanish) hold the start value and switch at the final step.
//
// Step 0 returns start exactly and step n-1 returns end exactly.
func Interpolate(start, end State, i, n int) State {
	if i <= 0 || n <= 1 {
		return start
	}
	if i >= n-1 {
		return end
	}
	if start.Kind != end.Kind {
		return start
	}
	t := float64(i) / float64(n-1)

	out := State{
		Kind:     start.Kind,
		Geometry: make([]Attr, len(start.Geometry)),
		Style:    make([]Attr, len(start.Style)),
	}
	if len(start.Geometry) != len(end.Geometry) {
		invariant("Interpolate", "%s geometry length %d != %d", start.Kind, len(start.Geometry), len(end.Geometry))
	}
	for k, a := range start.Geometry {
		b := end.Geometry[k]
		if a.Name != b.Name {
			invariant("Interpolate", "%s attribute %q missing from end state", start.Kind, a.Name)
		}
		out.Geometry[k] = Attr{Name: a.Name, Value: lerpValue(a, b, t), Colour: a.Colour}
	}
	for k, a := range start.Style {
		v := a.Value
		if b, ok := findAttr(end.Style, a.Name); ok {
			v = lerpValue(a, b, t)
		}
		out.Style[k] = Attr{Name: a.Name, Value: v, Colour: a.Colour}
	}
	if len(start.Children) > 0 {
		out.Children = make([]Child, len(start.Children))
		for k, c := range start.Children {
			st := c.State
			if e, ok := findChild(end.Children, c.Name); ok && e.Kind == st.Kind {
				st = Interpolate(st, e, i, n)
			}
			out.Children[k] = Child{Name: c.Name, State: st}
		}
	}
	return out
}

// Lerp rounds (1-t)*a + t*b to the nearest integer, half away from zero.
func Lerp(a, b int, t float64) int {
	return int(math.Round((1-t)*float64(a) + t*float64(b)))
}

func lerpValue(a, b Attr, t float64) ir.Value {
	switch av := a.Value.(type) {
	case ir.Int:
		if bv, ok := b.Value.(ir.Int); ok {
			return ir.Int(Lerp(int(av), int(bv), t))
		}
	case ir.List:
		as, okA := ir.AsInts(av)
		bs, okB := ir.AsInts(b.Value)
		if okA && okB && len(as) == len(bs) {
			out := make([]int, len(as))
			for i := range as {
				out[i] = Lerp(as[i], bs[i], t)
			}
			return ir.Ints(out...)
		}
	case ir.String:
		if a.Colour && b.Colour {
			bs, _ := b.Value.(ir.String)
			ca, okA := parseHex(string(av))
			cb, okB := parseHex(string(bs))
			if okA && okB {
				return ir.String(ca.BlendRgb(cb, t).Clamped().Hex())
			}
		}
	}
	return a.Value
}
