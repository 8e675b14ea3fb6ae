// Package attr provides attribute timelines: scalars that are either constant
// or a pure function of frame index.
package attr

// Timeline is one scene attribute over frame indices.
//
// Exactly one of the constant value and the sampling function is in effect.
// The zero Timeline is the constant zero value of T.
//
// Sampling functions must be pure: the compiler may evaluate the same frame
// more than once (slicing, recompilation) and expects identical results.
type Timeline[T any] struct {
	value T
	fn    func(frame int) T
}

// Const returns a timeline fixed at v for every frame.
func Const[T any](v T) Timeline[T] {
	return Timeline[T]{value: v}
}

// Func returns a timeline sampled from fn.
// A nil fn yields the constant zero value.
func Func[T any](fn func(frame int) T) Timeline[T] {
	return Timeline[T]{fn: fn}
}

// At returns the value at frame.
func (t Timeline[T]) At(frame int) T {
	if t.fn != nil {
		return t.fn(frame)
	}
	return t.value
}

// IsConst reports whether the timeline has the same value over its whole
// domain. The compiler takes a single-delta path for constant shapes instead
// of sampling every frame.
func (t Timeline[T]) IsConst() bool {
	return t.fn == nil
}

// Linear returns a timeline that starts at base on frame from and changes by
// step per frame. Frames before from hold base.
func Linear(base, step, from int) Timeline[int] {
	return Func(func(frame int) int {
		if frame <= from {
			return base
		}
		return base + step*(frame-from)
	})
}

// Ints converts constants to timelines.
func Ints(vs ...int) []Timeline[int] {
	out := make([]Timeline[int], len(vs))
	for i, v := range vs {
		out[i] = Const(v)
	}
	return out
}
