package compiler

import (
	"github.com/roach88/animdiff/internal/ir"
	"github.com/roach88/animdiff/internal/scene"
)

// Compile converts one keyframe into units, starting from base. It is pure:
// the same baseline and keyframe always yield identical units.
//
// The returned baseline is the node's state after the last compiled frame.
// A window with StopFrame < StartFrame is compiled as an instant keyframe.
func Compile(name string, base Baseline, kf Keyframe) ([]Unit, Baseline) {
	start := kf.StartFrame
	stop := max(kf.StopFrame, start)
	n := stop - start + 1

	e := &emitter{name: name, base: base}
	instant := n == 1
	static := scene.IsConst(kf.Start, kf.Style) && scene.IsConst(kf.End, kf.Style)
	unchanged := static && scene.ShapesEqual(kf.Start, kf.End, kf.Style, start)

	var units []Unit
	switch {
	case instant && !kf.Keep:
		// Too short to render an intermediate state.
		units = append(units, e.single(start, e.hide()))

	case unchanged && kf.Keep:
		units = append(units, e.single(start, e.show(scene.Sample(kf.End, kf.Style, start))))

	case instant:
		units = append(units, e.single(start, e.show(scene.Sample(kf.End, kf.Style, start))))

	case unchanged:
		units = append(units, e.single(start, e.show(scene.Sample(kf.Start, kf.Style, start))))
		units = append(units, e.single(stop+1, e.hide()))

	default:
		u := Unit{Start: start}
		for i := 0; i < n; i++ {
			frame := start + i
			from := scene.Sample(kf.Start, kf.Style, frame)
			to := scene.Sample(kf.End, kf.Style, frame)
			u.push(e.show(scene.Interpolate(from, to, i, n)), e.base)
		}
		if !kf.Keep {
			u.push(e.hide(), e.base)
		}
		u.Stop = u.Start + len(u.Frames) - 1
		units = append(units, u)
	}

	for _, u := range units {
		u.check("Compile")
	}
	return units, e.base
}

// single builds a one-frame unit carrying the emitter's current baseline.
func (e *emitter) single(frame int, delta ir.Object) Unit {
	return Unit{
		Start:  frame,
		Stop:   frame,
		Frames: []ir.Object{delta},
		After:  []Baseline{e.base},
	}
}
