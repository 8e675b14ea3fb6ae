package compiler

import (
	"github.com/roach88/animdiff/internal/ir"
)

// Unit is a compiled, frame-indexed batch of deltas covering [Start, Stop].
//
// INVARIANT: Stop - Start + 1 == len(Frames) == len(After).
type Unit struct {
	Start  int
	Stop   int
	Frames []ir.Object
	// After[i] is the node's baseline once Frames[i] has been applied.
	After []Baseline
}

// Len returns the number of frames in the unit.
func (u Unit) Len() int {
	return len(u.Frames)
}

func (u *Unit) push(delta ir.Object, after Baseline) {
	u.Frames = append(u.Frames, delta)
	u.After = append(u.After, after)
}

func (u Unit) check(op string) {
	if u.Stop-u.Start+1 != len(u.Frames) || len(u.Frames) != len(u.After) {
		invariant(op, "unit [%d,%d] has %d frames and %d baselines", u.Start, u.Stop, len(u.Frames), len(u.After))
	}
}

// clip returns a copy of the part of u inside [a, b]. Deltas are deep copies
// so callers never reach into storage.
func (u Unit) clip(a, b int) (Unit, bool) {
	lo, hi := max(a, u.Start), min(b, u.Stop)
	if lo > hi {
		return Unit{}, false
	}
	out := Unit{
		Start:  lo,
		Stop:   hi,
		Frames: make([]ir.Object, 0, hi-lo+1),
		After:  append([]Baseline(nil), u.After[lo-u.Start:hi-u.Start+1]...),
	}
	for _, f := range u.Frames[lo-u.Start : hi-u.Start+1] {
		out.Frames = append(out.Frames, f.Clone())
	}
	return out, true
}

// SpliceReport describes what an invalidation removed.
type SpliceReport struct {
	DroppedUnits   int
	TruncatedUnits int
	DroppedFrames  int
}

// unitStore holds a track's units ordered by Start, pairwise disjoint.
type unitStore struct {
	units []Unit

	// floor is the baseline after releasedThrough; it applies when no
	// retained unit precedes a frame.
	floor           Baseline
	releasedThrough int
}

func (s *unitStore) append(units ...Unit) {
	for _, u := range units {
		if n := len(s.units); n > 0 && u.Start <= s.units[n-1].Stop {
			invariant("append", "unit [%d,%d] overlaps [%d,%d]", u.Start, u.Stop, s.units[n-1].Start, s.units[n-1].Stop)
		}
		s.units = append(s.units, u)
	}
}

// splice invalidates everything from frame start on. Units wholly at or after
// start are removed; a unit straddling start is cut in place to end at start-1.
func (s *unitStore) splice(start int) SpliceReport {
	var rep SpliceReport
	kept := s.units[:0]
	for _, u := range s.units {
		switch {
		case u.Start >= start:
			rep.DroppedUnits++
			rep.DroppedFrames += u.Len()
		case u.Stop >= start:
			keep := start - u.Start
			rep.TruncatedUnits++
			rep.DroppedFrames += u.Len() - keep
			u.Frames = u.Frames[:keep:keep]
			u.After = u.After[:keep:keep]
			u.Stop = start - 1
			u.check("splice")
			kept = append(kept, u)
		default:
			kept = append(kept, u)
		}
	}
	// Clear the tail so dropped deltas can be collected.
	for i := len(kept); i < len(s.units); i++ {
		s.units[i] = Unit{}
	}
	s.units = kept
	return rep
}

// baselineBefore returns the baseline as of frame-1.
// Only valid once everything at or after frame has been spliced away.
func (s *unitStore) baselineBefore(frame int) Baseline {
	for i := len(s.units) - 1; i >= 0; i-- {
		u := s.units[i]
		if u.Start < frame {
			last := min(u.Stop, frame-1)
			return u.After[last-u.Start]
		}
	}
	return s.floor
}

// slice returns clipped copies of every unit overlapping [a, b].
func (s *unitStore) slice(a, b int) []Unit {
	var out []Unit
	for _, u := range s.units {
		if u.Start > b {
			break
		}
		if c, ok := u.clip(a, b); ok {
			out = append(out, c)
		}
	}
	return out
}

// release drops units that end at or before through.
func (s *unitStore) release(through int) int {
	if through <= s.releasedThrough {
		return 0
	}
	n := 0
	for n < len(s.units) && s.units[n].Stop <= through {
		u := s.units[n]
		s.floor = u.After[len(u.After)-1]
		n++
	}
	s.units = append([]Unit(nil), s.units[n:]...)
	s.releasedThrough = through
	return n
}

// lastFrame returns the last compiled frame, or the release point when
// nothing is pending.
func (s *unitStore) lastFrame() int {
	if n := len(s.units); n > 0 {
		return max(s.units[n-1].Stop, s.releasedThrough)
	}
	return s.releasedThrough
}
