// Package compiler turns keyframes into frame-indexed delta batches.
//
// A Track holds one node's keyframe history and its compiled AnimationUnits.
// Keyframes are compiled eagerly when they arrive, possibly long before the
// frames they cover are flushed. A later keyframe starting at frame S
// supersedes everything from S on: keyframes starting at or after S are
// dropped, units at or after S are removed, and a unit straddling S is cut so
// it ends at S-1.
//
// BASELINES:
//
// The diff origin for a node is its Baseline: the last emitted state, whether
// the node is visible, and whether its "type" has been sent. Compile is a pure
// function (Baseline, Keyframe) -> ([]Unit, Baseline). Every unit records the
// baseline after each of its frames, so after a splice at S the track resumes
// from exactly what the player will have seen at S-1.
//
// COMPILE CASES (N = stop - start + 1):
//
//   - instant, not kept:            one frame {visibility:false}
//   - unchanged, kept:              one frame static diff (per-frame when sampled)
//   - changed, instant, kept:       one frame diff straight to the end state
//   - unchanged, multi-frame, !keep: init diff at start, removal at stop+1
//   - changed, multi-frame:         N interpolated frames, removal at stop+1 if !keep
//
// The package is single-threaded: callers serialise access per track.
package compiler
