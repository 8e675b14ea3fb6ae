// Package engine is the host-facing animation façade.
//
// An Animator owns a set of named nodes, each backed by a compiler.Track,
// and a sink. Hosts declare keyframes in seconds through Node.Animate and
// drive time forward with Step; each step compiles nothing new, it only
// slices the already compiled units for the window (prior, now], merges them
// across nodes and sends one frame per index.
//
// TIME MODEL:
//
// With time step Δ and fps = 1/Δ, time t maps to frame floor(t·fps + 1e-9).
// A keyframe over [t0, t1] occupies frames frame(t0)+1 through frame(t1);
// frame 0 is the empty initial scene and is never emitted.
//
// An update may only start at or after the current time. It invalidates the
// node's compiled frames from its start on, so a host can revise the future
// but never the past.
//
// CONCURRENCY:
//
// An Animator is not safe for concurrent use. Compilation and multiplexing
// run synchronously on the caller's goroutine.
package engine
