// Package harness runs scripted animation scenarios.
//
// A scenario stands in for the discrete-event scheduler that normally
// drives an Animator: it declares nodes and a script of timed keyframe
// updates, and the harness replays the script against a simulation clock.
// Runs are deterministic, so their output can be compared byte for byte
// against golden files.
//
// # Scenario Format
//
// Scenarios are YAML or CUE files with the following structure:
//
//	name: car
//	time_step: 0.04
//	nodes:
//	  - {name: Car1, kind: rect}
//	script:
//	  - at: 0
//	    node: Car1
//	    start: {rect: {x: 275, y: 275, width: 0, height: 50}}
//	    end: {rect: {x: 293, y: 275, width: 36, height: 50}}
//	    style: {fill: "#ff0000", stroke: "#000000"}
//	    t0: 0
//	    t1: 0.68
//	assertions:
//	  - {type: frame_count, count: 18}
//	  - {type: frame_contains, frame: 1, node: Car1, expect: {x: 275}}
//
// Integer attributes are either constants or linear ramps
// ({base, step, from}). A step whose update should be refused names the
// error code in expect_error.
//
// CUE scenarios are unified with the embedded #Scenario definition
// (scenario.cue) and must be fully concrete.
//
// # Assertion Types
//
//   - frame_count: exactly count frames were emitted
//   - frame_contains: a node's delta at a frame contains the expected attributes
//   - node_absent: a node has no delta at a frame
//   - visible: a node's visibility after a frame
//   - rejections: exactly count updates were rejected
//
// # Determinism
//
// The harness uses a simulation clock that only moves to script times, and
// a fixed run id (scenario run_id or testutil.DefaultRunID).
package harness
