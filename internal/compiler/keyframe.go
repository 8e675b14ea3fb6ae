package compiler

import (
	"github.com/roach88/animdiff/internal/scene"
)

// Keyframe declares a node's state at the start and end of a frame window.
type Keyframe struct {
	Start scene.Shape
	End   scene.Shape
	Style scene.Style

	// StartFrame and StopFrame bound the window, both inclusive.
	StartFrame int
	StopFrame  int

	// Keep leaves the node in its end state after StopFrame instead of
	// hiding it at StopFrame+1.
	Keep bool

	// Compiled is set once the keyframe's units are in the track.
	Compiled bool

	// Until is the last frame the keyframe still governs. It equals
	// StopFrame unless a later keyframe cut it short.
	Until int
}

// Len returns the number of frames in the window.
func (k Keyframe) Len() int {
	return k.StopFrame - k.StartFrame + 1
}

// Truncated reports whether a later keyframe cut this one short.
func (k Keyframe) Truncated() bool {
	return k.Until < k.StopFrame
}
