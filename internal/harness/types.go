package harness

import (
	"github.com/roach88/animdiff/internal/sink"
)

// Rejection records an update the animator refused.
type Rejection struct {
	// Step is the index into Scenario.Script.
	Step int    `json:"step"`
	Node string `json:"node"`
	Code string `json:"code"`
	// Expected is true when the step declared this code in expect_error.
	Expected bool `json:"expected"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: no unexpected rejections, every
	// expected rejection happened, and all assertions held.
	Pass bool `json:"pass"`

	RunID  string      `json:"run_id"`
	Header sink.Header `json:"header"`

	// Frames are the emitted frames; Frames[i] has index i+1.
	Frames []sink.Frame `json:"frames"`

	// Digest is the run digest of Frames (ir.RunDigest).
	Digest string `json:"digest"`

	// RecompiledDigest is the digest of the frames rebuilt from every
	// node's retained keyframes. It equals Digest for a deterministic run.
	RecompiledDigest string `json:"recompiled_digest"`

	Rejections []Rejection `json:"rejections,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Frames: []sink.Frame{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Frame returns the frame with the given index.
func (r *Result) Frame(index int) (sink.Frame, bool) {
	if index < 1 || index > len(r.Frames) {
		return sink.Frame{}, false
	}
	return r.Frames[index-1], true
}
