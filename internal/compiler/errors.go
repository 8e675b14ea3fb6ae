package compiler

import (
	"errors"
	"fmt"
)

var (
	// ErrKindMismatch indicates a keyframe whose shape kind differs from the
	// kind the track was created with.
	ErrKindMismatch = errors.New("shape kind does not match track")

	// ErrMissingShape indicates a keyframe without a start or end shape.
	ErrMissingShape = errors.New("keyframe requires start and end shapes")

	// ErrFlushedFrame indicates a keyframe starting at or before a frame that
	// has already been released to a sink.
	ErrFlushedFrame = errors.New("keyframe starts in already flushed frames")
)

// InvariantError reports corrupted unit storage. It is raised with panic.
type InvariantError struct {
	Op     string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("compiler invariant violated in %s: %s", e.Op, e.Detail)
}

func invariant(op, format string, args ...any) {
	panic(&InvariantError{Op: op, Detail: fmt.Sprintf(format, args...)})
}
