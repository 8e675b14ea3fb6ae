package scene

import (
	"errors"
	"fmt"
	"strings"
)

// PathSeparator joins group and child names in emitted keys.
const PathSeparator = "/"

var (
	// ErrInvalidName indicates an empty name or one containing PathSeparator.
	ErrInvalidName = errors.New("invalid node name")

	// ErrDuplicateChild indicates a group already has a child with that name.
	ErrDuplicateChild = errors.New("duplicate child name")

	// ErrInvalidShape indicates a shape that cannot be sampled (e.g. odd polygon).
	ErrInvalidShape = errors.New("invalid shape")
)

// ValidateName checks that name can be used as a node or child name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if strings.Contains(name, PathSeparator) {
		return fmt.Errorf("%w: %q contains %q", ErrInvalidName, name, PathSeparator)
	}
	return nil
}

// InvariantError reports a broken internal invariant during diffing or
// interpolation. It is raised with panic: continuing would emit incorrect
// output.
type InvariantError struct {
	Op     string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("scene invariant violated in %s: %s", e.Op, e.Detail)
}

func invariant(op, format string, args ...any) {
	panic(&InvariantError{Op: op, Detail: fmt.Sprintf(format, args...)})
}
