package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/animdiff/internal/ir"
	"github.com/roach88/animdiff/internal/scene"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Frame    int    // Frame under test, 0 when not frame-specific
	Delta    ir.Object
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Frame > 0 {
		data, err := ir.MarshalCanonical(e.Delta)
		if err != nil {
			data = []byte(err.Error())
		}
		fmt.Fprintf(&buf, "\nFrame %d: %s\n", e.Frame, data)
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages. Failures do not stop evaluation.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertFrameCount:
		return assertFrameCount(result, a)
	case AssertFrameContains:
		return assertFrameContains(result, a)
	case AssertNodeAbsent:
		return assertNodeAbsent(result, a)
	case AssertVisible:
		return assertVisible(result, a)
	case AssertRejections:
		return assertRejections(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertFrameCount checks the number of emitted frames.
func assertFrameCount(result *Result, a Assertion) error {
	if len(result.Frames) != a.Count {
		return &AssertionError{
			Type:     AssertFrameCount,
			Expected: fmt.Sprintf("%d frames", a.Count),
			Actual:   fmt.Sprintf("%d frames", len(result.Frames)),
		}
	}
	return nil
}

// assertFrameContains checks that the node's delta at the frame carries the
// expected attributes. Subset match: other attributes may be present.
func assertFrameContains(result *Result, a Assertion) error {
	f, ok := result.Frame(a.Frame)
	if !ok {
		return &AssertionError{
			Type:     AssertFrameContains,
			Expected: fmt.Sprintf("frame %d", a.Frame),
			Actual:   fmt.Sprintf("only %d frames emitted", len(result.Frames)),
		}
	}

	want, err := ir.FromGo(a.Expect)
	if err != nil {
		return fmt.Errorf("expect: %w", err)
	}

	delta, _ := f.Delta[a.Node].(ir.Object)
	for _, key := range want.(ir.Object).SortedKeys() {
		expected := want.(ir.Object)[key]
		actual, present := delta[key]
		if !present || !ir.Equal(expected, actual) {
			return &AssertionError{
				Type:     AssertFrameContains,
				Expected: fmt.Sprintf("%s.%s = %s", a.Node, key, render(expected)),
				Actual:   fmt.Sprintf("%s.%s = %s", a.Node, key, renderOptional(actual, present)),
				Frame:    a.Frame,
				Delta:    f.Delta,
			}
		}
	}
	return nil
}

// assertNodeAbsent checks the node did not change at the frame.
func assertNodeAbsent(result *Result, a Assertion) error {
	f, ok := result.Frame(a.Frame)
	if !ok {
		return &AssertionError{
			Type:     AssertNodeAbsent,
			Expected: fmt.Sprintf("frame %d", a.Frame),
			Actual:   fmt.Sprintf("only %d frames emitted", len(result.Frames)),
		}
	}
	if d, present := f.Delta[a.Node]; present {
		return &AssertionError{
			Type:     AssertNodeAbsent,
			Expected: fmt.Sprintf("no delta for %s", a.Node),
			Actual:   render(d),
			Frame:    a.Frame,
			Delta:    f.Delta,
		}
	}
	return nil
}

// assertVisible replays visibility flips up to and including the frame.
// Nodes start invisible.
func assertVisible(result *Result, a Assertion) error {
	if a.Frame > len(result.Frames) {
		return &AssertionError{
			Type:     AssertVisible,
			Expected: fmt.Sprintf("frame %d", a.Frame),
			Actual:   fmt.Sprintf("only %d frames emitted", len(result.Frames)),
		}
	}

	visible := false
	for _, f := range result.Frames[:a.Frame] {
		delta, _ := f.Delta[a.Node].(ir.Object)
		if v, ok := delta[scene.KeyVisibility].(ir.Bool); ok {
			visible = bool(v)
		}
	}
	if visible != *a.Visible {
		return &AssertionError{
			Type:     AssertVisible,
			Expected: fmt.Sprintf("%s visible=%t after frame %d", a.Node, *a.Visible, a.Frame),
			Actual:   fmt.Sprintf("visible=%t", visible),
		}
	}
	return nil
}

// assertRejections checks the number of rejected updates, expected or not.
func assertRejections(result *Result, a Assertion) error {
	if len(result.Rejections) != a.Count {
		codes := make([]string, len(result.Rejections))
		for i, r := range result.Rejections {
			codes[i] = fmt.Sprintf("script[%d] %s %s", r.Step, r.Node, r.Code)
		}
		return &AssertionError{
			Type:     AssertRejections,
			Expected: fmt.Sprintf("%d rejections", a.Count),
			Actual:   fmt.Sprintf("%d rejections %v", len(result.Rejections), codes),
		}
	}
	return nil
}

func render(v ir.Value) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func renderOptional(v ir.Value, present bool) string {
	if !present {
		return "<absent>"
	}
	return render(v)
}
