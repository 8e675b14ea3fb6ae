package harness

import (
	"bytes"
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/animdiff/internal/sink"
)

// Snapshot renders a result as the output document the JSON sink writes.
// Equal runs produce identical bytes, so snapshots serve as golden files.
func Snapshot(result *Result) ([]byte, error) {
	var buf bytes.Buffer
	ctx := context.Background()

	js := sink.NewJSON(&buf)
	if err := js.SendStart(ctx, result.Header); err != nil {
		return nil, err
	}
	for _, f := range result.Frames {
		if err := js.SendFrame(ctx, f); err != nil {
			return nil, err
		}
	}
	if err := js.SendStop(ctx); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its output document
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the output doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
