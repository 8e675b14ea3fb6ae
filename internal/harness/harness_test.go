package harness

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/animdiff/internal/engine"
	"github.com/roach88/animdiff/internal/ir"
	"github.com/roach88/animdiff/internal/sink"
	"github.com/roach88/animdiff/internal/testutil"
)

func loadTestdata(t *testing.T, name string) *Scenario {
	t.Helper()
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name))
	require.NoError(t, err)
	return scenario
}

func TestRun_Car(t *testing.T) {
	result, err := Run(loadTestdata(t, "car.yaml"))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Frames, 18)
	assert.Equal(t, 25, result.Header.FPS)
	assert.Equal(t, testutil.DefaultRunID, result.RunID)
	for i, f := range result.Frames {
		assert.Equal(t, i+1, f.Index)
	}
}

func TestRun_Demo(t *testing.T) {
	result, err := Run(loadTestdata(t, "demo.yaml"))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "demo-run", result.RunID)
	require.Len(t, result.Rejections, 1)
	assert.Equal(t, Rejection{Step: 2, Node: "box", Code: "REJECTED_UPDATE", Expected: true}, result.Rejections[0])

	require.Len(t, result.Frames, 4)
	assert.Equal(t, ir.Object{"box": ir.Object{"visibility": ir.Bool(false)}}, result.Frames[1].Delta)
	assert.Empty(t, result.Frames[2].Delta)
	assert.Empty(t, result.Frames[3].Delta)
}

func TestRun_IsDeterministic(t *testing.T) {
	scenario := loadTestdata(t, "car.yaml")

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Digest, second.Digest)
	assert.Equal(t, first.Frames, second.Frames)
}

func TestRun_RecompileMatchesEmittedFrames(t *testing.T) {
	for _, name := range []string{"car.yaml", "demo.yaml"} {
		t.Run(name, func(t *testing.T) {
			result, err := Run(loadTestdata(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.RecompiledDigest, 64)
			assert.Equal(t, result.Digest, result.RecompiledDigest)
		})
	}
}

func TestRun_CUEAndYAMLAgree(t *testing.T) {
	fromYAML, err := Run(loadTestdata(t, "car.yaml"))
	require.NoError(t, err)
	fromCUE, err := Run(loadTestdata(t, "car.cue"))
	require.NoError(t, err)

	assert.Equal(t, fromYAML.Digest, fromCUE.Digest)
}

func TestRun_UnexpectedRejectionFails(t *testing.T) {
	scenario := loadTestdata(t, "demo.yaml")
	scenario.Script[2].ExpectError = ""

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "script[2]")
	assert.False(t, result.Rejections[0].Expected)
}

func TestRun_MissingExpectedRejectionFails(t *testing.T) {
	scenario := loadTestdata(t, "car.yaml")
	scenario.Script[0].ExpectError = string(engine.ErrCodeRejectedUpdate)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "update was accepted")
}

func TestRun_KindMismatchIsRejected(t *testing.T) {
	scenario := &Scenario{
		Name:     "mismatch",
		TimeStep: 0.5,
		Nodes:    []NodeDecl{{Name: "a", Kind: "rect"}},
		Script: []Step{{
			Node:        "a",
			Start:       &ShapeSpec{Ellipse: &EllipseSpec{RX: Const(1), RY: Const(1)}},
			T1:          1,
			ExpectError: string(engine.ErrCodeKindMismatch),
		}},
		Assertions: []Assertion{{Type: AssertFrameCount, Count: 0}},
	}
	require.NoError(t, validateScenario(scenario))

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Frames)
}

func TestRun_UntilDropsLaterFrames(t *testing.T) {
	scenario := loadTestdata(t, "car.yaml")
	scenario.Until = 0.2
	scenario.Assertions = nil

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.Len(t, result.Frames, 5)
	assert.Equal(t, result.Digest, result.RecompiledDigest)
}

func TestExecute_StreamsToSink(t *testing.T) {
	scenario := loadTestdata(t, "demo.yaml")
	mem := sink.NewMemory()

	result, err := Execute(context.Background(), scenario, mem,
		WithRunIDs(engine.NewFixedGenerator("run-7")),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	assert.True(t, mem.Stopped)
	assert.Equal(t, "run-7", mem.Header.RunID)
	assert.Equal(t, result.Frames, mem.Frames)
}

func TestExecute_SinkFailureAborts(t *testing.T) {
	scenario := loadTestdata(t, "demo.yaml")
	mem := sink.NewMemory()
	require.NoError(t, mem.SendStart(context.Background(), sink.Header{}))

	_, err := Execute(context.Background(), scenario, mem)
	require.Error(t, err)
	assert.ErrorIs(t, err, sink.ErrAlreadyStarted)
}
