package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// outputDocument mirrors the compiled JSON document.
type outputDocument struct {
	Name   string           `json:"name"`
	FPS    int              `json:"fps"`
	Width  *int             `json:"width"`
	Frames []map[string]any `json:"frames"`
}

func TestCompileToStdout(t *testing.T) {
	path := writeFile(t, t.TempDir(), "dot.yaml", dotScenario)

	out, _, err := executeRoot(t, "compile", path)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, `{"name":"dot","fps":1,"frames":[`), out)
	assert.True(t, strings.HasSuffix(out, "]}\n"), out)

	var doc outputDocument
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "dot", doc.Name)
	assert.Nil(t, doc.Width)
	require.Len(t, doc.Frames, 2)
	assert.Contains(t, doc.Frames[0], "dot")
	assert.Equal(t, map[string]any{"dot": map[string]any{"cx": float64(2)}}, doc.Frames[1])
}

func TestCompileIsDeterministic(t *testing.T) {
	path := writeFile(t, t.TempDir(), "dot.yaml", dotScenario)

	first, _, err := executeRoot(t, "compile", path)
	require.NoError(t, err)
	second, _, err := executeRoot(t, "compile", path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCompileOutputToFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "dot.yaml", dotScenario)
	outPath := filepath.Join(dir, "dot.json")

	out, _, err := executeRoot(t, "compile", path, "-o", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compiled dot: 2 frames at 1 fps")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var doc outputDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Len(t, doc.Frames, 2)
}

func TestCompileOutputToFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "dot.yaml", dotScenario)
	outPath := filepath.Join(dir, "dot.json")

	out, _, err := executeRoot(t, "--format", "json", "compile", path, "-o", outPath)
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		RunID  string         `json:"run_id"`
		Data   CompileSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "dot-run", resp.RunID)
	assert.Equal(t, 2, resp.Data.Frames)
	assert.Equal(t, 1, resp.Data.FPS)
	assert.True(t, resp.Data.Pass)
	assert.Len(t, resp.Data.Digest, 64)
}

func TestCompileErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantText string
	}{
		{
			name:     "missing file",
			path:     filepath.Join(dir, "missing.yaml"),
			wantCode: ExitCommandError,
			wantText: ErrCodeNotFound,
		},
		{
			name:     "unsupported extension",
			path:     writeFile(t, dir, "dot.json", "{}"),
			wantCode: ExitCommandError,
			wantText: ErrCodeBadFormat,
		},
		{
			name:     "invalid scenario",
			path:     writeFile(t, dir, "bad.yaml", "name: bad\ntime_step: 0\n"),
			wantCode: ExitCommandError,
			wantText: ErrCodeLoadFailed,
		},
		{
			name:     "unknown field",
			path:     writeFile(t, dir, "typo.yaml", strings.Replace(dotScenario, "keep: true", "kepe: true", 1)),
			wantCode: ExitCommandError,
			wantText: "kepe",
		},
		{
			name:     "failed assertion",
			path:     writeFile(t, dir, "failing.yaml", failingScenario),
			wantCode: ExitFailure,
			wantText: "frame_count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errOut, err := executeRoot(t, "compile", tt.path)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, GetExitCode(err))
			assert.Contains(t, out+errOut, tt.wantText)
		})
	}
}

func TestCompileFailedAssertionStillWritesDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "failing.yaml", failingScenario)
	outPath := filepath.Join(dir, "failing.json")

	out, _, err := executeRoot(t, "compile", path, "-o", outPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "99 frames")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), `{"name":"failing","fps":1,"frames":[`))
}

func TestCompileCUEScenario(t *testing.T) {
	out, _, err := executeRoot(t, "compile", filepath.Join("..", "harness", "testdata", "scenarios", "car.cue"))
	require.NoError(t, err)

	golden, err := os.ReadFile(filepath.Join("..", "harness", "testdata", "golden", "car.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(golden), out)
}
