package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidScenarios(t *testing.T) {
	dir := t.TempDir()
	yamlPath := writeFile(t, dir, "dot.yaml", dotScenario)
	cuePath := filepath.Join("..", "harness", "testdata", "scenarios", "car.cue")

	out, _, err := executeRoot(t, "validate", yamlPath, cuePath)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 2 scenario(s) valid")
}

func TestValidateValidScenarioJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "dot.yaml", dotScenario)

	out, _, err := executeRoot(t, "--format", "json", "validate", path)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 1, resp.Data.Files)
}

func TestValidateDoesNotRunAssertions(t *testing.T) {
	path := writeFile(t, t.TempDir(), "failing.yaml", failingScenario)

	_, _, err := executeRoot(t, "validate", path)
	require.NoError(t, err)
}

func TestValidateMissingArgs(t *testing.T) {
	_, _, err := executeRoot(t, "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestValidateInvalidScenarios(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "dot.yaml", dotScenario)
	undeclared := writeFile(t, dir, "undeclared.yaml",
		strings.Replace(dotScenario, "    node: dot\n", "    node: ghost\n", 1))
	missing := filepath.Join(dir, "missing.yaml")

	out, _, err := executeRoot(t, "validate", good, undeclared, missing)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, undeclared)
	assert.Contains(t, out, `undeclared node "ghost"`)
	assert.Contains(t, out, missing)
	assert.Contains(t, out, ErrCodeNotFound)
	assert.NotContains(t, out, good+"\n")
}

func TestValidateInvalidScenarioJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yaml", "name: bad\ntime_step: -1\nnodes: []\nscript: []\n")

	out, _, err := executeRoot(t, "--format", "json", "validate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, path, resp.Data.Errors[0].File)
	assert.Equal(t, ErrCodeLoadFailed, resp.Data.Errors[0].Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeLoadFailed, resp.Error.Code)
}

func TestValidateCUEErrorHasLine(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.cue", `name: "bad"
time_step: "fast"
nodes: [{name: "dot", kind: "ellipse"}]
script: []
`)

	out, _, err := executeRoot(t, "--format", "json", "validate", path)
	require.Error(t, err)

	var resp struct {
		Data ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, ErrCodeLoadFailed, resp.Data.Errors[0].Code)
	assert.Greater(t, resp.Data.Errors[0].Line, 0)
}

func TestToValidationError(t *testing.T) {
	le := &LoadError{Code: ErrCodeNotFound, File: "car.yaml", Message: "scenario file not found"}
	got := toValidationError("car.yaml", le)
	assert.Equal(t, ValidationError{File: "car.yaml", Code: ErrCodeNotFound, Message: "scenario file not found"}, got)

	got = toValidationError("car.yaml", assert.AnError)
	assert.Equal(t, ErrCodeGeneric, got.Code)
}
