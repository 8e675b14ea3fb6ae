package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// dotScenario moves one ellipse two pixels over two one-second frames.
const dotScenario = `name: dot
time_step: 1
run_id: dot-run
nodes:
  - {name: dot, kind: ellipse}
script:
  - at: 0
    node: dot
    start: {ellipse: {cx: 0, cy: 0, rx: 2, ry: 2}}
    end: {ellipse: {cx: 2, cy: 0, rx: 2, ry: 2}}
    t0: 0
    t1: 2
    keep: true
assertions:
  - {type: frame_count, count: 2}
  - {type: frame_contains, frame: 2, node: dot, expect: {cx: 2}}
`

// failingScenario compiles but fails its assertion.
const failingScenario = `name: failing
time_step: 1
nodes:
  - {name: dot, kind: ellipse}
script:
  - at: 0
    node: dot
    start: {ellipse: {cx: 0, cy: 0, rx: 2, ry: 2}}
    t0: 0
    t1: 1
    keep: true
assertions:
  - {type: frame_count, count: 99}
`

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// executeRoot runs the root command with args and returns stdout, stderr and
// the command error.
func executeRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
