package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/animdiff/internal/ir"
	"github.com/roach88/animdiff/internal/sink"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testFrame builds a frame where node has attribute x.
func testFrame(index int, node string, x int) sink.Frame {
	return sink.Frame{Index: index, Delta: ir.Object{node: ir.Object{"x": ir.Int(x)}}}
}

// recordRun records frames through a Recorder and returns the run id.
func recordRun(t *testing.T, s *Store, id string, frames ...sink.Frame) string {
	t.Helper()
	ctx := context.Background()
	r := NewRecorder(s, "name: demo\n", "yaml")
	if err := r.SendStart(ctx, sink.Header{Name: "demo", FPS: 10, RunID: id}); err != nil {
		t.Fatalf("SendStart() failed: %v", err)
	}
	for _, f := range frames {
		if err := r.SendFrame(ctx, f); err != nil {
			t.Fatalf("SendFrame(%d) failed: %v", f.Index, err)
		}
	}
	if err := r.SendStop(ctx); err != nil {
		t.Fatalf("SendStop() failed: %v", err)
	}
	return r.RunID()
}
