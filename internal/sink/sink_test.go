package sink

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/animdiff/internal/ir"
)

func intp(n int) *int { return &n }

func frame(i int, node string, kv ...any) Frame {
	delta := ir.Object{}
	if node != "" {
		obj := ir.Object{}
		for j := 0; j < len(kv); j += 2 {
			v, err := ir.FromGo(kv[j+1])
			if err != nil {
				panic(err)
			}
			obj[kv[j].(string)] = v
		}
		delta[node] = obj
	}
	return Frame{Index: i, Delta: delta}
}

func TestSequence(t *testing.T) {
	var s Sequence
	assert.ErrorIs(t, s.Frame(1), ErrNotStarted)
	assert.ErrorIs(t, s.Stop(), ErrNotStarted)

	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.Start(), ErrAlreadyStarted)

	assert.ErrorIs(t, s.Frame(2), ErrOutOfOrder)
	require.NoError(t, s.Frame(1))
	require.NoError(t, s.Frame(2))
	assert.ErrorIs(t, s.Frame(2), ErrOutOfOrder)
	assert.Equal(t, 2, s.Last())

	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Frame(3), ErrStopped)
	assert.ErrorIs(t, s.Stop(), ErrStopped)
	assert.ErrorIs(t, s.Start(), ErrStopped)
}

func TestMemory_ClonesDeltas(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.SendStart(ctx, Header{Name: "demo", FPS: 10}))

	f := frame(1, "car", "x", 1)
	require.NoError(t, m.SendFrame(ctx, f))
	f.Delta["car"].(ir.Object)["x"] = ir.Int(99)

	require.NoError(t, m.SendStop(ctx))
	assert.True(t, m.Stopped)
	assert.Equal(t, "demo", m.Header.Name)
	require.Len(t, m.Deltas(), 1)
	assert.Equal(t, ir.Int(1), m.Deltas()[0]["car"].(ir.Object)["x"])
}

func TestJSON_WritesDocument(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	j := NewJSON(&buf)

	require.NoError(t, j.SendStart(ctx, Header{Name: "demo", FPS: 2, Width: intp(640), StartX: intp(0), RunID: "ignored"}))
	require.NoError(t, j.SendFrame(ctx, frame(1, "car", "y", 2, "x", 1)))
	require.NoError(t, j.SendFrame(ctx, frame(2, "")))
	require.NoError(t, j.SendFrame(ctx, frame(3, "car", "visibility", false)))
	require.NoError(t, j.SendStop(ctx))

	want := `{"name":"demo","fps":2,"width":640,"startX":0,"frames":[{"car":{"x":1,"y":2}},{},{"car":{"visibility":false}}]}` + "\n"
	assert.Equal(t, want, buf.String())
}

func TestJSON_EmptyRun(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	j := NewJSON(&buf)
	require.NoError(t, j.SendStart(ctx, Header{Name: "empty", FPS: 1}))
	require.NoError(t, j.SendStop(ctx))
	assert.Equal(t, `{"name":"empty","fps":1,"frames":[]}`+"\n", buf.String())
}

func TestJSON_RejectsGaps(t *testing.T) {
	ctx := context.Background()
	j := NewJSON(&bytes.Buffer{})
	require.NoError(t, j.SendStart(ctx, Header{Name: "demo", FPS: 1}))
	assert.ErrorIs(t, j.SendFrame(ctx, frame(2, "")), ErrOutOfOrder)
}

type failingSink struct{ Memory }

var errBoom = errors.New("boom")

func (f *failingSink) SendFrame(context.Context, Frame) error { return errBoom }

func TestTee(t *testing.T) {
	ctx := context.Background()
	a, b := NewMemory(), NewMemory()
	tee := Tee{a, b}

	require.NoError(t, tee.SendStart(ctx, Header{Name: "t", FPS: 1}))
	require.NoError(t, tee.SendFrame(ctx, frame(1, "n", "x", 1)))
	require.NoError(t, tee.SendStop(ctx))
	assert.Equal(t, a.Frames, b.Frames)
	assert.True(t, b.Stopped)

	bad := &failingSink{}
	good := NewMemory()
	tee = Tee{bad, good}
	require.NoError(t, tee.SendStart(ctx, Header{}))
	err := tee.SendFrame(ctx, frame(1, ""))
	assert.ErrorIs(t, err, errBoom)
	assert.Len(t, good.Frames, 1)
}
