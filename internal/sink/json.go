package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/roach88/animdiff/internal/ir"
)

// JSON streams the output document:
//
//	{"name":…,"fps":…,"width":…,"height":…,"startX":…,"startY":…,"frames":[…]}
//
// frames[i] is frame i+1. Deltas are written in canonical form, so equal runs
// produce identical bytes.
type JSON struct {
	w   *bufio.Writer
	seq Sequence
}

// NewJSON returns a sink writing to w. The caller owns w and closes it after
// SendStop.
func NewJSON(w io.Writer) *JSON {
	return &JSON{w: bufio.NewWriter(w)}
}

func (j *JSON) SendStart(_ context.Context, h Header) error {
	if err := j.seq.Start(); err != nil {
		return err
	}
	head, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	// Reopen the header object to stream frames into it.
	head = head[:len(head)-1]
	if _, err := j.w.Write(head); err != nil {
		return err
	}
	_, err = j.w.WriteString(`,"frames":[`)
	return err
}

func (j *JSON) SendFrame(_ context.Context, f Frame) error {
	first := j.seq.Last() == 0
	if err := j.seq.Frame(f.Index); err != nil {
		return err
	}
	data, err := ir.MarshalCanonical(f.Delta)
	if err != nil {
		return fmt.Errorf("encode frame %d: %w", f.Index, err)
	}
	if !first {
		if err := j.w.WriteByte(','); err != nil {
			return err
		}
	}
	_, err = j.w.Write(data)
	return err
}

func (j *JSON) SendStop(context.Context) error {
	if err := j.seq.Stop(); err != nil {
		return err
	}
	if _, err := j.w.WriteString("]}\n"); err != nil {
		return err
	}
	return j.w.Flush()
}
