package ir

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
)

// Domain prefixes for digests. The version suffix allows the algorithm to
// change without silently comparing incompatible digests.
const (
	DomainFrame = "animdiff/frame/v1"
	DomainRun   = "animdiff/run/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FrameDigest identifies one merged frame by index and canonical content.
func FrameDigest(index int, delta Object) (string, error) {
	canonical, err := MarshalCanonical(delta)
	if err != nil {
		return "", err
	}
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], uint64(index))
	return hashWithDomain(DomainFrame, append(idx[:], canonical...)), nil
}

// RunDigest accumulates a digest over an ordered frame stream.
// Replay compares the digest of a recording with a fresh compilation.
type RunDigest struct {
	h      hash.Hash
	frames int
}

// NewRunDigest creates an empty run digest.
func NewRunDigest() *RunDigest {
	h := sha256.New()
	h.Write([]byte(DomainRun))
	h.Write([]byte{0x00})
	return &RunDigest{h: h}
}

// Add feeds the next frame. Frames must be added in emission order.
func (d *RunDigest) Add(index int, delta Object) error {
	canonical, err := MarshalCanonical(delta)
	if err != nil {
		return err
	}
	var hdr [16]byte
	binary.BigEndian.PutUint64(hdr[:8], uint64(index))
	binary.BigEndian.PutUint64(hdr[8:], uint64(len(canonical)))
	d.h.Write(hdr[:])
	d.h.Write(canonical)
	d.frames++
	return nil
}

// Frames returns the number of frames added.
func (d *RunDigest) Frames() int {
	return d.frames
}

// Sum returns the hex digest of all frames added so far.
func (d *RunDigest) Sum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}
