package engine

import (
	"math"
	"sync/atomic"
	"time"
)

// Clock supplies the current animation time in seconds. Tick reads it.
type Clock interface {
	Now() float64
}

// SimClock is a settable simulation clock.
// It is safe for concurrent use.
type SimClock struct {
	bits atomic.Uint64
}

// NewSimClock returns a clock at time 0.
func NewSimClock() *SimClock {
	return &SimClock{}
}

// NewSimClockAt returns a clock at time t.
func NewSimClockAt(t float64) *SimClock {
	c := &SimClock{}
	c.Set(t)
	return c
}

// Now returns the current time.
func (c *SimClock) Now() float64 {
	return math.Float64frombits(c.bits.Load())
}

// Set moves the clock to t.
func (c *SimClock) Set(t float64) {
	c.bits.Store(math.Float64bits(t))
}

// Advance moves the clock forward by dt and returns the new time.
func (c *SimClock) Advance(dt float64) float64 {
	for {
		old := c.bits.Load()
		next := math.Float64frombits(old) + dt
		if c.bits.CompareAndSwap(old, math.Float64bits(next)) {
			return next
		}
	}
}

// WallClock reports seconds elapsed since it was created.
type WallClock struct {
	start time.Time
}

// NewWallClock returns a clock starting now.
func NewWallClock() *WallClock {
	return &WallClock{start: time.Now()}
}

// Now returns seconds since creation.
func (c *WallClock) Now() float64 {
	return time.Since(c.start).Seconds()
}
