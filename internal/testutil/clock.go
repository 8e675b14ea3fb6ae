package testutil

import "sync"

// FrameClock is a manual animation clock that moves in whole frames.
//
// Now reports frame/fps seconds, so every reading lands exactly on a frame
// boundary. It satisfies engine.Clock.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FrameClock struct {
	mu    sync.Mutex
	fps   int
	frame int
}

// NewFrameClock creates a clock at frame 0. fps must be positive.
func NewFrameClock(fps int) *FrameClock {
	if fps <= 0 {
		panic("testutil: fps must be positive")
	}
	return &FrameClock{fps: fps}
}

// Now returns the current time in seconds.
func (c *FrameClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return float64(c.frame) / float64(c.fps)
}

// Advance moves the clock forward by n frames and returns the new frame.
func (c *FrameClock) Advance(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame += n
	return c.frame
}

// Frame returns the current frame without moving the clock.
func (c *FrameClock) Frame() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}

// Reset moves the clock back to frame 0.
//
// Used for test reuse. Animators reject steps back in time, so reset the
// clock only between runs.
func (c *FrameClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame = 0
}
