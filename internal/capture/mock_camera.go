package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera replays a fixed frame sequence in place of a device.
type MockCamera struct {
	mu     sync.Mutex
	frames []*gocv.Mat
	next   int
	loop   bool
	open   bool
	fps    int
	reads  int
}

// NewMockCamera replays frames in order, starting over when loop is set.
// The frames stay owned by the caller.
func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{frames: frames, loop: loop, fps: DefaultFPS}
}

// BlankFrames returns n black BGR frames of the given size. The caller
// closes them.
func BlankFrames(n, width, height int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
		frames[i] = &m
	}
	return frames
}

// Open rewinds playback to the first frame.
func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = true
	c.next = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	return nil
}

// ReadFrame returns a clone of the next frame, or ErrEndOfStream once a
// non-looping sequence is exhausted.
func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil, ErrCameraNotOpen
	}
	if c.next == len(c.frames) && c.loop {
		c.next = 0
	}
	if c.next >= len(c.frames) {
		return nil, ErrEndOfStream
	}

	frame := c.frames[c.next].Clone()
	c.next++
	c.reads++
	return &frame, nil
}

// SetFPS records fps; playback itself is not paced.
func (c *MockCamera) SetFPS(fps int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fps > 0 {
		c.fps = fps
	}
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Reads returns how many frames have been handed out.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}
