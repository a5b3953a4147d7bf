// Package capture reads video frames from a camera, file or stream through
// GoCV.
package capture

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"

	"gocv.io/x/gocv"
)

// Default capture settings.
const (
	DefaultFPS    = 30
	DefaultWidth  = 640
	DefaultHeight = 480
)

// maxEmptyReads is how many empty frames a live device may return, while it
// warms up, before the stream counts as ended.
const maxEmptyReads = 10

var (
	// ErrCameraNotOpen is returned when reading from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrEndOfStream is returned when the source has no more frames.
	ErrEndOfStream = errors.New("end of stream")
)

// Camera is a source of frames. ReadFrame blocks until a frame is available
// and hands ownership of it to the caller.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Config selects the capture source and its requested format.
type Config struct {
	// Source is a device index ("0") or a video file path or URL.
	Source string
	Width  int
	Height int
	FPS    int
}

// DefaultConfig returns a Config for the first camera at 640x480.
func DefaultConfig() Config {
	return Config{
		Source: "0",
		Width:  DefaultWidth,
		Height: DefaultHeight,
		FPS:    DefaultFPS,
	}
}

// videoCamera wraps a gocv.VideoCapture.
type videoCamera struct {
	config Config
	mu     sync.Mutex
	vc     *gocv.VideoCapture
	fps    int
}

// NewCamera creates a Camera for config. Zero fields fall back to
// DefaultConfig.
func NewCamera(config Config) Camera {
	def := DefaultConfig()
	if config.Source == "" {
		config.Source = def.Source
	}
	if config.Width <= 0 {
		config.Width = def.Width
	}
	if config.Height <= 0 {
		config.Height = def.Height
	}
	if config.FPS <= 0 {
		config.FPS = def.FPS
	}
	return &videoCamera{config: config, fps: config.FPS}
}

// target returns what gocv expects: an int for a device index, the string
// itself for files and URLs.
func (c *videoCamera) target() any {
	if id, err := strconv.Atoi(c.config.Source); err == nil {
		return id
	}
	return c.config.Source
}

// live reports whether the source is a device rather than a file or URL.
func (c *videoCamera) live() bool {
	_, ok := c.target().(int)
	return ok
}

// Open opens the source and requests the configured format. Devices may
// pick another resolution; the one granted is logged.
func (c *videoCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vc != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(c.target())
	if err != nil {
		return fmt.Errorf("open capture %q: %w", c.config.Source, err)
	}
	vc.Set(gocv.VideoCaptureFrameWidth, float64(c.config.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(c.config.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(c.fps))

	log.Printf("Capturing %s at %.0fx%.0f", c.config.Source,
		vc.Get(gocv.VideoCaptureFrameWidth), vc.Get(gocv.VideoCaptureFrameHeight))

	c.vc = vc
	return nil
}

func (c *videoCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vc == nil {
		return nil
	}
	err := c.vc.Close()
	c.vc = nil
	return err
}

// ReadFrame returns the next frame. A file or URL ends at its first empty
// read; a device gets maxEmptyReads attempts.
func (c *videoCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vc == nil {
		return nil, ErrCameraNotOpen
	}

	attempts := 1
	if c.live() {
		attempts = maxEmptyReads
	}

	mat := gocv.NewMat()
	for i := 0; i < attempts; i++ {
		if c.vc.Read(&mat) && !mat.Empty() {
			return &mat, nil
		}
	}
	mat.Close()
	return nil, ErrEndOfStream
}

// SetFPS changes the requested frame rate. Values <= 0 are ignored.
func (c *videoCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps
	if c.vc != nil {
		c.vc.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (c *videoCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *videoCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vc != nil
}

// Mirror flips a frame horizontally in place, giving the selfie view the
// steering geometry assumes.
func Mirror(frame *gocv.Mat) {
	gocv.Flip(*frame, frame, 1)
}
