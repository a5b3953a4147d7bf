// Package app runs the hand tracking pipeline that produces the control stream.
package app

import (
	"io"
	"log"

	"gocv.io/x/gocv"

	"github.com/ayusman/handpilot/internal/capture"
	"github.com/ayusman/handpilot/internal/control"
	"github.com/ayusman/handpilot/internal/detector"
)

// Display renders a frame with its overlay. Render returns true when the
// user asked to quit.
type Display interface {
	Render(frame *gocv.Mat, hands []detector.HandLandmarks, st control.State) bool
	Close() error
}

// Config holds configuration options for the application.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	// Display is optional; nil runs headless.
	Display Display
	// Output receives one JSON record per frame with a visible hand.
	Output io.Writer
	// Mirror flips frames horizontally before detection.
	Mirror bool
}

// App owns the control state and drives it one frame at a time.
type App struct {
	camera   capture.Camera
	detector detector.Detector
	display  Display
	emitter  *control.Emitter
	mirror   bool
	state    control.State
	frames   int
	emitted  int
}

// New creates a new App with the startup control state.
func New(config Config) *App {
	return &App{
		camera:   config.Camera,
		detector: config.Detector,
		display:  config.Display,
		emitter:  control.NewEmitter(config.Output),
		mirror:   config.Mirror,
		state:    control.NewState(),
	}
}

// State returns the current control state.
func (a *App) State() control.State {
	return a.state
}

// Stats returns the number of frames processed and records emitted.
func (a *App) Stats() (frames, emitted int) {
	return a.frames, a.emitted
}

// Close releases the camera, the detector and the display.
func (a *App) Close() {
	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	if err := a.detector.Close(); err != nil {
		log.Printf("Error closing detector: %v", err)
	}
	if a.display != nil {
		if err := a.display.Close(); err != nil {
			log.Printf("Error closing display: %v", err)
		}
	}
}
