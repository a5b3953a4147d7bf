package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gocv.io/x/gocv"

	"github.com/ayusman/handpilot/internal/capture"
	"github.com/ayusman/handpilot/internal/control"
)

// ErrQuit is returned by ProcessFrame when the user pressed ESC.
var ErrQuit = errors.New("quit requested")

// Run is the main tracking loop. Each iteration reads a frame, detects hands,
// updates the control state, renders the preview and emits a record. The loop
// checks ctx only between frames. It returns nil when the capture source ends,
// the user quits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	log.Println("Tracking started")

	for {
		select {
		case <-ctx.Done():
			log.Println("Tracking cancelled")
			return nil
		default:
		}

		frame, err := a.camera.ReadFrame()
		if err != nil {
			// A failed read is the end of the stream, not an error.
			log.Printf("Capture ended: %v", err)
			return nil
		}

		err = a.ProcessFrame(frame)
		frame.Close()

		switch {
		case errors.Is(err, ErrQuit):
			log.Println("Tracking stopped by user")
			return nil
		case err != nil:
			return err
		}
	}
}

// ProcessFrame runs one pipeline step on frame. A detection failure skips the
// frame and leaves the state unchanged. Only emission failures are returned,
// besides ErrQuit.
func (a *App) ProcessFrame(frame *gocv.Mat) error {
	a.frames++

	if a.mirror {
		capture.Mirror(frame)
	}

	hands, err := a.detector.Detect(frame)
	if err != nil {
		log.Printf("Error detecting hands: %v", err)
		hands = nil
	}

	observed := control.Dispatch(&a.state, hands, frame.Cols(), frame.Rows())

	quit := false
	if a.display != nil {
		quit = a.display.Render(frame, hands, a.state)
	}

	if observed {
		if err := a.emitter.Emit(a.state.Record()); err != nil {
			return fmt.Errorf("emit: %w", err)
		}
		a.emitted++
	}

	if quit {
		return ErrQuit
	}
	return nil
}
