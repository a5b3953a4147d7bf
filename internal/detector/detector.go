package detector

import "gocv.io/x/gocv"

// Detector finds hands in a frame. Detect returns an empty slice when there
// are none; an error means the frame could not be analysed at all.
type Detector interface {
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)
	Close() error
}

// Config holds the detection thresholds and where to find the service.
type Config struct {
	// MaxHands caps how many hands are reported per frame.
	MaxHands int
	// MinConfidence and MinTrackingConf are in [0,1].
	MinConfidence   float64
	MinTrackingConf float64

	// Script and Python override the service script and interpreter
	// locations. Empty means search the usual places.
	Script string
	Python string
}

// DefaultConfig returns the thresholds the controller was tuned with: one
// hand, 0.7 detection and 0.5 tracking confidence.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.7,
		MinTrackingConf: 0.5,
	}
}
