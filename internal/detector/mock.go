package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector returns scripted results instead of running a model. Queued
// results are consumed one per Detect call; after that the fixed hands set
// with SetHands repeat.
type MockDetector struct {
	mu     sync.Mutex
	queue  [][]HandLandmarks
	hands  []HandLandmarks
	err    error
	calls  int
	closed bool
}

// NewMockDetector returns a MockDetector that sees no hands.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the result repeated once the queue is empty.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	m.hands = hands
	m.mu.Unlock()
}

// Enqueue appends per-frame results.
func (m *MockDetector) Enqueue(frames ...[]HandLandmarks) {
	m.mu.Lock()
	m.queue = append(m.queue, frames...)
	m.mu.Unlock()
}

// SetError makes every following Detect fail with err.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close has been called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	switch {
	case m.err != nil:
		return nil, m.err
	case len(m.queue) > 0:
		next := m.queue[0]
		m.queue = m.queue[1:]
		return next, nil
	}
	return m.hands, nil
}

func (m *MockDetector) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// ThumbsUpLandmarks returns a fist with the thumb raised: no finger counts
// as extended.
func ThumbsUpLandmarks(h Handedness) HandLandmarks {
	landmarks := OpenPalmLandmarks(h)
	curl(&landmarks, IndexPIP, IndexDIP, IndexTip)
	curl(&landmarks, MiddlePIP, MiddleDIP, MiddleTip)
	curl(&landmarks, RingPIP, RingDIP, RingTip)
	curl(&landmarks, PinkyPIP, PinkyDIP, PinkyTip)

	landmarks.Points[ThumbIP] = Point3D{X: 0.58, Y: 0.50}
	landmarks.Points[ThumbTip] = Point3D{X: 0.58, Y: 0.35}
	return landmarks
}

// OpenPalmLandmarks returns a preset hand with all fingers extended upward.
func OpenPalmLandmarks(h Handedness) HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: h,
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	landmarks.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	landmarks.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	landmarks.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	landmarks.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	landmarks.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	landmarks.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	landmarks.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	landmarks.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return landmarks
}

// ThreeFingerLandmarks returns an open palm with the pinky curled.
func ThreeFingerLandmarks(h Handedness) HandLandmarks {
	landmarks := OpenPalmLandmarks(h)
	curl(&landmarks, PinkyPIP, PinkyDIP, PinkyTip)
	return landmarks
}

// PeaceSignLandmarks returns a hand with index and middle extended, ring and pinky curled.
func PeaceSignLandmarks(h Handedness) HandLandmarks {
	landmarks := OpenPalmLandmarks(h)
	curl(&landmarks, RingPIP, RingDIP, RingTip)
	curl(&landmarks, PinkyPIP, PinkyDIP, PinkyTip)
	return landmarks
}

// PointingLandmarks returns a hand with only the index finger extended.
func PointingLandmarks(h Handedness) HandLandmarks {
	landmarks := OpenPalmLandmarks(h)
	curl(&landmarks, MiddlePIP, MiddleDIP, MiddleTip)
	curl(&landmarks, RingPIP, RingDIP, RingTip)
	curl(&landmarks, PinkyPIP, PinkyDIP, PinkyTip)
	return landmarks
}

// curl folds a finger so its DIP and tip drop below the PIP joint.
func curl(h *HandLandmarks, pip, dip, tip int) {
	p := h.Points[pip]
	h.Points[dip] = Point3D{X: p.X - 0.02, Y: p.Y + 0.02, Z: p.Z - 0.03}
	h.Points[tip] = Point3D{X: p.X - 0.04, Y: p.Y + 0.05, Z: p.Z - 0.02}
}
