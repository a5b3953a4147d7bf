// Package control holds the vehicle control state and the per-frame dispatch
// that updates it from detected hands.
package control

import (
	"github.com/ayusman/handpilot/internal/detector"
	"github.com/ayusman/handpilot/internal/gesture"
	"github.com/ayusman/handpilot/internal/steering"
)

// State is the control output carried across frames. A field changes only in
// frames where the hand that drives it is visible.
type State struct {
	Angle int
	Drive gesture.DrivingState
}

// NewState returns the startup state: wheels straight, stopped.
func NewState() State {
	return State{
		Angle: steering.Straight,
		Drive: gesture.Stop,
	}
}

// Record returns the wire form of the state.
func (s State) Record() Record {
	return Record{State: string(s.Drive), Angle: s.Angle}
}

// Dispatch routes each hand to the computation its handedness drives: the
// right hand steers, the left hand selects STOP or GO. Hands are applied in
// order, so a repeated label means the last one wins. width and height are the
// frame size in pixels. It reports whether any hand was applied; with no
// hands st is left untouched.
func Dispatch(st *State, hands []detector.HandLandmarks, width, height int) bool {
	observed := false
	for i := range hands {
		hand := &hands[i]
		switch hand.Handedness {
		case detector.Right:
			st.Angle = steering.FromHand(hand, width, height)
			observed = true
		case detector.Left:
			st.Drive = gesture.Classify(hand)
			observed = true
		}
	}
	return observed
}
