// Package gesture classifies the left hand into a binary driving command.
package gesture

import (
	"fmt"

	"github.com/ayusman/handpilot/internal/detector"
)

// DrivingState is the binary drive command.
type DrivingState string

const (
	// Stop holds the vehicle.
	Stop DrivingState = "STOP"
	// Go drives the vehicle.
	Go DrivingState = "GO"
)

// GoThreshold is the number of extended fingers needed for Go.
const GoThreshold = 3

// fingerJoints pairs each non-thumb fingertip with its PIP joint.
var fingerJoints = [4][2]int{
	{detector.IndexTip, detector.IndexPIP},
	{detector.MiddleTip, detector.MiddlePIP},
	{detector.RingTip, detector.RingPIP},
	{detector.PinkyTip, detector.PinkyPIP},
}

// ParseDrivingState converts a wire value into a DrivingState.
func ParseDrivingState(s string) (DrivingState, error) {
	switch DrivingState(s) {
	case Stop, Go:
		return DrivingState(s), nil
	}
	return "", fmt.Errorf("unknown driving state %q", s)
}

// ExtendedFingers counts the non-thumb fingers whose tip is above the PIP joint.
// Image y grows downward, so above means a smaller y.
func ExtendedFingers(hand *detector.HandLandmarks) int {
	n := 0
	for _, j := range fingerJoints {
		if hand.Points[j[0]].Y < hand.Points[j[1]].Y {
			n++
		}
	}
	return n
}

// Classify returns Go when at least GoThreshold fingers are extended, Stop otherwise.
func Classify(hand *detector.HandLandmarks) DrivingState {
	if ExtendedFingers(hand) < GoThreshold {
		return Stop
	}
	return Go
}
