// Package steering turns the right hand's wrist-to-fingertip vector into a steering angle.
package steering

import (
	"image"
	"math"

	"github.com/ayusman/handpilot/internal/detector"
)

const (
	// Straight is the angle for driving straight ahead.
	Straight = 90
	// Min and Max bound every angle Estimate returns.
	Min = 0
	Max = 180
	// Step is the quantization step in degrees.
	Step = 10
)

// ToPixel converts a normalized landmark to pixel coordinates, flooring each axis.
func ToPixel(p detector.Point3D, width, height int) image.Point {
	return image.Point{
		X: int(math.Floor(p.X * float64(width))),
		Y: int(math.Floor(p.Y * float64(height))),
	}
}

// Estimate returns the steering angle for a wrist and fingertip in pixel space.
//
// The angle is measured against the vertical axis from the fingertip toward the
// wrist: 0 is pointing up, 90 is sideways, 180 is pointing down. The frame is
// already mirrored, so the horizontal difference is used as is. Readings past
// the horizontal saturate: (270,360] folds to 0 and (180,270] folds to 180.
// The result is floored to a multiple of Step.
func Estimate(wrist, fingertip image.Point) int {
	dx := float64(wrist.X - fingertip.X)
	dy := float64(wrist.Y - fingertip.Y)

	deg := math.Mod(math.Atan2(dx, dy)*180/math.Pi+360, 360)

	switch {
	case deg > 270 && deg <= 360:
		deg = Min
	case deg > 180 && deg <= 270:
		deg = Max
	}

	return int(math.Floor(deg/Step)) * Step
}

// FromHand estimates the angle from a hand's wrist and index fingertip in a
// frame of the given size.
func FromHand(hand *detector.HandLandmarks, width, height int) int {
	wrist := ToPixel(hand.Points[detector.Wrist], width, height)
	tip := ToPixel(hand.Points[detector.IndexTip], width, height)
	return Estimate(wrist, tip)
}

// Valid reports whether angle is one Estimate can produce.
func Valid(angle int) bool {
	return angle >= Min && angle <= Max && angle%Step == 0
}
