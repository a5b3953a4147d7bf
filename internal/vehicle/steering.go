// Package vehicle drives actuators from control records.
package vehicle

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/ayusman/handpilot/internal/control"
	"github.com/ayusman/handpilot/internal/steering"
)

// ServoBaudRate is the Feetech STS bus speed.
const ServoBaudRate = 1_000_000

// ServoRange is the calibrated raw position range of the steering servo.
// Min corresponds to 0 degrees and Max to 180.
type ServoRange struct {
	Min int
	Max int
}

// Raw maps a steering angle onto the servo's raw position range.
func (r ServoRange) Raw(angle int) int {
	angle = max(steering.Min, min(steering.Max, angle))
	return r.Min + angle*(r.Max-r.Min)/(steering.Max-steering.Min)
}

// servoGroup is the subset of feetech.ServoGroup used for steering.
type servoGroup interface {
	EnableAll(ctx context.Context) error
	DisableAll(ctx context.Context) error
	SetPositions(ctx context.Context, positions feetech.PositionMap) error
}

// Steering turns the front wheels with a single Feetech servo. Drive state
// does not affect it; the wheels hold the last commanded angle.
type Steering struct {
	group servoGroup
	bus   io.Closer
	id    int
	rng   ServoRange
	last  int
}

// OpenSteering opens the servo bus on port and enables torque.
func OpenSteering(ctx context.Context, port string, id int, rng ServoRange) (*Steering, error) {
	if rng.Min >= rng.Max {
		return nil, fmt.Errorf("invalid servo range %d..%d", rng.Min, rng.Max)
	}

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: ServoBaudRate,
		Protocol: feetech.ProtocolSTS,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	s := newSteering(feetech.NewServoGroupByIDs(bus, id), bus, id, rng)
	if err := s.group.EnableAll(ctx); err != nil {
		bus.Close()
		return nil, fmt.Errorf("enable torque: %w", err)
	}

	log.Printf("Steering servo %d ready on %s", id, port)
	return s, nil
}

func newSteering(group servoGroup, bus io.Closer, id int, rng ServoRange) *Steering {
	return &Steering{group: group, bus: bus, id: id, rng: rng, last: -1}
}

// Apply moves the servo to rec's angle. Repeated angles are not resent.
func (s *Steering) Apply(ctx context.Context, rec control.Record) error {
	if rec.Angle == s.last {
		return nil
	}

	raw := s.rng.Raw(rec.Angle)
	if err := s.group.SetPositions(ctx, feetech.PositionMap{s.id: raw}); err != nil {
		return fmt.Errorf("write position: %w", err)
	}
	s.last = rec.Angle
	return nil
}

// Close disables torque and closes the bus.
func (s *Steering) Close(ctx context.Context) error {
	if err := s.group.DisableAll(ctx); err != nil {
		log.Printf("Failed to disable torque: %v", err)
	}
	return s.bus.Close()
}
