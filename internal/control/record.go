package control

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ayusman/handpilot/internal/gesture"
	"github.com/ayusman/handpilot/internal/steering"
)

// ErrBadRecord is returned when a line is not a valid control record.
var ErrBadRecord = errors.New("bad control record")

// Record is the line-oriented wire format consumed by the relay and vehicles.
// Field names and order are a compatibility contract.
type Record struct {
	State string `json:"state"`
	Angle int    `json:"angle"`
}

// ParseRecord decodes and validates one JSON line.
func ParseRecord(line []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(line, &r); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrBadRecord, err)
	}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Validate checks the state value and that the angle is one the tracker can
// produce: a multiple of steering.Step in [steering.Min, steering.Max].
func (r Record) Validate() error {
	if _, err := gesture.ParseDrivingState(r.State); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRecord, err)
	}
	if !steering.Valid(r.Angle) {
		return fmt.Errorf("%w: angle %d is not a multiple of %d in [%d,%d]",
			ErrBadRecord, r.Angle, steering.Step, steering.Min, steering.Max)
	}
	return nil
}

// Marshal returns the record as a single JSON line without the trailing newline.
func (r Record) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// Emitter writes one record per line and flushes after each one, so a
// downstream reader sees every frame as soon as it is produced.
type Emitter struct {
	mu sync.Mutex
	w  *bufio.Writer
}

// NewEmitter creates an Emitter writing to w.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: bufio.NewWriter(w)}
}

// Emit writes r followed by a newline.
func (e *Emitter) Emit(r Record) error {
	data, err := r.Marshal()
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.w.Write(data); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := e.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return e.w.Flush()
}
