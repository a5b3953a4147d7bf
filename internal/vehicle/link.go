package vehicle

import (
	"context"
	"fmt"
	"io"

	"go.bug.st/serial"

	"github.com/ayusman/handpilot/internal/control"
)

// DefaultLinkBaud is the default microcontroller link speed.
const DefaultLinkBaud = 115200

// SerialLink forwards records as JSON lines to a microcontroller.
type SerialLink struct {
	port    io.Closer
	emitter *control.Emitter
}

// OpenSerialLink opens the serial device at path.
func OpenSerialLink(path string, baud int) (*SerialLink, error) {
	if baud <= 0 {
		baud = DefaultLinkBaud
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}

	return NewLink(port), nil
}

// NewLink creates a SerialLink over an already open port.
func NewLink(port io.WriteCloser) *SerialLink {
	return &SerialLink{port: port, emitter: control.NewEmitter(port)}
}

// Apply writes rec followed by a newline.
func (l *SerialLink) Apply(_ context.Context, rec control.Record) error {
	return l.emitter.Emit(rec)
}

// Close closes the port.
func (l *SerialLink) Close() error {
	return l.port.Close()
}
