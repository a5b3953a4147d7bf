package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ayusman/handpilot/internal/control"
)

// Sink consumes control records as they arrive.
type Sink interface {
	Apply(ctx context.Context, rec control.Record) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, rec control.Record) error

// Apply calls f.
func (f SinkFunc) Apply(ctx context.Context, rec control.Record) error {
	return f(ctx, rec)
}

// PrintSink writes "Received: <json>" for every record.
type PrintSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrintSink creates a PrintSink writing to w.
func NewPrintSink(w io.Writer) *PrintSink {
	return &PrintSink{w: w}
}

// Apply prints rec.
func (p *PrintSink) Apply(_ context.Context, rec control.Record) error {
	data, err := rec.Marshal()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	_, err = fmt.Fprintf(p.w, "Received: %s\n", data)
	return err
}

// MultiSink applies every record to each sink in order. All sinks see the
// record even if an earlier one fails.
type MultiSink []Sink

// Apply forwards rec to every sink and joins their errors.
func (m MultiSink) Apply(ctx context.Context, rec control.Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Apply(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ChanSink hands records to a channel, dropping them when the reader lags.
type ChanSink chan control.Record

// Apply offers rec to the channel without blocking.
func (c ChanSink) Apply(_ context.Context, rec control.Record) error {
	select {
	case c <- rec:
	default:
	}
	return nil
}
