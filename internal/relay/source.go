package relay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ayusman/handpilot/internal/control"
)

// Source runs the tracking command and reads its control stream.
type Source struct {
	// Command is the program and its arguments.
	Command []string
	// Stderr receives the command's diagnostics. Defaults to os.Stderr.
	Stderr io.Writer
}

// NewSource creates a Source for command.
func NewSource(command []string) *Source {
	return &Source{Command: command, Stderr: os.Stderr}
}

// String returns the command line.
func (s *Source) String() string {
	return strings.Join(s.Command, " ")
}

// Run starts the command and calls fn for every valid record it prints.
// It returns when the command exits or ctx is cancelled.
func (s *Source) Run(ctx context.Context, fn func(control.Record)) error {
	if len(s.Command) == 0 {
		return errors.New("empty source command")
	}

	// stop ends the command early when its output can no longer be read
	cmdCtx, stop := context.WithCancel(ctx)
	defer stop()

	cmd := exec.CommandContext(cmdCtx, s.Command[0], s.Command[1:]...)
	cmd.Stderr = s.Stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = 2 * time.Second

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start source: %w", err)
	}
	log.Printf("Source started: %s (pid %d)", s, cmd.Process.Pid)

	readErr := ReadRecords(stdout, fn)
	if readErr != nil {
		// nobody drains stdout any more, so a chatty source would block on
		// its next write and never exit
		log.Printf("Stopping source: %v", readErr)
		stop()
	}
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return nil
	}
	if readErr != nil {
		return readErr
	}
	if waitErr != nil {
		return fmt.Errorf("source exited: %w", waitErr)
	}
	return nil
}

// ReadRecords scans r line by line and calls fn for each valid record.
// Invalid lines are logged and skipped.
func ReadRecords(r io.Reader, fn func(control.Record)) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		rec, err := control.ParseRecord(line)
		if err != nil {
			log.Printf("Dropping line %q: %v", line, err)
			continue
		}
		fn(rec)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	return nil
}
