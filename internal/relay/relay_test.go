package relay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ayusman/handpilot/internal/control"
	"github.com/ayusman/handpilot/internal/store"
)

// TestHelperProcess is not a real test. It stands in for the tracker when a
// test runs this binary as the relay source.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("HANDPILOT_HELPER_PROCESS") != "1" {
		return
	}

	delay, _ := time.ParseDuration(os.Getenv("HANDPILOT_HELPER_DELAY"))
	time.Sleep(delay)

	fmt.Fprintln(os.Stderr, "tracker diagnostics")
	if os.Getenv("HANDPILOT_HELPER_FLOOD") == "1" {
		// a line no scanner accepts, then far more than a pipe buffer holds
		fmt.Println(strings.Repeat("x", 100*1024))
		for i := 0; i < 20000; i++ {
			fmt.Println(`{"state":"GO","angle":90}`)
		}
		time.Sleep(time.Minute)
		os.Exit(0)
	}
	for _, line := range strings.Split(os.Getenv("HANDPILOT_HELPER_LINES"), "|") {
		fmt.Println(line)
		time.Sleep(20 * time.Millisecond)
	}
	os.Exit(0)
}

// helperSource returns a Source that prints lines after waiting delay.
func helperSource(t *testing.T, delay time.Duration, lines ...string) *Source {
	t.Helper()
	t.Setenv("HANDPILOT_HELPER_PROCESS", "1")
	t.Setenv("HANDPILOT_HELPER_DELAY", delay.String())
	t.Setenv("HANDPILOT_HELPER_LINES", strings.Join(lines, "|"))

	src := NewSource([]string{os.Args[0], "-test.run=TestHelperProcess"})
	src.Stderr = &strings.Builder{}
	return src
}

func TestReadRecords(t *testing.T) {
	input := strings.Join([]string{
		`{"state":"STOP","angle":90}`,
		`not json`,
		``,
		`{"state":"GO","angle":40}`,
		`{"state":"REVERSE","angle":40}`,
		`{"state":"GO","angle":190}`,
		`{"state":"GO","angle":180}`,
	}, "\n")

	var got []control.Record
	if err := ReadRecords(strings.NewReader(input), func(r control.Record) { got = append(got, r) }); err != nil {
		t.Fatalf("ReadRecords() error = %v", err)
	}

	want := []control.Record{
		{State: "STOP", Angle: 90},
		{State: "GO", Angle: 40},
		{State: "GO", Angle: 180},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReadRecords() mismatch (-want +got):\n%s", diff)
	}
}

func TestSource_Run(t *testing.T) {
	src := helperSource(t, 0, `{"state":"GO","angle":10}`, `garbage`, `{"state":"STOP","angle":20}`)

	var got []control.Record
	if err := src.Run(context.Background(), func(r control.Record) { got = append(got, r) }); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []control.Record{{State: "GO", Angle: 10}, {State: "STOP", Angle: 20}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Run() mismatch (-want +got):\n%s", diff)
	}
	if stderr := src.Stderr.(*strings.Builder).String(); !strings.Contains(stderr, "tracker diagnostics") {
		t.Errorf("stderr = %q, want passthrough of diagnostics", stderr)
	}
}

func TestSource_Run_OversizedLine(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	src := helperSource(t, 0)
	t.Setenv("HANDPILOT_HELPER_FLOOD", "1")

	done := make(chan error, 1)
	go func() {
		done <- src.Run(context.Background(), func(control.Record) {})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, bufio.ErrTooLong) {
			t.Errorf("Run() error = %v, want %v", err, bufio.ErrTooLong)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return after the source stream broke")
	}
}

func TestSource_EmptyCommand(t *testing.T) {
	if err := NewSource(nil).Run(context.Background(), func(control.Record) {}); err == nil {
		t.Error("Run() with empty command should fail")
	}
}

func TestSource_MissingBinary(t *testing.T) {
	src := NewSource([]string{filepath.Join(t.TempDir(), "no-such-tracker")})
	if err := src.Run(context.Background(), func(control.Record) {}); err == nil {
		t.Error("Run() with missing binary should fail")
	}
}

func TestSource_String(t *testing.T) {
	src := NewSource([]string{"handpilot", "track", "--headless"})
	if got := src.String(); got != "handpilot track --headless" {
		t.Errorf("String() = %q", got)
	}
}

// readLines reads n lines from conn.
func readLines(t *testing.T, conn net.Conn, n int) []string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	scanner := bufio.NewScanner(conn)
	var lines []string
	for len(lines) < n && scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) < n {
		t.Fatalf("read %d lines, want %d (err: %v)", len(lines), n, scanner.Err())
	}
	return lines
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServer_StreamsRecords(t *testing.T) {
	hub := NewHub()
	srv, err := Listen("127.0.0.1:0", hub)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	waitFor(t, func() bool { return hub.Subscribers() == 1 })

	hub.Publish(control.Record{State: "STOP", Angle: 90})
	hub.Publish(control.Record{State: "GO", Angle: 0})

	want := []string{`{"state":"STOP","angle":90}`, `{"state":"GO","angle":0}`}
	if diff := cmp.Diff(want, readLines(t, conn, 2)); diff != "" {
		t.Errorf("stream mismatch (-want +got):\n%s", diff)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Serve() error = %v", err)
	}
}

func TestRelay_Run(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "relay.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer st.Close()

	lines := []string{
		`{"state":"STOP","angle":90}`,
		`{"state":"GO","angle":90}`,
		`{"state":"GO","angle":60}`,
	}
	// the delay gives the test client time to connect first
	src := helperSource(t, 500*time.Millisecond, lines...)

	r, err := New(Config{Host: "127.0.0.1", Source: src, Store: st})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background()) }()

	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(r.Port())))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if diff := cmp.Diff(lines, readLines(t, conn, len(lines))); diff != "" {
		t.Errorf("stream mismatch (-want +got):\n%s", diff)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return after the source exited")
	}

	latest, ok := r.Hub().Latest()
	if !ok || latest != (control.Record{State: "GO", Angle: 60}) {
		t.Errorf("Latest() = %+v, %v", latest, ok)
	}

	sessions, err := st.Sessions().List()
	if err != nil || len(sessions) != 1 {
		t.Fatalf("List() = %d sessions, err %v; want 1", len(sessions), err)
	}
	if sessions[0].EndedAt == nil {
		t.Error("session should be ended after the source exits")
	}

	n, _ := st.Events().Count(sessions[0].ID)
	if n != len(lines) {
		t.Errorf("recorded %d events, want %d", n, len(lines))
	}
}

func TestNew_NoSource(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New() without a source should fail")
	}
}
