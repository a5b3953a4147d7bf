package discovery

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func TestParseAnnouncement(t *testing.T) {
	tests := []struct {
		msg     string
		want    int
		wantErr bool
	}{
		{msg: "ECHO_SERVER:7878", want: 7878},
		{msg: FormatAnnouncement(9000), want: 9000},
		{msg: "ECHO_SERVER:", wantErr: true},
		{msg: "ECHO_SERVER:abc", wantErr: true},
		{msg: "ECHO_SERVER:70000", wantErr: true},
		{msg: "OTHER:7878", wantErr: true},
		{msg: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			got, err := ParseAnnouncement(tt.msg)
			if tt.wantErr {
				if !errors.Is(err, ErrBadAnnouncement) {
					t.Errorf("ParseAnnouncement(%q) error = %v, want ErrBadAnnouncement", tt.msg, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAnnouncement(%q) error = %v", tt.msg, err)
			}
			if got != tt.want {
				t.Errorf("ParseAnnouncement(%q) = %d, want %d", tt.msg, got, tt.want)
			}
		})
	}
}

func TestServer_Addr(t *testing.T) {
	s := Server{IP: net.IPv4(192, 168, 1, 20), Port: 7878}
	if got := s.Addr(); got != "192.168.1.20:7878" {
		t.Errorf("Addr() = %q", got)
	}
}

// loopbackListener binds an ephemeral loopback UDP socket.
func loopbackListener(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return conn
}

func TestBeaconAndListen(t *testing.T) {
	conn := loopbackListener(t)
	target := conn.LocalAddr().(*net.UDPAddr)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// noise first, then a real beacon aimed at the listener
	noise, err := net.DialUDP("udp4", nil, target)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	noise.Write([]byte("hello"))
	noise.Close()

	beacon := &Beacon{Target: target, TCPPort: 7878, Interval: 50 * time.Millisecond}
	beaconCtx, stopBeacon := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- beacon.Run(beaconCtx) }()

	server, err := ListenOn(ctx, conn)
	stopBeacon()
	if err != nil {
		t.Fatalf("ListenOn() error = %v", err)
	}

	if server.Port != 7878 {
		t.Errorf("Port = %d, want 7878", server.Port)
	}
	if !server.IP.IsLoopback() {
		t.Errorf("IP = %v, want loopback", server.IP)
	}

	if err := <-done; err != nil {
		t.Errorf("Beacon.Run() error = %v", err)
	}
}

func TestListenOn_Cancelled(t *testing.T) {
	conn := loopbackListener(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	if _, err := ListenOn(ctx, conn); !errors.Is(err, context.Canceled) {
		t.Errorf("ListenOn() error = %v, want context.Canceled", err)
	}
}

func TestNewBeacon(t *testing.T) {
	b := NewBeacon(8888, 7878, 0)

	if b.Interval != DefaultInterval {
		t.Errorf("Interval = %v, want %v", b.Interval, DefaultInterval)
	}
	if !b.Target.IP.Equal(net.IPv4bcast) || b.Target.Port != 8888 {
		t.Errorf("Target = %v, want 255.255.255.255:8888", b.Target)
	}
}
