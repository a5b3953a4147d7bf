// Package discovery lets vehicles find a relay on the local network. The relay
// broadcasts "ECHO_SERVER:<tcp-port>" over UDP and clients listen for it.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"
)

// Prefix starts every announcement.
const Prefix = "ECHO_SERVER:"

// DefaultInterval is how often the beacon announces itself.
const DefaultInterval = 2 * time.Second

// ErrBadAnnouncement is returned for datagrams that are not relay announcements.
var ErrBadAnnouncement = errors.New("bad announcement")

// Server is a discovered relay endpoint.
type Server struct {
	IP   net.IP
	Port int
}

// Addr returns host:port for dialing.
func (s Server) Addr() string {
	return net.JoinHostPort(s.IP.String(), strconv.Itoa(s.Port))
}

// FormatAnnouncement returns the announcement for a relay on tcpPort.
func FormatAnnouncement(tcpPort int) string {
	return Prefix + strconv.Itoa(tcpPort)
}

// ParseAnnouncement extracts the TCP port from an announcement.
func ParseAnnouncement(msg string) (int, error) {
	if !strings.HasPrefix(msg, Prefix) {
		return 0, fmt.Errorf("%w: %q", ErrBadAnnouncement, msg)
	}
	port, err := strconv.Atoi(strings.TrimPrefix(msg, Prefix))
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("%w: invalid port in %q", ErrBadAnnouncement, msg)
	}
	return port, nil
}

// Beacon periodically broadcasts a relay announcement.
type Beacon struct {
	// Target is where datagrams go, normally 255.255.255.255:<discovery-port>.
	Target   *net.UDPAddr
	TCPPort  int
	Interval time.Duration
}

// NewBeacon creates a Beacon broadcasting to the discovery port.
func NewBeacon(discoveryPort, tcpPort int, interval time.Duration) *Beacon {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Beacon{
		Target:   &net.UDPAddr{IP: net.IPv4bcast, Port: discoveryPort},
		TCPPort:  tcpPort,
		Interval: interval,
	}
}

// Run announces immediately and then every Interval until ctx is cancelled.
func (b *Beacon) Run(ctx context.Context) error {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero})
	if err != nil {
		return fmt.Errorf("open beacon socket: %w", err)
	}
	defer conn.Close()

	msg := []byte(FormatAnnouncement(b.TCPPort))

	ticker := time.NewTicker(b.Interval)
	defer ticker.Stop()

	for {
		if _, err := conn.WriteToUDP(msg, b.Target); err != nil {
			log.Printf("Beacon send failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Listen binds the discovery port and waits for the first valid announcement.
// Other datagrams are ignored.
func Listen(ctx context.Context, port int) (Server, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: port})
	if err != nil {
		return Server{}, fmt.Errorf("listen for announcements: %w", err)
	}
	return ListenOn(ctx, conn)
}

// ListenOn waits for an announcement on an already bound socket and closes it.
func ListenOn(ctx context.Context, conn *net.UDPConn) (Server, error) {
	defer conn.Close()

	// unblock the read when ctx ends
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	buf := make([]byte, 128)
	for {
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return Server{}, ctx.Err()
			}
			return Server{}, fmt.Errorf("read announcement: %w", err)
		}

		tcpPort, err := ParseAnnouncement(string(buf[:n]))
		if err != nil {
			log.Printf("Ignoring datagram from %s: %v", src, err)
			continue
		}

		log.Printf("Discovered relay at %s on port %d", src.IP, tcpPort)
		return Server{IP: src.IP, Port: tcpPort}, nil
	}
}
