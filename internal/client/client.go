// Package client subscribes to a relay and applies its control records.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/ayusman/handpilot/internal/control"
	"github.com/ayusman/handpilot/internal/discovery"
)

// DefaultRetryInterval is the wait between connection attempts.
const DefaultRetryInterval = time.Second

// ErrClosed is reported when the relay ends the stream.
var ErrClosed = errors.New("relay closed the connection")

// Status is a connection lifecycle event.
type Status string

const (
	StatusDiscovering  Status = "discovering"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// Config holds the client settings.
type Config struct {
	// Server is host:port of the relay. Empty means discover it.
	Server        string
	DiscoveryPort int
	RetryInterval time.Duration
	Sink          Sink
	// OnStatus, when set, is told about connection changes.
	OnStatus func(Status, string)
}

// Client keeps a connection to the relay alive and feeds its Sink.
type Client struct {
	config Config
	dialer net.Dialer
}

// New creates a Client.
func New(config Config) *Client {
	if config.RetryInterval <= 0 {
		config.RetryInterval = DefaultRetryInterval
	}
	return &Client{config: config, dialer: net.Dialer{Timeout: 5 * time.Second}}
}

// Run connects, streams and reconnects until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	for {
		addr, err := c.resolve(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("Discovery failed: %v", err)
			if !c.wait(ctx) {
				return nil
			}
			continue
		}

		conn, err := c.connect(ctx, addr)
		if err != nil {
			return nil
		}

		err = c.stream(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return nil
		}

		c.status(StatusDisconnected, fmt.Sprint(err))
		log.Printf("Connection to %s lost: %v", addr, err)
		if !c.wait(ctx) {
			return nil
		}
	}
}

func (c *Client) resolve(ctx context.Context) (string, error) {
	if c.config.Server != "" {
		return c.config.Server, nil
	}

	c.status(StatusDiscovering, fmt.Sprintf("udp port %d", c.config.DiscoveryPort))
	log.Printf("Listening for relay announcements on port %d", c.config.DiscoveryPort)

	srv, err := discovery.Listen(ctx, c.config.DiscoveryPort)
	if err != nil {
		return "", err
	}
	return srv.Addr(), nil
}

// connect dials addr until it succeeds. It only fails when ctx ends.
func (c *Client) connect(ctx context.Context, addr string) (net.Conn, error) {
	for {
		c.status(StatusConnecting, addr)

		conn, err := c.dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			c.status(StatusConnected, addr)
			log.Printf("Connected to %s", addr)
			return conn, nil
		}

		log.Printf("Failed to connect to %s: %v", addr, err)
		if !c.wait(ctx) {
			return nil, ctx.Err()
		}
	}
}

// stream reads records until the connection fails. A clean EOF from the
// relay is reported as ErrClosed.
func (c *Client) stream(ctx context.Context, conn net.Conn) error {
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		rec, err := control.ParseRecord(scanner.Bytes())
		if err != nil {
			log.Printf("Ignoring line %q: %v", scanner.Text(), err)
			continue
		}

		if c.config.Sink != nil {
			if err := c.config.Sink.Apply(ctx, rec); err != nil {
				log.Printf("Sink error: %v", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	return ErrClosed
}

func (c *Client) wait(ctx context.Context) bool {
	t := time.NewTimer(c.config.RetryInterval)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Client) status(s Status, detail string) {
	if c.config.OnStatus != nil {
		c.config.OnStatus(s, detail)
	}
}
