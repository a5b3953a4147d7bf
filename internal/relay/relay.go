// Package relay runs the tracking pipeline once and shares its control stream
// with vehicles over TCP, announcing itself on the local network.
package relay

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/ayusman/handpilot/internal/discovery"
	"github.com/ayusman/handpilot/internal/store"
)

// Config holds the relay settings.
type Config struct {
	// Host is the TCP bind host; empty binds all interfaces.
	Host string
	// TCPPort is the stream port; 0 picks a free port.
	TCPPort int
	// DiscoveryPort is where announcements are broadcast; 0 disables the beacon.
	DiscoveryPort  int
	BeaconInterval time.Duration
	Source         *Source
	// Store is optional; when set every record is saved under a new session.
	Store *store.Store
	// Hub is optional; supply one to share the stream with other consumers.
	Hub *Hub
}

// Relay connects a Source to the TCP stream, the beacon and the recorder.
type Relay struct {
	config Config
	hub    *Hub
	server *Server
}

// New binds the TCP port.
func New(config Config) (*Relay, error) {
	if config.Source == nil {
		return nil, fmt.Errorf("relay: no source")
	}

	hub := config.Hub
	if hub == nil {
		hub = NewHub()
	}

	srv, err := Listen(net.JoinHostPort(config.Host, strconv.Itoa(config.TCPPort)), hub)
	if err != nil {
		return nil, err
	}

	return &Relay{config: config, hub: hub, server: srv}, nil
}

// Hub returns the relay's hub.
func (r *Relay) Hub() *Hub {
	return r.hub
}

// Port returns the bound TCP port.
func (r *Relay) Port() int {
	return r.server.Port()
}

// Run starts the source and serves its records until the source exits or ctx
// is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := r.server.Serve(ctx); err != nil {
			log.Printf("TCP server error: %v", err)
		}
	}()

	if r.config.DiscoveryPort > 0 {
		beacon := discovery.NewBeacon(r.config.DiscoveryPort, r.Port(), r.config.BeaconInterval)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := beacon.Run(ctx); err != nil {
				log.Printf("Beacon error: %v", err)
			}
		}()
		log.Printf("Broadcasting on UDP port %d", r.config.DiscoveryPort)
	}

	if r.config.Store != nil {
		rec := NewRecorder(r.config.Store, r.hub)
		if err := rec.Start(r.config.Source.String()); err != nil {
			log.Printf("Recording disabled: %v", err)
			r.hub.Unsubscribe(rec.sub)
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rec.Run(ctx)
			}()
		}
	}

	err := r.config.Source.Run(ctx, r.hub.Publish)
	log.Println("Source finished")

	r.hub.Close()
	cancel()
	wg.Wait()

	return err
}
