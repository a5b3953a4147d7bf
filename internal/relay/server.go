package relay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"
)

// writeTimeout bounds a single line write to a subscriber.
const writeTimeout = 5 * time.Second

// Server streams hub records to TCP clients, one JSON object per line.
type Server struct {
	hub      *Hub
	listener net.Listener
	wg       sync.WaitGroup
}

// Listen binds addr and returns a Server ready to Serve.
func Listen(addr string, hub *Hub) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return &Server{hub: hub, listener: ln}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Port returns the bound TCP port.
func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Serve accepts connections until ctx is cancelled, then waits for the
// connection handlers to finish.
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		s.listener.Close()
	})
	defer stop()

	log.Printf("Relay listening on %s", s.listener.Addr())

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			log.Printf("Failed to accept connection: %v", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(ctx, conn)
		}()
	}
}

// Close stops accepting connections.
func (s *Server) Close() error {
	return s.listener.Close()
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	peer := conn.RemoteAddr()
	log.Printf("Client connected: %s", peer)

	sub := s.hub.Subscribe(DefaultBuffer)
	defer s.hub.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-sub.C:
			if !ok {
				return
			}

			data, err := rec.Marshal()
			if err != nil {
				log.Printf("Failed to encode record: %v", err)
				continue
			}

			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if _, err := conn.Write(append(data, '\n')); err != nil {
				log.Printf("Client %s disconnected: %v", peer, err)
				return
			}
		}
	}
}
