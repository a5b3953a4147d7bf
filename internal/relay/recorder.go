package relay

import (
	"context"
	"fmt"
	"log"

	"github.com/ayusman/handpilot/internal/control"
	"github.com/ayusman/handpilot/internal/store"
)

// Recorder appends every hub record to the store under one session.
type Recorder struct {
	store *store.Store
	sub   *Subscription
	// SessionID is set once Start succeeds.
	SessionID string
}

// NewRecorder subscribes to hub on behalf of st.
func NewRecorder(st *store.Store, hub *Hub) *Recorder {
	return &Recorder{store: st, sub: hub.Subscribe(DefaultBuffer)}
}

// Start opens a session for source.
func (r *Recorder) Start(source string) error {
	sess, err := r.store.Sessions().Create(source)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	r.SessionID = sess.ID
	log.Printf("Recording session %s", sess.ID)
	return nil
}

// Run stores records until the subscription closes or ctx is cancelled, then
// ends the session.
func (r *Recorder) Run(ctx context.Context) {
	defer func() {
		if err := r.store.Sessions().End(r.SessionID); err != nil {
			log.Printf("Failed to end session %s: %v", r.SessionID, err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			r.drain()
			return
		case rec, ok := <-r.sub.C:
			if !ok {
				return
			}
			r.append(rec)
		}
	}
}

// drain stores whatever is already queued.
func (r *Recorder) drain() {
	for {
		select {
		case rec, ok := <-r.sub.C:
			if !ok {
				return
			}
			r.append(rec)
		default:
			return
		}
	}
}

func (r *Recorder) append(rec control.Record) {
	if _, err := r.store.Events().Append(r.SessionID, rec); err != nil {
		log.Printf("Failed to record event: %v", err)
	}
}
