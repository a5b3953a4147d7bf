package plugin

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ayusman/handpilot/internal/control"
)

// DefaultTimeout bounds a single plugin run.
const DefaultTimeout = 2 * time.Second

// maxPending caps the events queued for one plugin. Events past the cap are
// dropped.
const maxPending = 32

// Hook fires plugins on drive state events. Plugins run in the background
// so a slow accessory never delays steering. Each plugin sees its events
// one at a time, in the order they happened.
type Hook struct {
	manager  *Manager
	executor *Executor
	mu       sync.Mutex
	previous string
	started  bool
	queues   map[string]*queue
	wg       sync.WaitGroup
}

// queue holds the events waiting for one plugin. running is set while a
// worker goroutine is draining it.
type queue struct {
	plugin  *Plugin
	pending []job
	running bool
}

type job struct {
	ctx context.Context
	req *Request
}

// NewHook creates a Hook over the plugins known to manager.
func NewHook(manager *Manager, executor *Executor) *Hook {
	return &Hook{
		manager:  manager,
		executor: executor,
		queues:   make(map[string]*queue),
	}
}

// Apply compares rec with the previous record and fires the matching events.
func (h *Hook) Apply(ctx context.Context, rec control.Record) error {
	h.mu.Lock()
	var events []*Request
	if !h.started {
		h.started = true
		events = append(events, &Request{Event: EventConnected, State: rec.State, Angle: rec.Angle})
	} else if rec.State != h.previous {
		events = append(events, &Request{
			Event:    EventStateChanged,
			State:    rec.State,
			Previous: h.previous,
			Angle:    rec.Angle,
		})
	}
	h.previous = rec.State
	h.mu.Unlock()

	for _, req := range events {
		for _, p := range h.manager.Subscribers(req.Event) {
			h.enqueue(ctx, p, req)
		}
	}
	return nil
}

// enqueue adds req to the plugin's queue and starts a worker if none is
// draining it. It never blocks.
func (h *Hook) enqueue(ctx context.Context, p *Plugin, req *Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	q, ok := h.queues[p.Manifest.Name]
	if !ok {
		q = &queue{plugin: p}
		h.queues[p.Manifest.Name] = q
	}
	if len(q.pending) >= maxPending {
		log.Printf("Plugin %s is behind, dropping %s event", p.Manifest.Name, req.Event)
		return
	}

	h.wg.Add(1)
	q.pending = append(q.pending, job{ctx: ctx, req: req})
	if !q.running {
		q.running = true
		go h.drain(q)
	}
}

// drain runs the queued events in order and exits once the queue is empty.
func (h *Hook) drain(q *queue) {
	for {
		h.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			h.mu.Unlock()
			return
		}
		next := q.pending[0]
		q.pending = q.pending[1:]
		h.mu.Unlock()

		h.run(next.ctx, q.plugin, next.req)
		h.wg.Done()
	}
}

func (h *Hook) run(ctx context.Context, p *Plugin, req *Request) {
	resp, err := h.executor.Execute(ctx, p, req)
	if err != nil {
		log.Printf("Plugin %s failed on %s: %v", p.Manifest.Name, req.Event, err)
		return
	}
	if !resp.Success {
		log.Printf("Plugin %s reported an error on %s: %s", p.Manifest.Name, req.Event, resp.Error)
	}
}

// Wait blocks until every queued event has been handled.
func (h *Hook) Wait() {
	h.wg.Wait()
}
