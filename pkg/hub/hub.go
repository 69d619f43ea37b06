package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
)

const (
	broadcastBuffer  = 256
	subscriberBuffer = 64
)

// Subscription is one receiver attached to a hub. C is closed when the
// subscription ends, either by Unsubscribe or because the receiver fell
// behind.
type Subscription struct {
	C    <-chan Message
	send chan Message
}

// Hub maintains the set of subscribers and broadcasts messages to them
type Hub struct {
	name   string
	logger *slog.Logger

	subs       map[*Subscription]struct{}
	broadcast  chan Message
	register   chan *Subscription
	unregister chan *Subscription
	done       chan struct{}

	mu      sync.RWMutex // guards len(subs) for ClientCount
	running atomic.Bool
	dropped atomic.Int64
}

// New creates a hub. Call Run before subscribing.
func New(name string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		name:       name,
		logger:     logger.With("component", "hub", "hub", name),
		subs:       make(map[*Subscription]struct{}),
		broadcast:  make(chan Message, broadcastBuffer),
		register:   make(chan *Subscription),
		unregister: make(chan *Subscription),
		done:       make(chan struct{}),
	}
}

// Run owns the subscriber set until ctx is cancelled, then closes every
// subscription.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		h.mu.Lock()
		for s := range h.subs {
			close(s.send)
			delete(h.subs, s)
		}
		h.mu.Unlock()
		h.running.Store(false)
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case s := <-h.register:
			h.mu.Lock()
			h.subs[s] = struct{}{}
			count := len(h.subs)
			h.mu.Unlock()
			h.logger.Debug("client connected", "clients", count)

		case s := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.subs[s]; ok {
				delete(h.subs, s)
				close(s.send)
			}
			count := len(h.subs)
			h.mu.Unlock()
			h.logger.Debug("client disconnected", "clients", count)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for s := range h.subs {
				select {
				case s.send <- msg:
				default:
					// Too slow: drop the client rather than stall everyone
					close(s.send)
					delete(h.subs, s)
					h.logger.Warn("dropped slow client")
				}
			}
			h.mu.Unlock()
		}
	}
}

// Subscribe attaches a new receiver. It returns nil once the hub stopped.
func (h *Hub) Subscribe() *Subscription {
	send := make(chan Message, subscriberBuffer)
	s := &Subscription{C: send, send: send}
	select {
	case h.register <- s:
		return s
	case <-h.done:
		return nil
	}
}

// Unsubscribe detaches s. It is safe to call after the hub dropped s.
func (h *Hub) Unsubscribe(s *Subscription) {
	if s == nil {
		return
	}
	select {
	case h.unregister <- s:
	case <-h.done:
	}
}

// Broadcast queues msg for every subscriber. It never blocks; when the hub
// is backed up the message is dropped.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		if h.dropped.Add(1)%100 == 1 {
			h.logger.Warn("broadcast channel full, dropping message", "dropped", h.dropped.Load())
		}
	}
}

// BroadcastJSON encodes and broadcasts v
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(NewJSONMessage(data))
	return nil
}

// BroadcastBinary broadcasts binary data (camera frames)
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(NewBinaryMessage(data))
}

// ClientCount returns the number of subscribers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// IsRunning reports whether Run is active
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}
