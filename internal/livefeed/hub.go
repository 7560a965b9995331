// Package livefeed pushes outbound stats events to websocket watchers of a group.
package livefeed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrHubClosed is returned once Run has exited.
var ErrHubClosed = errors.New("live feed hub closed")

// Hub fans group events out to the clients watching that group.
type Hub struct {
	logger     *slog.Logger
	register   chan *client
	unregister chan *client
	broadcast  chan Event
	done       chan struct{}

	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
}

// Event is one frame sent to every watcher of GroupID.
type Event struct {
	GroupID string
	Data    []byte
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:     logger,
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Event, 64),
		done:       make(chan struct{}),
		clients:    make(map[string]map[*client]struct{}),
	}
}

// Run owns the client set until ctx is canceled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			group, ok := h.clients[c.groupID]
			if !ok {
				group = make(map[*client]struct{})
				h.clients[c.groupID] = group
			}
			group[c] = struct{}{}
			h.mu.Unlock()
		case c := <-h.unregister:
			h.remove(c)
		case ev := <-h.broadcast:
			h.deliver(ev)
		case <-ctx.Done():
			h.mu.Lock()
			for groupID, group := range h.clients {
				for c := range group {
					close(c.send)
				}
				delete(h.clients, groupID)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Publish queues an event for delivery. It never blocks past ctx.
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	select {
	case h.broadcast <- ev:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) join(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Watchers returns how many clients currently follow groupID.
func (h *Hub) Watchers(groupID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[groupID])
}

func (h *Hub) deliver(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[ev.GroupID] {
		select {
		case c.send <- ev.Data:
		default:
			// Slow watcher: drop it rather than stall the other groups.
			h.logger.Warn("Dropping slow live feed client", "group_id", ev.GroupID)
			h.removeLocked(c)
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	group, ok := h.clients[c.groupID]
	if !ok {
		return
	}
	if _, ok := group[c]; !ok {
		return
	}
	delete(group, c)
	close(c.send)
	if len(group) == 0 {
		delete(h.clients, c.groupID)
	}
}
