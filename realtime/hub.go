// Package realtime maintains the live set of board subscribers and fans
// committed mutation events out to them. It holds no persistent state.
package realtime

import "sync"

// Handle is one live subscription to a board. TrySend must never block:
// it reports false when the subscriber can no longer accept events, which
// the dispatcher treats as a signal to prune the handle.
type Handle interface {
	Key() string
	TrySend(msg []byte) bool
	Close()
}

// Hub maps board ids to their live subscriber handles. It is the only
// shared mutable state of the realtime core; all access goes through the
// mutex.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[Handle]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[Handle]struct{})}
}

// Add registers a handle for a board. Adding the same handle twice is a
// no-op.
func (h *Hub) Add(boardID string, handle Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[boardID]
	if !ok {
		room = make(map[Handle]struct{})
		h.rooms[boardID] = room
	}
	room[handle] = struct{}{}
}

// Remove deregisters a handle. Removing a handle that is not present is a
// no-op, so double-disconnect races are safe.
func (h *Hub) Remove(boardID string, handle Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[boardID]
	if !ok {
		return
	}
	delete(room, handle)
	if len(room) == 0 {
		delete(h.rooms, boardID)
	}
}

// Subscribers returns a snapshot of the handles subscribed to a board, so
// delivery iteration is never affected by concurrent membership changes.
// An unknown board yields an empty slice.
func (h *Hub) Subscribers(boardID string) []Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[boardID]
	handles := make([]Handle, 0, len(room))
	for handle := range room {
		handles = append(handles, handle)
	}
	return handles
}
