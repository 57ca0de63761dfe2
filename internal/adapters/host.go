package adapters

import (
	"context"
	"sync"
)

// Host request events.
const (
	HostSaveRequested = "save-requested"
	HostLoadRequested = "load-requested"
)

type hostSub struct {
	id uint64
	fn HostHandler
}

// HostBridge lets the embedding host ask the builder to save or load a kit.
type HostBridge struct {
	mu       sync.Mutex
	handlers map[string][]hostSub
	nextID   uint64
}

// NewHostBridge creates an empty bridge.
func NewHostBridge() *HostBridge {
	return &HostBridge{handlers: make(map[string][]hostSub)}
}

// On registers handler for event.
func (h *HostBridge) On(event string, handler HostHandler) (unsubscribe func()) {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.handlers[event] = append(h.handlers[event], hostSub{id: id, fn: handler})
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			subs := h.handlers[event]
			for i, s := range subs {
				if s.id == id {
					h.handlers[event] = append(subs[:i:i], subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Request delivers event to every handler and reports how many ran.
func (h *HostBridge) Request(ctx context.Context, event, kitID string) int {
	h.mu.Lock()
	subs := append([]hostSub(nil), h.handlers[event]...)
	h.mu.Unlock()

	for _, s := range subs {
		s.fn(ctx, kitID)
	}
	return len(subs)
}
