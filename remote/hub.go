// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package remote

import (
	"sync"
	"sync/atomic"
)

type subscription struct {
	id   uint64
	path string
	cb   func(Snapshot)

	// mu serializes callbacks for this subscription.
	mu     sync.Mutex
	closed atomic.Bool
}

type hub struct {
	mu   sync.RWMutex
	next uint64
	subs map[uint64]*subscription
}

func newHub() *hub {
	return &hub{subs: make(map[uint64]*subscription)}
}

func (h *hub) add(path string, cb func(Snapshot)) *subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	sub := &subscription{id: h.next, path: path, cb: cb}
	h.subs[sub.id] = sub
	return sub
}

// remove is safe to call from inside the subscription's own callback.
func (h *hub) remove(sub *subscription) {
	sub.closed.Store(true)
	h.mu.Lock()
	delete(h.subs, sub.id)
	h.mu.Unlock()
}

func (h *hub) matching(changed []string) []*subscription {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []*subscription
	for _, sub := range h.subs {
		for _, c := range changed {
			if overlaps(sub.path, c) {
				out = append(out, sub)
				break
			}
		}
	}
	return out
}

func (h *hub) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
