package session

import "sync"

// Latest remembers the most recently opened push handle.
//
// It backs the sidecar compatibility fallback: a sidecar message that carries no
// resolvable identifier is routed to whatever handle was opened last. Under
// concurrent clients this can deliver client A's message to client B's stream.
// Only the push+sidecar dispatcher may consult it.
type Latest struct {
	mux    sync.RWMutex
	handle Handle
}

// Set records handle as the most recent one.
func (l *Latest) Set(handle Handle) {
	l.mux.Lock()
	l.handle = handle
	l.mux.Unlock()
}

// Get returns the most recent handle unless it has been closed.
func (l *Latest) Get() (Handle, bool) {
	l.mux.RLock()
	defer l.mux.RUnlock()
	if l.handle == nil || l.handle.Session().IsClosed() {
		return nil, false
	}
	return l.handle, true
}

// ClearIf empties the slot if it still holds handle.
func (l *Latest) ClearIf(handle Handle) bool {
	l.mux.Lock()
	defer l.mux.Unlock()
	if l.handle != handle {
		return false
	}
	l.handle = nil
	return true
}
