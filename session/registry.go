package session

import (
	"time"

	"github.com/viant/mcpbroker/internal/collection"
)

// Registry maps session identifiers to live handles. It never closes handles;
// closing is up to the caller, followed by RemoveIfMatches.
type Registry struct {
	entries *collection.SyncMap[string, Handle]
}

// Register adds handle under id, refusing to overwrite a live entry.
func (r *Registry) Register(id string, handle Handle) error {
	if id == "" {
		return ErrUnbound
	}
	if _, loaded := r.entries.PutIfAbsent(id, handle); loaded {
		return ErrDuplicate
	}
	return nil
}

// Lookup returns the live handle for id; closed handles are reported as not found.
func (r *Registry) Lookup(id string) (Handle, bool) {
	if id == "" {
		return nil, false
	}
	handle, ok := r.entries.Get(id)
	if !ok || handle.Session().IsClosed() {
		return nil, false
	}
	return handle, true
}

// Remove deletes id; removing an absent id is a no-op.
func (r *Registry) Remove(id string) {
	r.entries.Delete(id)
}

// RemoveIfMatches deletes id only when it still points at handle.
func (r *Registry) RemoveIfMatches(id string, handle Handle) bool {
	return r.entries.DeleteIf(id, func(current Handle) bool {
		return current == handle
	})
}

// Len returns number of registered entries.
func (r *Registry) Len() int {
	return r.entries.Len()
}

// Handles returns a snapshot of registered handles.
func (r *Registry) Handles() []Handle {
	return r.entries.Values()
}

// Idle returns handles whose last activity is older than cutoff.
func (r *Registry) Idle(cutoff time.Time) []Handle {
	var ret []Handle
	r.entries.Range(func(_ string, handle Handle) bool {
		if handle.Session().LastActivity().Before(cutoff) {
			ret = append(ret, handle)
		}
		return true
	})
	return ret
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: collection.NewSyncMap[string, Handle]()}
}
