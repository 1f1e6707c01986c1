package exttex

import (
	"fmt"
	"slices"
	"sync"
)

// Registry maps texture ids to external textures. It is shared by the
// lifecycle goroutine (Register, Unregister), the producer
// (MarkNewFrameAvailable) and the render goroutine (Get, context events).
type Registry struct {
	mu       sync.RWMutex
	textures map[int64]*ExternalTexture
	closed   bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		textures: make(map[int64]*ExternalTexture),
	}
}

// Register adds t under its id.
func (r *Registry) Register(t *ExternalTexture) error {
	if t == nil {
		return ErrNilTexture
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}
	if _, dup := r.textures[t.id]; dup {
		return fmt.Errorf("%w: %d", ErrDuplicateTexture, t.id)
	}
	r.textures[t.id] = t

	Logger().Info("exttex: texture registered", "id", t.id, "label", t.handle.Label())
	return nil
}

// Unregister removes the texture with the given id and releases its handle.
// It reports whether the id was registered.
func (r *Registry) Unregister(id int64) bool {
	r.mu.Lock()
	t, ok := r.textures[id]
	delete(r.textures, id)
	r.mu.Unlock()

	if !ok {
		return false
	}

	// Released outside the registry lock: Release waits for any in-flight
	// consume or bind on the render goroutine.
	t.OnUnregistered()
	Logger().Info("exttex: texture unregistered", "id", id)
	return true
}

// Get returns the texture registered under id.
func (r *Registry) Get(id int64) (*ExternalTexture, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.textures[id]
	return t, ok
}

// MarkNewFrameAvailable flags a new frame on the texture registered under
// id. It reports whether the id was registered.
func (r *Registry) MarkNewFrameAvailable(id int64) bool {
	t, ok := r.Get(id)
	if !ok {
		return false
	}
	t.MarkNewFrameAvailable()
	return true
}

// OnContextCreated forwards a graphics context creation to every texture.
func (r *Registry) OnContextCreated() {
	for _, t := range r.snapshot() {
		t.OnContextCreated()
	}
}

// OnContextDestroyed forwards a graphics context teardown to every texture.
func (r *Registry) OnContextDestroyed() {
	for _, t := range r.snapshot() {
		t.OnContextDestroyed()
	}
}

// IDs returns the registered ids in ascending order.
func (r *Registry) IDs() []int64 {
	r.mu.RLock()
	ids := make([]int64, 0, len(r.textures))
	for id := range r.textures {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// Len returns the number of registered textures.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.textures)
}

// Close unregisters every texture and rejects further registrations.
// Calling Close more than once is a no-op.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	textures := r.textures
	r.textures = make(map[int64]*ExternalTexture)
	r.mu.Unlock()

	for _, t := range textures {
		t.OnUnregistered()
	}
}

func (r *Registry) snapshot() []*ExternalTexture {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*ExternalTexture, 0, len(r.textures))
	for _, t := range r.textures {
		out = append(out, t)
	}
	return out
}
