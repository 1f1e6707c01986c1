package backend

import (
	"fmt"
	"slices"

	"github.com/gogpu/exttex"
	"github.com/gogpu/gpucontext"
)

// Backend name constants.
const (
	// BackendSoftware is the name of the in-memory software backend.
	BackendSoftware = "software"
	// BackendNative is the name of the Pure Go GPU backend (gogpu/wgpu HAL).
	BackendNative = "native"
)

// BackendFactory creates a new backend instance.
type BackendFactory func() Backend

// backends holds registered backends.
// Priority order for backend selection (first available wins):
// Native > Software (Software is the fallback).
var backends = gpucontext.NewRegistry[Backend](
	gpucontext.WithPriority(BackendNative, BackendSoftware),
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory BackendFactory) {
	backends.Register(name, factory)
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	backends.Unregister(name)
}

// Available returns the registered backend names in sorted order.
func Available() []string {
	names := backends.Available()
	slices.Sort(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	return backends.Has(name)
}

// Get returns a backend instance by name.
// Returns nil if the backend is not registered.
func Get(name string) Backend {
	return backends.Get(name)
}

// Default returns the best available backend based on priority.
// Returns nil if no backends are registered.
func Default() Backend {
	return backends.Best()
}

// DefaultName returns the name of the backend Default would return.
func DefaultName() string {
	return backends.BestName()
}

// InitDefault initializes the default backend. If it fails to initialize
// and a software backend is registered, the software backend is used
// instead.
func InitDefault() (Backend, error) {
	b := Default()
	if b == nil {
		return nil, ErrBackendNotAvailable
	}

	err := b.Init()
	if err == nil {
		return b, nil
	}
	if b.Name() == BackendSoftware || !IsRegistered(BackendSoftware) {
		return nil, err
	}

	exttex.Logger().Warn("backend: falling back to software", "backend", b.Name(), "error", err)
	sw := Get(BackendSoftware)
	if err := sw.Init(); err != nil {
		return nil, err
	}
	return sw, nil
}

// InitNamed initializes the backend registered under name. An empty name
// selects the default backend.
func InitNamed(name string) (Backend, error) {
	if name == "" {
		return InitDefault()
	}
	b := Get(name)
	if b == nil {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrBackendNotAvailable, name, Available())
	}
	if err := b.Init(); err != nil {
		return nil, err
	}
	return b, nil
}
