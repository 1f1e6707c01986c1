package backend

import (
	"errors"

	"github.com/gogpu/exttex"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")

	// ErrTextureDeleted is returned when writing to a deleted texture.
	ErrTextureDeleted = errors.New("backend: texture deleted")

	// ErrDataSize is returned when uploaded pixel data does not match the
	// texture or region size.
	ErrDataSize = errors.New("backend: pixel data size mismatch")
)

// Backend allocates texture slots for external textures in one graphics
// context. It abstracts the graphics API so the same ExternalTexture can be
// painted through the CPU software backend or a GPU device.
//
// Backends are registered via Register() and selected via Get() or Default().
type Backend interface {
	// Name returns the backend identifier (e.g., "software", "native").
	Name() string

	// Init initializes the backend.
	// This must be called before any slot is allocated.
	Init() error

	// Close releases every slot and all backend resources.
	// The backend should not be used after Close is called.
	Close()

	exttex.SlotAllocator
}
