package exttex

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

// Slot identifies a texture unit (texture name) in the current graphics
// context. The zero value means "not bound".
type Slot uint32

// NoSlot is the zero Slot.
const NoSlot Slot = 0

// Source is an external, platform-owned image source that a render
// pipeline samples from.
//
// Calling any method after ReleaseAllocation is undefined behavior at the
// source layer. Handle exists to guarantee that never happens, so
// implementations need not guard against it.
type Source interface {
	// AbsorbLatestImage latches the newest produced image into the texture
	// and advances the producer's frame index.
	AbsorbLatestImage()

	// ReleaseAllocation frees the underlying allocation.
	ReleaseAllocation()

	// BindToContextSlot attaches the source to a texture slot of the
	// current graphics context.
	BindToContextSlot(slot Slot)

	// UnbindFromContextSlot detaches the source from its current slot.
	UnbindFromContextSlot()

	// TransformMatrix writes the texture-coordinate transform of the most
	// recently absorbed image into dst (column-major).
	TransformMatrix(dst *mgl32.Mat4)
}

// TextureDesc describes a texture slot to allocate.
type TextureDesc struct {
	// Label is an optional debug label.
	Label string

	// Width and Height are the texture size in pixels.
	Width  int
	Height int

	// Format is the pixel format of the slot.
	Format gputypes.TextureFormat
}

// Validate reports whether the descriptor can be allocated.
func (d TextureDesc) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, d.Width, d.Height)
	}
	return nil
}

// SlotAllocator creates and deletes texture slots in one graphics context.
// It is only used from the render goroutine.
type SlotAllocator interface {
	// CreateTexture allocates a new slot described by desc.
	CreateTexture(desc TextureDesc) (Slot, error)

	// DeleteTexture frees a slot. Unknown slots are ignored.
	DeleteTexture(slot Slot)
}
