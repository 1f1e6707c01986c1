package exttex

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// attachment tracks whether an ExternalTexture owns a slot in the current
// graphics context.
type attachment uint8

const (
	attachUninitialized attachment = iota
	attachAttached
	attachDetached
)

func (a attachment) String() string {
	switch a {
	case attachUninitialized:
		return "uninitialized"
	case attachAttached:
		return "attached"
	case attachDetached:
		return "detached"
	default:
		return fmt.Sprintf("attachment(%d)", uint8(a))
	}
}

// ExternalTexture is the render-side view of a Handle registered under an
// id. The compositor paints it every frame; the producer marks new frames
// available from any goroutine; the lifecycle goroutine unregisters it.
//
// Paint and the context callbacks must be called from the render
// goroutine. MarkNewFrameAvailable and OnUnregistered may be called from
// anywhere.
type ExternalTexture struct {
	id     int64
	handle *Handle
	format gputypes.TextureFormat

	newFrame atomic.Bool

	mu        sync.Mutex
	state     attachment
	allocator SlotAllocator
	slot      Slot
	width     int
	height    int
	hasImage  bool
	transform mgl32.Mat4
}

var _ gpucontext.Texture = (*ExternalTexture)(nil)

// NewExternalTexture creates a texture for h under id.
func NewExternalTexture(id int64, h *Handle, opts ...TextureOption) (*ExternalTexture, error) {
	if h == nil {
		return nil, ErrNilHandle
	}

	o := defaultTextureOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &ExternalTexture{
		id:        id,
		handle:    h,
		format:    o.format,
		transform: mgl32.Ident4(),
	}, nil
}

// ID returns the registry id.
func (t *ExternalTexture) ID() int64 { return t.id }

// Handle returns the wrapped handle.
func (t *ExternalTexture) Handle() *Handle { return t.handle }

// Width returns the width of the allocated slot, or 0 when not attached.
func (t *ExternalTexture) Width() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width
}

// Height returns the height of the allocated slot, or 0 when not attached.
func (t *ExternalTexture) Height() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.height
}

// Attached reports whether the texture currently owns a slot.
func (t *ExternalTexture) Attached() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == attachAttached
}

// MarkNewFrameAvailable flags that the producer has a new image. The next
// unfrozen Paint will consume it.
func (t *ExternalTexture) MarkNewFrameAvailable() {
	t.newFrame.Store(true)
}

// Paint draws the latest image into bounds. When freeze is set, the
// previously absorbed image is drawn again even if a new frame is pending.
//
// Paint allocates a slot from pc.Allocator on first use. If the handle has
// been released, Paint frees the slot and the texture stops drawing.
func (t *ExternalTexture) Paint(pc PaintContext, bounds Rect, freeze bool, sampling Sampling) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == attachDetached {
		return nil
	}
	if t.handle.IsReleased() {
		t.detachLocked()
		return nil
	}
	if t.state == attachUninitialized {
		if err := t.initializeLocked(pc.Allocator, bounds); err != nil {
			return err
		}
		if t.state != attachAttached {
			return nil
		}
	}

	// A frozen paint keeps the flag unless it has to update anyway.
	if !t.hasImage || (!freeze && t.newFrame.Load()) {
		t.newFrame.Store(false)
		if err := t.updateLocked(); err != nil {
			return err
		}
	}

	if !t.hasImage {
		return nil
	}
	if pc.Canvas == nil {
		return ErrNoCanvas
	}

	cmd := DrawCommand{
		TextureID:   t.id,
		Slot:        t.slot,
		Bounds:      bounds,
		Placement:   placement(bounds),
		UVTransform: mgl32.Ident4(),
		Sampling:    sampling,
	}
	if !isIdentity(t.transform) {
		cmd.UVTransform = t.transform
		cmd.UseShader = true
	}
	if err := pc.Canvas.DrawExternal(cmd); err != nil {
		return fmt.Errorf("exttex: draw texture %d: %w", t.id, err)
	}
	return nil
}

// initializeLocked allocates a slot and binds the handle to it.
func (t *ExternalTexture) initializeLocked(alloc SlotAllocator, bounds Rect) error {
	if alloc == nil {
		return ErrNoAllocator
	}

	desc := TextureDesc{
		Label:  fmt.Sprintf("external_%d", t.id),
		Width:  int(bounds.Width),
		Height: int(bounds.Height),
		Format: t.format,
	}
	slot, err := alloc.CreateTexture(desc)
	if err != nil {
		return fmt.Errorf("exttex: allocate slot for texture %d: %w", t.id, err)
	}

	if !t.handle.Bind(slot) {
		// Released between the check in Paint and now.
		alloc.DeleteTexture(slot)
		t.state = attachDetached
		return nil
	}

	t.allocator = alloc
	t.slot = slot
	t.width = desc.Width
	t.height = desc.Height
	t.state = attachAttached

	Logger().Debug("exttex: texture attached",
		"id", t.id,
		"slot", uint32(slot),
		"width", desc.Width,
		"height", desc.Height)
	return nil
}

// updateLocked consumes the latest frame and refreshes the transform.
func (t *ExternalTexture) updateLocked() error {
	if !t.handle.ConsumeLatestFrame() {
		t.detachLocked()
		return nil
	}

	var m mgl32.Mat4
	if !t.handle.ReadTransform(&m) {
		t.detachLocked()
		return nil
	}
	inv, err := invertTransform(m)
	if err != nil {
		return fmt.Errorf("exttex: texture %d: %w", t.id, err)
	}

	t.transform = inv
	t.hasImage = true
	return nil
}

// detachLocked frees the slot, if any, and stops further painting until
// the next OnContextCreated.
func (t *ExternalTexture) detachLocked() {
	if t.state == attachAttached {
		t.handle.Unbind()
		t.allocator.DeleteTexture(t.slot)
		Logger().Debug("exttex: texture detached", "id", t.id, "slot", uint32(t.slot))
	}
	t.dropLocked()
	t.state = attachDetached
}

func (t *ExternalTexture) dropLocked() {
	t.allocator = nil
	t.slot = NoSlot
	t.width = 0
	t.height = 0
	t.hasImage = false
	t.transform = mgl32.Ident4()
}

// OnContextCreated is called on the render goroutine after a new graphics
// context replaced the old one. Slots of the old context are gone, so the
// texture forgets them and reallocates on the next Paint.
//
// The handle is deliberately left bound: the next Paint binds it again,
// and Handle.Bind turns that into an unbind of the stale slot followed by
// a bind of the new one.
func (t *ExternalTexture) OnContextCreated() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.dropLocked()
	t.state = attachUninitialized
}

// OnContextDestroyed is called on the render goroutine before the graphics
// context goes away. The slot is freed and the texture stays detached
// until OnContextCreated.
func (t *ExternalTexture) OnContextDestroyed() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.detachLocked()
}

// OnUnregistered releases the handle. It is called on the lifecycle
// goroutine, possibly while the render goroutine is painting; the slot is
// freed by the next Paint.
func (t *ExternalTexture) OnUnregistered() {
	t.handle.Release()
}

// String returns a string representation of the texture.
func (t *ExternalTexture) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fmt.Sprintf("ExternalTexture[%d %s %s]", t.id, t.state, t.handle)
}
