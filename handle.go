package exttex

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

// Handle owns one external Source and serializes every access to it.
//
// The Source is produced on one goroutine and consumed on another: a
// lifecycle goroutine creates the Handle and eventually calls Release, while
// a render goroutine calls Bind, ConsumeLatestFrame, Unbind and
// ReadTransform at frame cadence. All of these are safe to call at any time,
// including concurrently with or after Release; on a released handle they
// are silent no-ops and never reach the Source.
//
// State transitions:
//
//	unbound --Bind-->    bound
//	bound   --Bind-->    bound     (unbind old slot, then bind new slot)
//	bound   --Unbind-->  unbound
//	*       --Release--> released  (terminal; later calls are no-ops)
//
// The Handle must not be discarded while another call on it is in flight.
type Handle struct {
	mu    sync.Mutex
	src   Source
	state State
	slot  Slot

	onFrameConsumed func()
	label           string

	// frames counts successful ConsumeLatestFrame calls. Written under mu,
	// read lock-free by FramesConsumed.
	frames atomic.Uint64
}

// NewHandle wraps src. The Handle takes exclusive ownership of the source's
// lifecycle: callers must not call ReleaseAllocation on it directly.
func NewHandle(src Source, opts ...HandleOption) (*Handle, error) {
	if src == nil {
		return nil, ErrNilSource
	}

	var o handleOptions
	for _, opt := range opts {
		opt(&o)
	}

	return &Handle{
		src:             src,
		state:           StateUnbound,
		onFrameConsumed: o.onFrameConsumed,
		label:           o.label,
	}, nil
}

// ConsumeLatestFrame absorbs the newest image from the source and then runs
// the frame-consumed callback, both under the handle lock. It reports
// whether a frame was consumed; on a released handle it does nothing and
// returns false.
//
// The callback therefore never runs concurrently with, or after, Release.
func (h *Handle) ConsumeLatestFrame() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == StateReleased {
		return false
	}

	h.src.AbsorbLatestImage()
	h.frames.Add(1)
	if h.onFrameConsumed != nil {
		h.onFrameConsumed()
	}
	return true
}

// Release frees the source allocation. Only the first call has an effect
// and returns true; later calls return false. After Release returns, no
// operation on this Handle touches the source again.
func (h *Handle) Release() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == StateReleased {
		return false
	}

	wasBound := h.state == StateBound
	h.src.ReleaseAllocation()
	h.state = StateReleased
	h.slot = NoSlot

	Logger().Debug("exttex: handle released",
		"label", h.label,
		"was_bound", wasBound,
		"frames", h.frames.Load())
	return true
}

// Bind attaches the source to slot. Binding an already bound handle is a
// rebind: the source is unbound from its previous slot before it is bound
// to the new one, so the source never sees two binds in a row. This keeps
// textures usable after the graphics context is recreated underneath them.
//
// Bind returns false, without touching the source, if the handle has been
// released.
func (h *Handle) Bind(slot Slot) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case StateReleased:
		return false
	case StateBound:
		Logger().Debug("exttex: rebind",
			"label", h.label,
			"from", uint32(h.slot),
			"to", uint32(slot))
		h.src.UnbindFromContextSlot()
	}

	h.src.BindToContextSlot(slot)
	h.state = StateBound
	h.slot = slot
	return true
}

// Unbind detaches the source from its slot. It returns false and does
// nothing unless the handle is currently bound.
func (h *Handle) Unbind() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateBound {
		return false
	}

	h.src.UnbindFromContextSlot()
	h.state = StateUnbound
	h.slot = NoSlot
	return true
}

// ReadTransform copies the source's current texture transform into dst.
// The read happens under the handle lock, so it cannot race with Release.
// On a released handle dst is left untouched and false is returned.
func (h *Handle) ReadTransform(dst *mgl32.Mat4) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == StateReleased {
		return false
	}
	h.src.TransformMatrix(dst)
	return true
}

// Source returns the wrapped source for trusted renderer code that needs
// the raw resource. Callers must not invoke ReleaseAllocation, Bind or
// Unbind operations on it directly.
func (h *Handle) Source() Source {
	return h.src
}

// State returns the current state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Slot returns the slot the handle is bound to, or NoSlot.
func (h *Handle) Slot() Slot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.slot
}

// IsReleased reports whether Release has completed.
func (h *Handle) IsReleased() bool {
	return h.State() == StateReleased
}

// FramesConsumed returns the number of successful ConsumeLatestFrame calls.
// It does not take the lock and is safe to call from the frame-consumed
// callback.
func (h *Handle) FramesConsumed() uint64 {
	return h.frames.Load()
}

// Label returns the debug label.
func (h *Handle) Label() string {
	return h.label
}

// String returns a string representation of the handle.
func (h *Handle) String() string {
	h.mu.Lock()
	state, slot := h.state, h.slot
	h.mu.Unlock()

	if state == StateBound {
		return fmt.Sprintf("Handle[%s %s slot=%d frames=%d]", h.label, state, slot, h.frames.Load())
	}
	return fmt.Sprintf("Handle[%s %s frames=%d]", h.label, state, h.frames.Load())
}
