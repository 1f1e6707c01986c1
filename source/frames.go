package source

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/exttex"
	"github.com/gogpu/gpucontext"
	xdraw "golang.org/x/image/draw"
)

// ErrReleased is returned by Push after ReleaseAllocation.
var ErrReleased = errors.New("source: released")

// TargetFunc resolves the texture a slot uploads into. It returns nil when
// the slot has no CPU-writable texture.
type TargetFunc func(slot exttex.Slot) gpucontext.TextureUpdater

// Frames is an exttex.Source backed by pushed images.
type Frames struct {
	mu sync.Mutex

	pending image.Image
	current *image.RGBA

	frameIndex uint64
	slot       exttex.Slot
	bound      bool
	released   bool

	width, height int
	transform     mgl32.Mat4
	scaler        xdraw.Scaler
	target        TargetFunc
}

var _ exttex.Source = (*Frames)(nil)

// Option configures Frames.
type Option func(*Frames)

// WithSize sets the size absorbed images are scaled to. Without it each
// image keeps its own size.
func WithSize(width, height int) Option {
	return func(f *Frames) {
		f.width = width
		f.height = height
	}
}

// WithTransform sets the texture-coordinate transform reported for every
// frame. The default flips the Y axis, matching images stored top row
// first.
func WithTransform(m mgl32.Mat4) Option {
	return func(f *Frames) {
		f.transform = m
	}
}

// WithScaler sets the scaler used when a pushed image does not match the
// configured size. The default is draw.BiLinear.
func WithScaler(s xdraw.Scaler) Option {
	return func(f *Frames) {
		f.scaler = s
	}
}

// WithTarget makes AbsorbLatestImage upload the latched pixels into the
// texture of the bound slot.
func WithTarget(fn TargetFunc) Option {
	return func(f *Frames) {
		f.target = fn
	}
}

// FlipY is the default transform: v' = 1 - v.
func FlipY() mgl32.Mat4 {
	return mgl32.Translate3D(0, 1, 0).Mul4(mgl32.Scale3D(1, -1, 1))
}

// NewFrames creates an empty source.
func NewFrames(opts ...Option) *Frames {
	f := &Frames{
		transform: FlipY(),
		scaler:    xdraw.BiLinear,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Push queues img as the newest frame, replacing any frame not yet
// absorbed. It may be called from any goroutine.
func (f *Frames) Push(img image.Image) error {
	if img == nil {
		return errors.New("source: nil image")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.released {
		return ErrReleased
	}
	f.pending = img
	return nil
}

// SetTransform replaces the transform reported for subsequent frames.
func (f *Frames) SetTransform(m mgl32.Mat4) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transform = m
}

// AbsorbLatestImage latches the newest pushed image and advances the frame
// index. With no new image the previous one stays current.
func (f *Frames) AbsorbLatestImage() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.mustLive("AbsorbLatestImage")
	f.frameIndex++

	img := f.pending
	f.pending = nil
	if img == nil {
		return
	}
	f.current = f.convert(img)

	if f.bound {
		f.uploadLocked()
	}
}

// uploadLocked writes the latched image into the bound slot's texture.
func (f *Frames) uploadLocked() {
	if f.target == nil || f.current == nil {
		return
	}
	dst := f.target(f.slot)
	if dst == nil {
		return
	}
	if err := dst.UpdateData(f.current.Pix); err != nil {
		exttex.Logger().Warn("source: upload failed",
			"slot", uint32(f.slot),
			"frame", f.frameIndex,
			"error", err)
	}
}

// convert copies img into a fresh RGBA image of the configured size.
func (f *Frames) convert(img image.Image) *image.RGBA {
	sb := img.Bounds()
	w, h := f.width, f.height
	if w <= 0 || h <= 0 {
		w, h = sb.Dx(), sb.Dy()
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if sb.Dx() == w && sb.Dy() == h {
		xdraw.Draw(dst, dst.Bounds(), img, sb.Min, xdraw.Src)
	} else {
		f.scaler.Scale(dst, dst.Bounds(), img, sb, xdraw.Src, nil)
	}
	return dst
}

// ReleaseAllocation drops all frames. Any later call except Push panics.
func (f *Frames) ReleaseAllocation() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.mustLive("ReleaseAllocation")
	f.released = true
	f.bound = false
	f.slot = exttex.NoSlot
	f.pending = nil
	f.current = nil
}

// BindToContextSlot attaches the source to slot and uploads the latched
// image, if any, so a slot in a new graphics context shows the last frame.
// Binding twice without an unbind in between panics.
func (f *Frames) BindToContextSlot(slot exttex.Slot) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.mustLive("BindToContextSlot")
	if f.bound {
		panic(fmt.Sprintf("source: bind to slot %d while bound to slot %d", slot, f.slot))
	}
	f.bound = true
	f.slot = slot
	f.uploadLocked()
}

// UnbindFromContextSlot detaches the source from its slot.
func (f *Frames) UnbindFromContextSlot() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.mustLive("UnbindFromContextSlot")
	f.bound = false
	f.slot = exttex.NoSlot
}

// TransformMatrix writes the current transform into dst.
func (f *Frames) TransformMatrix(dst *mgl32.Mat4) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.mustLive("TransformMatrix")
	*dst = f.transform
}

// FrameIndex returns the number of AbsorbLatestImage calls.
func (f *Frames) FrameIndex() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frameIndex
}

// Slot returns the bound slot, or exttex.NoSlot.
func (f *Frames) Slot() exttex.Slot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slot
}

// Image returns the latched image, or nil before the first absorbed frame.
// The returned image must not be modified.
func (f *Frames) Image() *image.RGBA {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Released reports whether ReleaseAllocation has been called.
func (f *Frames) Released() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}

func (f *Frames) mustLive(op string) {
	if f.released {
		panic("source: " + op + " after ReleaseAllocation")
	}
}
