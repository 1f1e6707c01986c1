package backend

import (
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/exttex"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// SoftwareBackend is an in-memory backend. Each slot is a CPU pixel buffer
// that sources upload into; it is always available and is the fallback
// when no GPU backend is registered.
type SoftwareBackend struct {
	mu          sync.Mutex
	initialized bool
	next        exttex.Slot
	textures    map[exttex.Slot]*SoftwareTexture
}

// init registers the software backend on package import.
func init() {
	Register(BackendSoftware, func() Backend {
		return NewSoftwareBackend()
	})
}

// NewSoftwareBackend creates a new software backend.
func NewSoftwareBackend() *SoftwareBackend {
	return &SoftwareBackend{}
}

// Name returns the backend identifier.
func (b *SoftwareBackend) Name() string {
	return BackendSoftware
}

// Init initializes the backend.
func (b *SoftwareBackend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.textures == nil {
		b.textures = make(map[exttex.Slot]*SoftwareTexture)
	}
	b.initialized = true
	return nil
}

// Close deletes every slot.
func (b *SoftwareBackend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for slot, tex := range b.textures {
		tex.markDeleted()
		delete(b.textures, slot)
	}
	b.initialized = false
}

// CreateTexture allocates a zero-filled pixel buffer.
func (b *SoftwareBackend) CreateTexture(desc exttex.TextureDesc) (exttex.Slot, error) {
	if err := desc.Validate(); err != nil {
		return exttex.NoSlot, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.initialized {
		return exttex.NoSlot, ErrNotInitialized
	}

	b.next++
	bpp := BytesPerPixel(desc.Format)
	b.textures[b.next] = &SoftwareTexture{
		label:  desc.Label,
		width:  desc.Width,
		height: desc.Height,
		format: desc.Format,
		bpp:    bpp,
		pix:    make([]byte, desc.Width*desc.Height*bpp),
	}
	exttex.Logger().Debug("backend: software slot created",
		"slot", uint32(b.next), "label", desc.Label,
		"width", desc.Width, "height", desc.Height)
	return b.next, nil
}

// DeleteTexture frees a slot. Unknown slots are ignored.
func (b *SoftwareBackend) DeleteTexture(slot exttex.Slot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if tex, ok := b.textures[slot]; ok {
		tex.markDeleted()
		delete(b.textures, slot)
	}
}

// Texture returns the pixel buffer behind slot.
func (b *SoftwareBackend) Texture(slot exttex.Slot) (*SoftwareTexture, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tex, ok := b.textures[slot]
	return tex, ok
}

// Updater returns the texture behind slot as an upload target, or nil.
// It matches source.TargetFunc.
func (b *SoftwareBackend) Updater(slot exttex.Slot) gpucontext.TextureUpdater {
	tex, ok := b.Texture(slot)
	if !ok {
		return nil
	}
	return tex
}

// Image returns a copy of the pixels behind slot, or nil when the slot is
// unknown or its format has no image.Image equivalent.
func (b *SoftwareBackend) Image(slot exttex.Slot) image.Image {
	tex, ok := b.Texture(slot)
	if !ok {
		return nil
	}
	return tex.Image()
}

// Len returns the number of live slots.
func (b *SoftwareBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.textures)
}

// SoftwareTexture is one slot of a SoftwareBackend.
type SoftwareTexture struct {
	mu      sync.RWMutex
	label   string
	width   int
	height  int
	format  gputypes.TextureFormat
	bpp     int
	pix     []byte
	deleted bool
}

var (
	_ gpucontext.Texture              = (*SoftwareTexture)(nil)
	_ gpucontext.TextureUpdater       = (*SoftwareTexture)(nil)
	_ gpucontext.TextureRegionUpdater = (*SoftwareTexture)(nil)
)

// Width returns the texture width in pixels.
func (t *SoftwareTexture) Width() int { return t.width }

// Height returns the texture height in pixels.
func (t *SoftwareTexture) Height() int { return t.height }

// Format returns the pixel format.
func (t *SoftwareTexture) Format() gputypes.TextureFormat { return t.format }

// Label returns the debug label.
func (t *SoftwareTexture) Label() string { return t.label }

// UpdateData replaces the whole texture. data must hold exactly
// width*height pixels.
func (t *SoftwareTexture) UpdateData(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.deleted {
		return ErrTextureDeleted
	}
	if len(data) != len(t.pix) {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrDataSize, len(data), len(t.pix))
	}
	copy(t.pix, data)
	return nil
}

// UpdateRegion replaces a w*h sub-rectangle at (x, y) with densely packed rows.
func (t *SoftwareTexture) UpdateRegion(x, y, w, h int, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.deleted {
		return ErrTextureDeleted
	}
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > t.width || y+h > t.height {
		return fmt.Errorf("%w: region (%d,%d)+(%dx%d) exceeds %dx%d",
			exttex.ErrInvalidDimensions, x, y, w, h, t.width, t.height)
	}
	rowBytes := w * t.bpp
	if len(data) != rowBytes*h {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrDataSize, len(data), rowBytes*h)
	}

	stride := t.width * t.bpp
	for row := range h {
		dst := (y+row)*stride + x*t.bpp
		copy(t.pix[dst:dst+rowBytes], data[row*rowBytes:(row+1)*rowBytes])
	}
	return nil
}

// Pixels returns a copy of the texture contents.
func (t *SoftwareTexture) Pixels() []byte {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]byte, len(t.pix))
	copy(out, t.pix)
	return out
}

func (t *SoftwareTexture) markDeleted() {
	t.mu.Lock()
	t.deleted = true
	t.pix = nil
	t.mu.Unlock()
}

// BytesPerPixel returns the storage size of one pixel in format f. Formats
// other than R8Unorm and RG8Unorm are treated as 4 bytes per pixel.
func BytesPerPixel(f gputypes.TextureFormat) int {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRG8Unorm:
		return 2
	default:
		return 4
	}
}

// Image returns a copy of the pixels as an image. RGBA and BGRA formats
// become *image.RGBA, R8Unorm becomes *image.Gray; other formats return nil.
func (t *SoftwareTexture) Image() image.Image {
	t.mu.RLock()
	defer t.mu.RUnlock()

	r := image.Rect(0, 0, t.width, t.height)
	switch t.format {
	case gputypes.TextureFormatR8Unorm:
		img := image.NewGray(r)
		copy(img.Pix, t.pix)
		return img
	case gputypes.TextureFormatBGRA8Unorm:
		img := image.NewRGBA(r)
		for i := 0; i+3 < len(t.pix); i += 4 {
			img.Pix[i+0] = t.pix[i+2]
			img.Pix[i+1] = t.pix[i+1]
			img.Pix[i+2] = t.pix[i+0]
			img.Pix[i+3] = t.pix[i+3]
		}
		return img
	case gputypes.TextureFormatRG8Unorm:
		return nil
	default:
		img := image.NewRGBA(r)
		copy(img.Pix, t.pix)
		return img
	}
}
