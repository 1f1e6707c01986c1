package native

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/exttex"
	"github.com/gogpu/exttex/backend"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

var (
	// ErrNoAdapter is returned by Init when no GPU adapter can be opened.
	ErrNoAdapter = errors.New("native: no GPU adapter found")

	// ErrNoQueue is returned by slot uploads when the backend has no queue.
	ErrNoQueue = errors.New("native: no queue for texture uploads")
)

func init() {
	backend.Register(backend.BackendNative, func() backend.Backend {
		return New(nil, nil)
	})
}

// slotTexture is the GPU side of one allocated slot.
type slotTexture struct {
	desc    exttex.TextureDesc
	tex     hal.Texture
	view    hal.TextureView
	uploads uint64
}

// Backend allocates external texture slots as sampled textures on a HAL
// device.
type Backend struct {
	mu sync.Mutex

	device   hal.Device
	queue    hal.Queue
	instance hal.Instance // non-nil when Init opened the device itself
	shader   hal.ShaderModule

	textures    map[exttex.Slot]*slotTexture
	next        exttex.Slot
	initialized bool
}

var _ backend.Backend = (*Backend)(nil)

// New creates a backend on device. Pixel uploads go through queue. A nil
// device makes Init open a standalone device and queue.
func New(device hal.Device, queue hal.Queue) *Backend {
	return &Backend{
		device:   device,
		queue:    queue,
		textures: make(map[exttex.Slot]*slotTexture),
	}
}

// Name returns the backend identifier.
func (b *Backend) Name() string {
	return backend.BackendNative
}

// Init opens a device if none was provided and compiles the sampling
// shader. Calling Init on an initialized backend is a no-op.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return nil
	}
	if b.device == nil {
		if err := b.openDeviceLocked(); err != nil {
			return err
		}
	}

	shader, err := createExternalShader(b.device)
	if err != nil {
		b.closeDeviceLocked()
		return fmt.Errorf("native: create shader: %w", err)
	}
	b.shader = shader
	b.initialized = true

	exttex.Logger().Info("native: backend initialized")
	return nil
}

func (b *Backend) openDeviceLocked() error {
	api, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("%w: vulkan backend not available", backend.ErrBackendNotAvailable)
	}
	instance, err := api.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("native: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return ErrNoAdapter
	}

	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return fmt.Errorf("native: open device: %w", err)
	}

	b.instance = instance
	b.device = openDev.Device
	b.queue = openDev.Queue
	exttex.Logger().Info("native: device opened", "adapter", selected.Info.Name)
	return nil
}

func (b *Backend) closeDeviceLocked() {
	if b.instance == nil {
		return
	}
	b.device.Destroy()
	b.instance.Destroy()
	b.device = nil
	b.queue = nil
	b.instance = nil
}

// CreateTexture allocates a sampled texture and its view.
func (b *Backend) CreateTexture(desc exttex.TextureDesc) (exttex.Slot, error) {
	if err := desc.Validate(); err != nil {
		return exttex.NoSlot, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return exttex.NoSlot, backend.ErrNotInitialized
	}

	tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              uint32(desc.Width),
			Height:             uint32(desc.Height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return exttex.NoSlot, fmt.Errorf("native: create texture %q: %w", desc.Label, err)
	}

	view, err := b.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:     desc.Label + "_view",
		Format:    desc.Format,
		Dimension: gputypes.TextureViewDimension2D,
	})
	if err != nil {
		b.device.DestroyTexture(tex)
		return exttex.NoSlot, fmt.Errorf("native: create texture view %q: %w", desc.Label, err)
	}

	b.next++
	slot := b.next
	b.textures[slot] = &slotTexture{desc: desc, tex: tex, view: view}

	exttex.Logger().Debug("native: texture created",
		"slot", uint32(slot),
		"label", desc.Label,
		"width", desc.Width,
		"height", desc.Height)
	return slot, nil
}

// DeleteTexture destroys the texture and view of slot. Unknown slots are
// ignored.
func (b *Backend) DeleteTexture(slot exttex.Slot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.textures[slot]
	if !ok {
		return
	}
	delete(b.textures, slot)
	b.destroyLocked(st)
}

func (b *Backend) destroyLocked(st *slotTexture) {
	if st.view != nil {
		b.device.DestroyTextureView(st.view)
	}
	if st.tex != nil {
		b.device.DestroyTexture(st.tex)
	}
}

// Updater returns an upload target for slot, or nil when the slot is
// unknown. It matches source.TargetFunc.
func (b *Backend) Updater(slot exttex.Slot) gpucontext.TextureUpdater {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.textures[slot]; !ok {
		return nil
	}
	return &slotUpdater{b: b, slot: slot}
}

// Uploads returns the number of completed uploads into slot.
func (b *Backend) Uploads(slot exttex.Slot) (uint64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.textures[slot]
	if !ok {
		return 0, false
	}
	return st.uploads, true
}

// slotUpdater writes whole-texture pixel data into one slot through the
// backend queue.
type slotUpdater struct {
	b    *Backend
	slot exttex.Slot
}

// UpdateData uploads data, which must hold exactly width*height pixels.
func (u *slotUpdater) UpdateData(data []byte) error {
	b := u.b
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.textures[u.slot]
	if !ok {
		return backend.ErrTextureDeleted
	}
	if b.queue == nil {
		return ErrNoQueue
	}

	bpp := backend.BytesPerPixel(st.desc.Format)
	want := st.desc.Width * st.desc.Height * bpp
	if len(data) != want {
		return fmt.Errorf("%w: got %d bytes, want %d", backend.ErrDataSize, len(data), want)
	}

	w, h := uint32(st.desc.Width), uint32(st.desc.Height)
	b.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  st.tex,
			MipLevel: 0,
		},
		data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  w * uint32(bpp),
			RowsPerImage: h,
		},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	st.uploads++
	return nil
}

// View returns the texture view of slot for binding in a render pass.
func (b *Backend) View(slot exttex.Slot) (hal.TextureView, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.textures[slot]
	if !ok {
		return nil, false
	}
	return st.view, true
}

// Desc returns the descriptor slot was created with.
func (b *Backend) Desc(slot exttex.Slot) (exttex.TextureDesc, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.textures[slot]
	if !ok {
		return exttex.TextureDesc{}, false
	}
	return st.desc, true
}

// Shader returns the compiled sampling shader, or nil before Init.
func (b *Backend) Shader() hal.ShaderModule {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shader
}

// Len returns the number of live slots.
func (b *Backend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.textures)
}

// Close destroys every slot and the shader. A device opened by Init is
// destroyed too; a device passed to New is left to its owner.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return
	}
	for slot, st := range b.textures {
		b.destroyLocked(st)
		delete(b.textures, slot)
	}
	if b.shader != nil {
		b.device.DestroyShaderModule(b.shader)
		b.shader = nil
	}
	b.closeDeviceLocked()
	b.initialized = false
}
