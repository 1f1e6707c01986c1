package source

import (
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/exttex"
	"github.com/gogpu/gpucontext"
	xdraw "golang.org/x/image/draw"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", name)
		}
	}()
	fn()
}

type recordingTarget struct {
	mu      sync.Mutex
	uploads [][]byte
	err     error
}

func (r *recordingTarget) UpdateData(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploads = append(r.uploads, append([]byte(nil), data...))
	return r.err
}

func TestFramesAbsorbLatest(t *testing.T) {
	f := NewFrames()
	red := color.RGBA{255, 0, 0, 255}
	blue := color.RGBA{0, 0, 255, 255}

	f.AbsorbLatestImage()
	if f.Image() != nil {
		t.Error("Image() should be nil before the first push")
	}

	if err := f.Push(solid(4, 2, red)); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if err := f.Push(solid(4, 2, blue)); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	f.AbsorbLatestImage()

	img := f.Image()
	if img == nil {
		t.Fatal("Image() is nil after absorb")
	}
	if got := img.RGBAAt(0, 0); got != blue {
		t.Errorf("pixel = %v, want newest frame %v", got, blue)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 2 {
		t.Errorf("bounds = %v, want 4x2", img.Bounds())
	}

	// No new push: the previous image stays latched.
	f.AbsorbLatestImage()
	if f.Image() != img {
		t.Error("Image() changed without a new push")
	}
	if f.FrameIndex() != 3 {
		t.Errorf("FrameIndex() = %d, want 3", f.FrameIndex())
	}
}

func TestFramesScalesToSize(t *testing.T) {
	green := color.RGBA{0, 255, 0, 255}
	f := NewFrames(WithSize(8, 8), WithScaler(xdraw.NearestNeighbor))
	_ = f.Push(solid(2, 2, green))
	f.AbsorbLatestImage()

	img := f.Image()
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 8 {
		t.Fatalf("bounds = %v, want 8x8", img.Bounds())
	}
	if got := img.RGBAAt(7, 7); got != green {
		t.Errorf("scaled pixel = %v, want %v", got, green)
	}
}

func TestFramesTransform(t *testing.T) {
	var m mgl32.Mat4
	f := NewFrames()
	f.TransformMatrix(&m)
	if !m.ApproxEqual(FlipY()) {
		t.Errorf("default transform = %v, want FlipY", m)
	}
	// v = 0 maps to 1 and v = 1 maps to 0.
	if v := m.Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Y(); v != 1 {
		t.Errorf("FlipY(v=0) = %v, want 1", v)
	}
	if v := m.Mul4x1(mgl32.Vec4{0, 1, 0, 1}).Y(); v != 0 {
		t.Errorf("FlipY(v=1) = %v, want 0", v)
	}

	scale := mgl32.Scale3D(0.5, 0.5, 1)
	f.SetTransform(scale)
	f.TransformMatrix(&m)
	if m != scale {
		t.Errorf("transform = %v, want %v", m, scale)
	}

	g := NewFrames(WithTransform(mgl32.Ident4()))
	g.TransformMatrix(&m)
	if m != mgl32.Ident4() {
		t.Errorf("WithTransform: transform = %v, want identity", m)
	}
}

func TestFramesBindUnbind(t *testing.T) {
	f := NewFrames()
	f.BindToContextSlot(5)
	if f.Slot() != 5 {
		t.Errorf("Slot() = %d, want 5", f.Slot())
	}
	mustPanic(t, "double bind", func() { f.BindToContextSlot(6) })

	f.UnbindFromContextSlot()
	if f.Slot() != exttex.NoSlot {
		t.Errorf("Slot() = %d after unbind, want NoSlot", f.Slot())
	}
	f.BindToContextSlot(6)
	if f.Slot() != 6 {
		t.Errorf("Slot() = %d, want 6", f.Slot())
	}
}

func TestFramesUploadToTarget(t *testing.T) {
	target := &recordingTarget{}
	f := NewFrames(WithTarget(func(slot exttex.Slot) gpucontext.TextureUpdater {
		if slot != 9 {
			return nil
		}
		return target
	}))

	_ = f.Push(solid(2, 1, color.RGBA{1, 2, 3, 4}))
	f.AbsorbLatestImage()
	if len(target.uploads) != 0 {
		t.Fatalf("uploaded %d times while unbound, want 0", len(target.uploads))
	}

	// Binding uploads the latched image.
	f.BindToContextSlot(9)
	if len(target.uploads) != 1 {
		t.Fatalf("uploads after bind = %d, want 1", len(target.uploads))
	}
	if got, want := target.uploads[0], []byte{1, 2, 3, 4, 1, 2, 3, 4}; string(got) != string(want) {
		t.Errorf("bind upload = %v, want %v", got, want)
	}

	_ = f.Push(solid(2, 1, color.RGBA{5, 6, 7, 8}))
	f.AbsorbLatestImage()
	if len(target.uploads) != 2 {
		t.Fatalf("uploads = %d, want 2", len(target.uploads))
	}
	if got, want := target.uploads[1], []byte{5, 6, 7, 8, 5, 6, 7, 8}; string(got) != string(want) {
		t.Errorf("upload = %v, want %v", got, want)
	}

	// Absorbing with nothing new pushed does not upload again.
	f.AbsorbLatestImage()
	if len(target.uploads) != 2 {
		t.Errorf("uploads = %d after empty absorb, want 2", len(target.uploads))
	}

	// Upload errors are logged, not fatal.
	target.err = errors.New("lost")
	_ = f.Push(solid(2, 1, color.RGBA{}))
	f.AbsorbLatestImage()
	if len(target.uploads) != 3 {
		t.Errorf("uploads = %d, want 3", len(target.uploads))
	}
}

func TestFramesRebindUploadsLatchedImage(t *testing.T) {
	targets := map[exttex.Slot]*recordingTarget{1: {}, 2: {}}
	f := NewFrames(WithTarget(func(slot exttex.Slot) gpucontext.TextureUpdater {
		if tgt, ok := targets[slot]; ok {
			return tgt
		}
		return nil
	}))

	// Nothing latched yet: bind has nothing to upload.
	f.BindToContextSlot(1)
	if n := len(targets[1].uploads); n != 0 {
		t.Fatalf("uploads to slot 1 = %d before any frame, want 0", n)
	}

	_ = f.Push(solid(1, 1, color.RGBA{9, 8, 7, 255}))
	f.AbsorbLatestImage()
	f.UnbindFromContextSlot()

	// A new context hands out slot 2; the last frame must show up there
	// without another push.
	f.BindToContextSlot(2)
	if n := len(targets[2].uploads); n != 1 {
		t.Fatalf("uploads to slot 2 = %d, want 1", n)
	}
	if got, want := targets[2].uploads[0], []byte{9, 8, 7, 255}; string(got) != string(want) {
		t.Errorf("slot 2 upload = %v, want %v", got, want)
	}
}

func TestFramesRelease(t *testing.T) {
	f := NewFrames()
	f.BindToContextSlot(1)
	_ = f.Push(solid(1, 1, color.RGBA{}))
	f.ReleaseAllocation()

	if !f.Released() {
		t.Error("Released() = false after ReleaseAllocation")
	}
	if err := f.Push(solid(1, 1, color.RGBA{})); !errors.Is(err, ErrReleased) {
		t.Errorf("Push() after release error = %v, want %v", err, ErrReleased)
	}

	var m mgl32.Mat4
	mustPanic(t, "AbsorbLatestImage", f.AbsorbLatestImage)
	mustPanic(t, "ReleaseAllocation", f.ReleaseAllocation)
	mustPanic(t, "BindToContextSlot", func() { f.BindToContextSlot(2) })
	mustPanic(t, "UnbindFromContextSlot", f.UnbindFromContextSlot)
	mustPanic(t, "TransformMatrix", func() { f.TransformMatrix(&m) })
}

func TestFramesPushNil(t *testing.T) {
	if err := NewFrames().Push(nil); err == nil {
		t.Error("Push(nil) should fail")
	}
}

// A Handle keeps a Frames source safe when release races the render loop.
func TestFramesBehindHandle(t *testing.T) {
	for range 20 {
		f := NewFrames(WithSize(4, 4))
		h, err := exttex.NewHandle(f)
		if err != nil {
			t.Fatal(err)
		}

		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			for range 100 {
				if f.Push(solid(4, 4, color.RGBA{A: 255})) != nil {
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			var m mgl32.Mat4
			for i := range 100 {
				h.Bind(exttex.Slot(i%3 + 1))
				h.ConsumeLatestFrame()
				h.ReadTransform(&m)
				if i%5 == 0 {
					h.Unbind()
				}
			}
		}()
		go func() {
			defer wg.Done()
			h.Release()
		}()
		wg.Wait()

		if !f.Released() {
			t.Fatal("source not released")
		}
		if h.ConsumeLatestFrame() || h.Bind(1) {
			t.Fatal("released handle reached the source")
		}
	}
}
