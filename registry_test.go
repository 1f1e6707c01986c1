package exttex

import (
	"errors"
	"slices"
	"testing"
)

func newTestTexture(t *testing.T, id int64) (*ExternalTexture, *fakeSource) {
	t.Helper()
	src := newFakeSource()
	tex, err := NewExternalTexture(id, mustHandle(t, src))
	if err != nil {
		t.Fatalf("NewExternalTexture() error = %v", err)
	}
	return tex, src
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	tex, _ := newTestTexture(t, 7)

	if err := r.Register(tex); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	got, ok := r.Get(7)
	if !ok || got != tex {
		t.Errorf("Get(7) = %v, %v", got, ok)
	}
	if _, ok := r.Get(8); ok {
		t.Error("Get(8) found an unregistered id")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestRegistryDuplicate(t *testing.T) {
	r := NewRegistry()
	a, _ := newTestTexture(t, 1)
	b, _ := newTestTexture(t, 1)

	if err := r.Register(a); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(b); !errors.Is(err, ErrDuplicateTexture) {
		t.Errorf("Register(dup) error = %v, want %v", err, ErrDuplicateTexture)
	}
	if err := r.Register(nil); !errors.Is(err, ErrNilTexture) {
		t.Errorf("Register(nil) error = %v, want %v", err, ErrNilTexture)
	}
}

func TestRegistryUnregisterReleases(t *testing.T) {
	r := NewRegistry()
	tex, src := newTestTexture(t, 3)
	_ = r.Register(tex)

	if !r.Unregister(3) {
		t.Fatal("Unregister(3) = false")
	}
	if r.Unregister(3) {
		t.Error("second Unregister(3) = true")
	}
	if !tex.Handle().IsReleased() {
		t.Error("handle not released by Unregister")
	}
	if n := src.count("release"); n != 1 {
		t.Errorf("ReleaseAllocation calls = %d, want 1", n)
	}
	if r.MarkNewFrameAvailable(3) {
		t.Error("MarkNewFrameAvailable on unregistered id = true")
	}
}

func TestRegistryMarkNewFrameAvailable(t *testing.T) {
	r := NewRegistry()
	tex, _ := newTestTexture(t, 5)
	_ = r.Register(tex)

	if !r.MarkNewFrameAvailable(5) {
		t.Fatal("MarkNewFrameAvailable(5) = false")
	}
	if !tex.newFrame.Load() {
		t.Error("new frame flag not set")
	}
}

func TestRegistryIDsSorted(t *testing.T) {
	r := NewRegistry()
	for _, id := range []int64{9, 2, 5} {
		tex, _ := newTestTexture(t, id)
		if err := r.Register(tex); err != nil {
			t.Fatalf("Register(%d) error = %v", id, err)
		}
	}
	if got, want := r.IDs(), []int64{2, 5, 9}; !slices.Equal(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
}

func TestRegistryContextEvents(t *testing.T) {
	r := NewRegistry()
	alloc := newFakeAllocator()
	canvas := &fakeCanvas{}
	pc := PaintContext{Canvas: canvas, Allocator: alloc}

	var texs []*ExternalTexture
	for _, id := range []int64{1, 2} {
		tex, _ := newTestTexture(t, id)
		_ = r.Register(tex)
		texs = append(texs, tex)
		if err := tex.Paint(pc, testBounds, false, SamplingLinear); err != nil {
			t.Fatalf("Paint() error = %v", err)
		}
	}

	r.OnContextDestroyed()
	for _, tex := range texs {
		if tex.Attached() {
			t.Errorf("texture %d attached after context destroyed", tex.ID())
		}
	}
	if alloc.liveCount() != 0 {
		t.Errorf("live slots = %d after context destroyed", alloc.liveCount())
	}

	r.OnContextCreated()
	for _, tex := range texs {
		if err := tex.Paint(pc, testBounds, false, SamplingLinear); err != nil {
			t.Fatalf("Paint() error = %v", err)
		}
		if !tex.Attached() {
			t.Errorf("texture %d not attached after context created", tex.ID())
		}
	}
}

func TestRegistryClose(t *testing.T) {
	r := NewRegistry()
	a, _ := newTestTexture(t, 1)
	b, _ := newTestTexture(t, 2)
	_ = r.Register(a)
	_ = r.Register(b)

	r.Close()
	r.Close()

	if r.Len() != 0 {
		t.Errorf("Len() = %d after Close", r.Len())
	}
	if !a.Handle().IsReleased() || !b.Handle().IsReleased() {
		t.Error("Close did not release every handle")
	}
	c, _ := newTestTexture(t, 3)
	if err := r.Register(c); !errors.Is(err, ErrRegistryClosed) {
		t.Errorf("Register after Close error = %v, want %v", err, ErrRegistryClosed)
	}
}
