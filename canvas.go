package exttex

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Rect is an axis-aligned rectangle in canvas pixels.
type Rect struct {
	X, Y          float32
	Width, Height float32
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Sampling selects the filter used when the texture is sampled.
type Sampling uint8

const (
	// SamplingNearest uses nearest-neighbor filtering.
	SamplingNearest Sampling = iota

	// SamplingLinear uses bilinear filtering.
	SamplingLinear
)

// String returns a human-readable name for the sampling mode.
func (s Sampling) String() string {
	switch s {
	case SamplingNearest:
		return "nearest"
	case SamplingLinear:
		return "linear"
	default:
		return fmt.Sprintf("Sampling(%d)", uint8(s))
	}
}

// DrawCommand is one draw of an external texture.
type DrawCommand struct {
	// TextureID is the registry id of the texture.
	TextureID int64

	// Slot is the texture slot holding the absorbed image.
	Slot Slot

	// Bounds is the destination rectangle.
	Bounds Rect

	// Placement maps the unit square onto Bounds, flipping Y.
	Placement mgl32.Mat4

	// UVTransform is the inverted source transform. It is the identity
	// when UseShader is false.
	UVTransform mgl32.Mat4

	// UseShader is set when the image must be drawn through a
	// transforming image shader rather than as a plain image.
	UseShader bool

	Sampling Sampling
}

// Canvas receives draws of external textures.
type Canvas interface {
	DrawExternal(cmd DrawCommand) error
}

// PaintContext carries the render goroutine's current graphics context
// into ExternalTexture.Paint.
type PaintContext struct {
	Canvas    Canvas
	Allocator SlotAllocator
}
