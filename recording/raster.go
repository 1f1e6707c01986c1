package recording

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/exttex"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// ErrMissingImage is returned by Rasterize when a command's slot has no
// image.
var ErrMissingImage = errors.New("recording: no image for slot")

// ImageLookup returns the pixels currently held by a texture slot, or nil.
type ImageLookup func(slot exttex.Slot) image.Image

// Rasterize draws every command into dst on the CPU. Each slot image is
// sampled through the command's source transform, placed into its bounds
// and composited with draw.Over.
func (r *Recording) Rasterize(dst draw.Image, lookup ImageLookup) error {
	for i, cmd := range r.commands {
		src := lookup(cmd.Slot)
		if src == nil {
			return fmt.Errorf("%w %d (command %d)", ErrMissingImage, cmd.Slot, i)
		}
		aff, err := commandAffine(cmd, src.Bounds())
		if err != nil {
			return fmt.Errorf("recording: command %d: %w", i, err)
		}
		interpolator(cmd.Sampling).Transform(dst, aff, src, src.Bounds(), xdraw.Over, nil)
	}
	return nil
}

// commandAffine returns the source-pixel to destination-pixel transform of
// cmd. UVTransform is the inverted source transform, so a unit-square point
// u lands at Placement*u on the canvas and samples texel
// Scale(w,h)*UVTransform^-1*u. The mapping is therefore
// Placement * UVTransform * Scale(w,h)^-1.
func commandAffine(cmd exttex.DrawCommand, sb image.Rectangle) (f64.Aff3, error) {
	if sb.Empty() {
		return f64.Aff3{}, fmt.Errorf("%w: slot image %v", exttex.ErrInvalidDimensions, sb)
	}
	if mgl32.FloatEqual(cmd.UVTransform.Det(), 0) {
		return f64.Aff3{}, exttex.ErrSingularTransform
	}
	texelToUnit := mgl32.Scale3D(1/float32(sb.Dx()), 1/float32(sb.Dy()), 1).
		Mul4(mgl32.Translate3D(-float32(sb.Min.X), -float32(sb.Min.Y), 0))
	m := cmd.Placement.Mul4(cmd.UVTransform).Mul4(texelToUnit)

	return f64.Aff3{
		float64(m.At(0, 0)), float64(m.At(0, 1)), float64(m.At(0, 3)),
		float64(m.At(1, 0)), float64(m.At(1, 1)), float64(m.At(1, 3)),
	}, nil
}

func interpolator(s exttex.Sampling) xdraw.Interpolator {
	if s == exttex.SamplingNearest {
		return xdraw.NearestNeighbor
	}
	return xdraw.BiLinear
}
