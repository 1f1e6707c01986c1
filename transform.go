package exttex

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// invertTransform converts a source transform, which maps texture
// coordinate lookups in [0,1], into the matrix a canvas shader applies to
// the image itself. A lookup scaled by 0.5 shows half the texture, which is
// the same as scaling the image by 2, so the two are inverses.
func invertTransform(m mgl32.Mat4) (mgl32.Mat4, error) {
	if mgl32.FloatEqual(m.Det(), 0) {
		return mgl32.Mat4{}, fmt.Errorf("%w: det=0 %v", ErrSingularTransform, m)
	}
	return m.Inv(), nil
}

// placement maps the unit square onto bounds with Y flipped. Sources
// produce images with positive Y up while the canvas has positive Y down.
func placement(b Rect) mgl32.Mat4 {
	return mgl32.Translate3D(b.X, b.Y+b.Height, 0).Mul4(mgl32.Scale3D(b.Width, -b.Height, 1))
}

// isIdentity reports whether m is (approximately) the identity.
func isIdentity(m mgl32.Mat4) bool {
	return m.ApproxEqual(mgl32.Ident4())
}
