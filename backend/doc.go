// Package backend provides pluggable texture slot allocators for
// exttex.ExternalTexture.
//
// A backend owns the texture slots of one graphics context. External
// textures allocate a slot on first paint, bind their source to it, and
// delete it when the source is released or the context is torn down.
//
// # Backend Registration
//
// Backends are registered via init() functions and selected at runtime.
// The software backend is automatically registered on import:
//
//	import _ "github.com/gogpu/exttex/backend"
//
// The GPU backend registers itself from its own package:
//
//	import _ "github.com/gogpu/exttex/backend/native"
//
// # Backend Selection
//
// Use Default() to get the best available backend, or Get() to request
// a specific backend by name:
//
//	b, err := backend.InitDefault()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
//
//	err = tex.Paint(exttex.PaintContext{Canvas: canvas, Allocator: b}, bounds, false, exttex.SamplingLinear)
//
// # Available Backends
//
// - "native": textures and views on a gogpu/wgpu HAL device
// - "software": CPU pixel buffers (always available)
package backend
