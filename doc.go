// Package exttex manages external GPU textures whose images are produced on
// one goroutine and sampled on another.
//
// The center of the package is [Handle]: a mutex-guarded state machine that
// owns one [Source] (a platform image source such as a camera or video
// decoder surface) and makes every access to it race-free. A lifecycle
// goroutine creates the Handle and calls [Handle.Release] once; a render
// goroutine binds, consumes frames, unbinds and reads the transform. Any of
// the render-side calls may race with Release. Once Release has run, they
// become no-ops and the Source is never touched again.
//
// # Quick Start
//
//	h, err := exttex.NewHandle(src, exttex.WithFrameConsumed(onConsumed))
//	if err != nil {
//	    return err
//	}
//
//	// Render goroutine.
//	h.Bind(slot)
//	if h.ConsumeLatestFrame() {
//	    var m mgl32.Mat4
//	    h.ReadTransform(&m)
//	}
//
//	// Lifecycle goroutine, at any time.
//	h.Release()
//
// # Painting
//
// [ExternalTexture] sits on top of a Handle for compositors. It allocates a
// slot through a [SlotAllocator] on first paint, consumes frames flagged by
// [ExternalTexture.MarkNewFrameAvailable], inverts the source transform and
// issues a [DrawCommand] to a [Canvas]. [Registry] maps texture ids to
// external textures and forwards graphics context loss and recreation.
//
// Slot allocators are provided by the backend package ("software", and
// "native" on top of gogpu/wgpu's HAL).
//
// # Logging
//
// exttex is silent by default. Use [SetLogger] to route diagnostics to a
// [log/slog] logger.
package exttex
