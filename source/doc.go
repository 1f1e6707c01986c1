// Package source provides an in-memory exttex.Source fed with image.Image
// frames.
//
// Frames plays the part of a platform surface texture: a producer goroutine
// pushes images, and the render goroutine latches the newest one through
// the owning exttex.Handle. Frames does not guard against use after
// ReleaseAllocation; it panics instead, the way a platform source would
// crash. Wrap it in a Handle.
//
//	frames := source.NewFrames(source.WithSize(640, 480))
//	h, err := exttex.NewHandle(frames)
//	...
//	_ = frames.Push(img) // producer goroutine
package source
