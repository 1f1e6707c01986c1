// Package recording captures external texture draws for later playback.
//
// A Recorder is an exttex.Canvas. ExternalTexture.Paint hands it one
// DrawCommand per visible texture; FinishRecording freezes them into a
// Recording that can be played back to another canvas or rasterized into
// an image on the CPU.
//
// # Basic Usage
//
//	rec := recording.NewRecorder(800, 600)
//	_ = tex.Paint(exttex.PaintContext{Canvas: rec, Allocator: b}, bounds, false, exttex.SamplingLinear)
//	r := rec.FinishRecording()
//
//	// Replay to a GPU canvas
//	err := r.Playback(gpuCanvas)
//
//	// Or rasterize with the software backend's pixels
//	img := image.NewRGBA(image.Rect(0, 0, r.Width(), r.Height()))
//	err = r.Rasterize(img, lookup)
//
// This design is inspired by Skia's SkPicture and Cairo's recording surface.
package recording
