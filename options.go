package exttex

import "github.com/gogpu/gputypes"

// HandleOption configures a Handle during creation.
//
// Example:
//
//	h, err := exttex.NewHandle(src,
//	    exttex.WithLabel("camera-preview"),
//	    exttex.WithFrameConsumed(func() { producer.Ack() }),
//	)
type HandleOption func(*handleOptions)

// handleOptions holds optional configuration for Handle creation.
type handleOptions struct {
	onFrameConsumed func()
	label           string
}

// WithFrameConsumed sets the callback invoked once per successfully
// consumed frame.
//
// The callback runs synchronously while the handle lock is held. It must
// return quickly and must not call back into the same Handle, or it will
// deadlock. The Handle never retains or frees anything the callback owns.
func WithFrameConsumed(fn func()) HandleOption {
	return func(o *handleOptions) {
		o.onFrameConsumed = fn
	}
}

// WithLabel sets a debug label used in log records and String.
func WithLabel(label string) HandleOption {
	return func(o *handleOptions) {
		o.label = label
	}
}

// TextureOption configures an ExternalTexture during creation.
type TextureOption func(*textureOptions)

type textureOptions struct {
	format gputypes.TextureFormat
}

func defaultTextureOptions() textureOptions {
	return textureOptions{
		format: gputypes.TextureFormatRGBA8Unorm,
	}
}

// WithFormat sets the pixel format of slots allocated for the texture.
// The default is RGBA8Unorm.
func WithFormat(f gputypes.TextureFormat) TextureOption {
	return func(o *textureOptions) {
		o.format = f
	}
}
