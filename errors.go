package exttex

import "errors"

// Errors returned by the paint side and the registry. The Handle itself
// never reports errors: operations on a released handle are no-ops.
var (
	// ErrNilSource is returned by NewHandle when no source is given.
	ErrNilSource = errors.New("exttex: source is nil")

	// ErrNilHandle is returned when an ExternalTexture has no handle.
	ErrNilHandle = errors.New("exttex: handle is nil")

	// ErrNilTexture is returned by Registry.Register for a nil texture.
	ErrNilTexture = errors.New("exttex: texture is nil")

	// ErrSingularTransform is returned when a source reports a transform
	// matrix that cannot be inverted.
	ErrSingularTransform = errors.New("exttex: source transform is not invertible")

	// ErrNoAllocator is returned by Paint when a slot must be allocated
	// but the paint context carries no allocator.
	ErrNoAllocator = errors.New("exttex: paint context has no slot allocator")

	// ErrNoCanvas is returned by Paint when the paint context has no canvas.
	ErrNoCanvas = errors.New("exttex: paint context has no canvas")

	// ErrInvalidDimensions is returned for empty or negative texture sizes.
	ErrInvalidDimensions = errors.New("exttex: invalid texture dimensions")

	// ErrDuplicateTexture is returned when an id is registered twice.
	ErrDuplicateTexture = errors.New("exttex: texture id already registered")

	// ErrRegistryClosed is returned when registering into a closed registry.
	ErrRegistryClosed = errors.New("exttex: registry closed")
)
