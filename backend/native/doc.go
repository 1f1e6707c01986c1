// Package native provides a GPU slot allocator for external textures built
// on the Pure Go gogpu/wgpu HAL.
//
// Each slot is a sampled 2D texture and its view on a hal.Device. Pixels
// reach a slot through Updater, which writes via the device queue. The
// backend also compiles the WGSL shader used to sample external textures
// whose producer transform is not the identity.
//
// Importing the package registers the "native" backend:
//
//	import _ "github.com/gogpu/exttex/backend/native"
//
// A device owned by the host application can be passed to New; otherwise
// Init opens a standalone Vulkan device.
package native
