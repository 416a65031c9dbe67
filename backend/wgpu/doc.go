// Package wgpu implements imm.Backend on a gogpu/wgpu HAL device.
//
// The backend renders into either a surface view supplied by the host
// (SetSurfaceTarget) or an offscreen texture it owns. Every render pass
// carries a Depth24Plus attachment owned by the backend, so pipelines with
// and without depth testing share one pass layout.
//
// # Shaders
//
// Shaders are WGSL. Each one is parsed and lowered by naga, and its
// var<uniform> struct at @group(0) @binding(0) is checked member by member
// against the packed uniform layout the renderer writes. A mismatch in name
// or offset makes NewShader fail instead of producing garbage on screen.
// By default the lowered module is also emitted as SPIR-V and handed to the
// HAL alongside the WGSL text.
//
// Binding convention (group 0):
//
//	binding 0        uniform block
//	binding 1+2i     image i (texture_2d<f32>)
//	binding 2+2i     sampler of image i
//
// # Usage
//
//	b, err := wgpu.New(device, queue, wgpu.WithScreenSize(800, 600))
//	if err != nil {
//	    return err
//	}
//	defer b.Destroy()
//	r, err := imm.NewRenderer[imm.Vertex](b)
//
// With a host application that exposes its HAL objects:
//
//	b, err := wgpu.NewFromProvider(app)
//	...
//	b.SetSurfaceTarget(frameView, width, height)
//
// Importing the package also registers a "noop" backend with
// imm.RegisterBackend that runs on the wgpu noop device, useful for
// headless tests and demos.
//
// # Thread Safety
//
// Backend is not safe for concurrent use. It is driven from the goroutine
// that owns the renderer.
package wgpu
