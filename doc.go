// Package imm provides an immediate-mode draw-call batching renderer.
//
// # Overview
//
// Higher-level helpers (shapes, sprites, text) push small pieces of
// geometry every frame. The Renderer appends them to shared per-frame
// vertex and index arrays and groups consecutive pushes that share the same
// render state into one draw call. Flush then submits the draw calls to a
// Backend in push order, so z-order follows submission order.
//
// # Quick Start
//
//	b := recording.New(800, 600) // or wgpu.New(device, queue)
//	r, err := imm.NewRenderer[imm.Vertex](b)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	verts, idx := imm.Quad(10, 10, 100, 50, imm.Red)
//	r.PushGeometry(verts, idx)
//	r.WithTexture(sprite)
//	r.PushGeometry(verts, idx) // new draw call: texture changed
//
//	if err := r.Flush(b, mgl32.Ortho2D(0, 800, 600, 0)); err != nil {
//	    log.Print(err)
//	}
//
// # Batching
//
// A push opens a new draw call when texture, clip, viewport, model matrix,
// pipeline, render pass, draw mode or capture flag differ from the last
// call, when a pipeline, uniform or texture setter ran since then, or when
// the call is out of room. Indices are rebased so that each draw call
// addresses its own vertex range starting at zero.
//
// # Pipelines and Materials
//
// Every renderer owns a fixed-size pipeline registry. Slots 0..3 hold the
// built-in pipelines (triangles, lines, and their depth-tested variants).
// Custom pipelines carry the Projection, Model and Time uniforms followed
// by their own, packed in declaration order, and any number of named
// textures after the reserved "Texture" slot. Material wraps a custom
// pipeline with shader #include preprocessing.
//
// # Backends
//
// The Backend interface is implemented by backend/wgpu (gogpu/wgpu HAL
// with WGSL compiled by naga) and by recording, which keeps a typed log of
// every GPU command for tests and debugging.
//
// # Logging
//
// imm logs through log/slog and is silent by default. See SetLogger.
package imm
