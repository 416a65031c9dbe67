package imm

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// DrawCallInfo describes one draw call for inspection and capture.
type DrawCallInfo struct {
	Pipeline    Pipeline
	Texture     TextureID
	Mode        DrawMode
	Model       mgl32.Mat4
	Clip        *Rect
	Viewport    *Rect
	RenderPass  RenderPassID
	Capture     bool
	VertexStart int
	VertexCount int
	IndexStart  int
	IndexCount  int
}

func (dc *drawCall) info() DrawCallInfo {
	return DrawCallInfo{
		Pipeline:    dc.pipeline,
		Texture:     dc.texture,
		Mode:        dc.mode,
		Model:       dc.model,
		Clip:        dc.clip.ptr(),
		Viewport:    dc.viewport.ptr(),
		RenderPass:  dc.pass,
		Capture:     dc.capture,
		VertexStart: dc.vertexStart,
		VertexCount: dc.vertexCount,
		IndexStart:  dc.indexStart,
		IndexCount:  dc.indexCount,
	}
}

// FrameStats summarizes the last flushed frame.
type FrameStats struct {
	DrawCalls int
	Vertices  int
	Indices   int
	// Captured lists the draw calls pushed while capture was enabled.
	Captured []DrawCallInfo
}

// LastFrame returns statistics of the most recent Flush.
func (r *Renderer[V]) LastFrame() FrameStats {
	return r.last
}

// PendingDrawCalls returns the draw calls batched since the last flush.
func (r *Renderer[V]) PendingDrawCalls() []DrawCallInfo {
	out := make([]DrawCallInfo, r.numCalls)
	for i := range out {
		out[i] = r.calls[i].info()
	}
	return out
}

// PendingGeometry returns the vertices and call-relative indices of
// pending draw call i. The slices alias renderer memory until the next
// push or flush.
func (r *Renderer[V]) PendingGeometry(i int) ([]V, []uint16) {
	dc := &r.calls[i]
	return r.vertices[dc.vertexStart : dc.vertexStart+dc.vertexCount],
		r.indices[dc.indexStart : dc.indexStart+dc.indexCount]
}

// Flush draws every pending draw call in push order with projection and
// empties the batch. Backend failures do not stop the frame: each failed
// call is logged and all failures are returned joined.
func (r *Renderer[V]) Flush(b Backend, projection mgl32.Mat4) error {
	defer r.clearDrawCalls()

	if err := r.ensureBuffers(b); err != nil {
		return err
	}
	if err := r.ensureWhite(b); err != nil {
		return err
	}

	t := float32(r.opts.clock().Sub(r.start).Seconds())
	timeVec := mgl32.Vec4{t, float32(math.Sin(float64(t))), float32(math.Cos(float64(t))), 0}

	var stats FrameStats
	var errs []error
	for i := 0; i < r.numCalls; i++ {
		dc := &r.calls[i]
		if err := r.drawOne(b, i, dc, projection, timeVec); err != nil {
			Logger().Warn("imm: draw call failed", "index", i, "err", err)
			errs = append(errs, fmt.Errorf("draw call %d: %w", i, err))
		}
		stats.DrawCalls++
		stats.Vertices += dc.vertexCount
		stats.Indices += dc.indexCount
		if dc.capture {
			stats.Captured = append(stats.Captured, dc.info())
		}
		dc.vertexCount = 0
		dc.indexCount = 0
	}
	r.last = stats
	return errors.Join(errs...)
}

func (r *Renderer[V]) drawOne(b Backend, i int, dc *drawCall, projection mgl32.Mat4, timeVec mgl32.Vec4) error {
	if !r.reg.has(dc.pipeline) {
		return fmt.Errorf("imm: %v was deleted before flush", dc.pipeline)
	}
	rec := &r.reg.slots[dc.pipeline.index]
	bufs := r.buffers[i]

	b.BeginPass(dc.pass, PassAction{})

	var errs []error
	verts := r.vertices[dc.vertexStart : dc.vertexStart+dc.vertexCount]
	if err := b.UpdateBuffer(bufs.vertex, vertexBytes(verts)); err != nil {
		errs = append(errs, fmt.Errorf("upload vertices: %w", err))
	}
	idx := r.indices[dc.indexStart : dc.indexStart+dc.indexCount]
	if err := b.UpdateBuffer(bufs.index, indexBytes(idx)); err != nil {
		errs = append(errs, fmt.Errorf("upload indices: %w", err))
	}

	r.images = r.images[:0]
	r.images = append(r.images, r.orWhite(dc.texture))
	for _, tex := range dc.textures {
		r.images = append(r.images, r.orWhite(tex))
	}

	w, h := targetSize(b, dc.pass)
	viewport := Rect{W: w, H: h}
	if dc.viewport.ok {
		viewport = dc.viewport.rect
	}
	scissor := Rect{W: w, H: h}
	if dc.clip.ok {
		c := dc.clip.rect
		scissor = Rect{X: c.X, Y: h - (c.Y + c.H), W: c.W, H: c.H}
	}

	r.scratch = append(r.scratch[:0], dc.uniforms...)
	r.writeReserved(rec.layout, projection, dc.model, timeVec)

	b.ApplyPipeline(rec.pipeline)
	b.ApplyViewport(viewport)
	b.ApplyScissor(scissor)
	b.ApplyBindings(Bindings{VertexBuffer: bufs.vertex, IndexBuffer: bufs.index, Images: r.images})
	b.ApplyUniforms(r.scratch)
	b.Draw(0, dc.indexCount, 1)
	if err := b.EndPass(); err != nil {
		errs = append(errs, fmt.Errorf("end pass: %w", err))
	}
	return errors.Join(errs...)
}

func (r *Renderer[V]) writeReserved(layout *uniformLayout, projection, model mgl32.Mat4, timeVec mgl32.Vec4) {
	put := func(name string, vals []float32) {
		slot, _ := layout.lookup(name)
		for k, v := range vals {
			off := slot.offset + 4*k
			bits := math.Float32bits(v)
			r.scratch[off] = byte(bits)
			r.scratch[off+1] = byte(bits >> 8)
			r.scratch[off+2] = byte(bits >> 16)
			r.scratch[off+3] = byte(bits >> 24)
		}
	}
	put(UniformProjection, projection[:])
	put(UniformModel, model[:])
	put(UniformTime, timeVec[:])
}

func (r *Renderer[V]) orWhite(tex TextureID) TextureID {
	if tex == NoTexture {
		return r.white
	}
	return tex
}

// Clear fills the active render target (or the backbuffer) with color and
// discards pending draw calls without drawing them.
func (r *Renderer[V]) Clear(b Backend, color RGBA) error {
	defer r.clearDrawCalls()
	b.BeginPass(r.state.pass, PassAction{Clear: true, Color: color.GPU(), Depth: 1})
	if err := b.EndPass(); err != nil {
		return fmt.Errorf("imm: clear: %w", err)
	}
	return nil
}

// ResizeCapacity changes the per-draw-call capacities. Every GPU buffer is
// destroyed and recreated at the new size and pending draw calls are
// discarded, so it should not be called every frame.
func (r *Renderer[V]) ResizeCapacity(b Backend, maxVertices, maxIndices int) error {
	o := r.opts
	o.maxVertices = maxVertices
	o.maxIndices = maxIndices
	if err := o.validate(); err != nil {
		return err
	}
	slots := len(r.buffers)
	r.releaseBuffers(b)
	r.opts = o
	r.clearDrawCalls()
	if cap(r.vertices) < maxVertices {
		r.vertices = make([]V, 0, maxVertices)
	}
	if cap(r.indices) < maxIndices {
		r.indices = make([]uint16, 0, maxIndices)
	}
	return r.growBuffers(b, slots)
}

// ensureBuffers makes sure every pending draw call has a GPU buffer pair.
func (r *Renderer[V]) ensureBuffers(b Backend) error {
	return r.growBuffers(b, r.numCalls)
}

func (r *Renderer[V]) growBuffers(b Backend, n int) error {
	if len(r.buffers) >= n {
		return nil
	}
	vsize := r.opts.maxVertices * VertexStride(r.attrs)
	isize := (r.opts.maxIndices*2 + 3) &^ 3
	for len(r.buffers) < n {
		vb, err := b.NewBuffer(VertexBuffer, vsize)
		if err != nil {
			return fmt.Errorf("imm: create vertex buffer: %w", err)
		}
		ib, err := b.NewBuffer(IndexBuffer, isize)
		if err != nil {
			b.DeleteBuffer(vb)
			return fmt.Errorf("imm: create index buffer: %w", err)
		}
		r.buffers = append(r.buffers, gpuBuffers{vertex: vb, index: ib})
	}
	Logger().Debug("imm: draw call buffers grown", "slots", len(r.buffers),
		"vertex_bytes", vsize, "index_bytes", isize)
	return nil
}

func (r *Renderer[V]) releaseBuffers(b Backend) {
	for _, bufs := range r.buffers {
		b.DeleteBuffer(bufs.vertex)
		b.DeleteBuffer(bufs.index)
	}
	r.buffers = r.buffers[:0]
}

func (r *Renderer[V]) ensureWhite(b Backend) error {
	if r.white != NoTexture {
		return nil
	}
	tex, err := b.NewTexture(TextureDesc{Width: 1, Height: 1}, []byte{255, 255, 255, 255})
	if err != nil {
		return fmt.Errorf("imm: create white texture: %w", err)
	}
	r.white = tex
	return nil
}
