package imm

import (
	"fmt"
	"slices"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// drawCall is one GPU draw: a contiguous range of the frame's vertex and
// index arrays plus the state it is drawn with.
type drawCall struct {
	pipeline Pipeline
	texture  TextureID
	mode     DrawMode
	model    mgl32.Mat4
	clip     optRect
	viewport optRect
	pass     RenderPassID
	capture  bool

	vertexStart, vertexCount int
	indexStart, indexCount   int

	// uniforms and textures are copied from the pipeline when the call
	// opens, so later setter calls do not leak into it.
	uniforms []byte
	textures []TextureID
}

// gpuBuffers is the vertex/index buffer pair owned by one draw-call slot.
type gpuBuffers struct {
	vertex, index BufferID
}

// Renderer batches immediate-mode geometry into draw calls and submits
// them to a Backend once per frame.
//
// A Renderer is not safe for concurrent use. The backend is passed to each
// operation that talks to the GPU and is never retained.
type Renderer[V Vertexer] struct {
	opts  options
	attrs []VertexAttribute
	reg   registry
	state renderState
	start time.Time

	calls    []drawCall
	numCalls int
	vertices []V
	indices  []uint16
	buffers  []gpuBuffers

	white   TextureID
	images  []TextureID
	scratch []byte
	last    FrameStats
}

// NewRenderer creates a renderer for vertex type V and registers the four
// built-in pipelines on b.
//
// Example:
//
//	r, err := imm.NewRenderer[imm.Vertex](backend)
//	if err != nil {
//	    return err
//	}
//	r.PushGeometry(quad, []uint16{0, 1, 2, 0, 2, 3})
//	err = r.Flush(backend, mgl32.Ortho2D(0, 800, 600, 0))
func NewRenderer[V Vertexer](b Backend, opts ...Option) (*Renderer[V], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	attrs, err := checkVertexLayout[V]()
	if err != nil {
		return nil, err
	}

	r := &Renderer[V]{
		opts:     o,
		attrs:    attrs,
		reg:      newRegistry(o.pipelineCapacity),
		state:    newRenderState(),
		start:    o.clock(),
		calls:    make([]drawCall, 0, o.initialDrawCalls),
		vertices: make([]V, 0, o.maxVertices),
		indices:  make([]uint16, 0, o.maxIndices),
	}

	shader := ShaderSource{WGSL: DefaultShader}
	if o.defaultShader != nil {
		shader = *o.defaultShader
	}
	for i, params := range builtinPipelines {
		if err := r.reg.createPipeline(b, i, attrs, shader, params, nil, nil); err != nil {
			r.Destroy(b)
			return nil, fmt.Errorf("imm: built-in pipeline %d: %w", i, err)
		}
		r.reg.slots[i].builtin = true
	}
	return r, nil
}

// Destroy releases every GPU object owned by the renderer. The renderer
// must not be used afterwards.
func (r *Renderer[V]) Destroy(b Backend) {
	r.releaseBuffers(b)
	if r.white != NoTexture {
		b.DeleteTexture(r.white)
		r.white = NoTexture
	}
	for i := range r.reg.slots {
		rec := &r.reg.slots[i]
		if !rec.live {
			continue
		}
		b.DeletePipeline(rec.pipeline)
		b.DeleteShader(rec.shader)
		*rec = pipelineRecord{gen: rec.gen + 1}
	}
	r.clearDrawCalls()
}

// MaxVertices returns the per-draw-call vertex capacity.
func (r *Renderer[V]) MaxVertices() int { return r.opts.maxVertices }

// MaxIndices returns the per-draw-call index capacity.
func (r *Renderer[V]) MaxIndices() int { return r.opts.maxIndices }

// effectivePipeline returns the override or the matching built-in.
func (r *Renderer[V]) effectivePipeline() Pipeline {
	if !r.state.pipeline.IsZero() {
		return r.state.pipeline
	}
	return r.reg.builtin(r.state.mode, r.state.depth)
}

// PushGeometry appends vertices and indices to the current frame. Indices
// are relative to vertices. Geometry exceeding the per-call capacity is
// truncated with a warning, dropping every primitive that addresses a
// vertex past the cut. A push without vertices is ignored.
//
// A new draw call is opened when any render state differs from the last
// call, when a pipeline, uniform or texture change forced a break, or when
// the last call has no room left.
func (r *Renderer[V]) PushGeometry(vertices []V, indices []uint16) {
	if len(vertices) == 0 {
		return
	}
	if len(vertices) > r.opts.maxVertices || len(indices) > r.opts.maxIndices {
		Logger().Warn("imm: geometry exceeds max draw call size, clamping",
			"vertices", len(vertices), "indices", len(indices),
			"max_vertices", r.opts.maxVertices, "max_indices", r.opts.maxIndices)
		vertices = vertices[:min(len(vertices), r.opts.maxVertices)]
		indices = clampIndices(indices[:min(len(indices), r.opts.maxIndices)],
			len(vertices), r.state.mode.primitiveSize())
	}

	pipeline := r.effectivePipeline()
	s := &r.state

	var dc *drawCall
	if r.numCalls > 0 {
		dc = &r.calls[r.numCalls-1]
	}
	if dc == nil || s.breakBatching ||
		dc.texture != s.texture ||
		dc.clip != s.clip ||
		dc.viewport != s.viewport ||
		dc.model != s.model() ||
		dc.pipeline != pipeline ||
		dc.pass != s.pass ||
		dc.mode != s.mode ||
		dc.capture != s.capture ||
		dc.vertexCount+len(vertices) > r.opts.maxVertices ||
		dc.indexCount+len(indices) > r.opts.maxIndices {
		dc = r.openDrawCall(pipeline)
	}

	base := uint16(dc.vertexCount) //nolint:gosec // vertexCount < MaxVerticesLimit
	r.vertices = append(r.vertices, vertices...)
	for _, idx := range indices {
		r.indices = append(r.indices, idx+base)
	}
	dc.vertexCount += len(vertices)
	dc.indexCount += len(indices)
}

// clampIndices keeps whole primitives whose indices all address one of
// the first n vertices. The caller's slice is not modified.
func clampIndices(indices []uint16, n, size int) []uint16 {
	kept := make([]uint16, 0, len(indices)-len(indices)%size)
	for i := 0; i+size <= len(indices); i += size {
		prim := indices[i : i+size]
		if int(slices.Max(prim)) < n {
			kept = append(kept, prim...)
		}
	}
	return kept
}

func (r *Renderer[V]) openDrawCall(pipeline Pipeline) *drawCall {
	if r.numCalls == len(r.calls) {
		r.calls = append(r.calls, drawCall{})
	}
	dc := &r.calls[r.numCalls]
	r.numCalls++

	rec := r.reg.get(pipeline)
	s := &r.state
	dc.pipeline = pipeline
	dc.texture = s.texture
	dc.mode = s.mode
	dc.model = s.model()
	dc.clip = s.clip
	dc.viewport = s.viewport
	dc.pass = s.pass
	dc.capture = s.capture
	dc.vertexStart = len(r.vertices)
	dc.indexStart = len(r.indices)
	dc.vertexCount = 0
	dc.indexCount = 0
	dc.uniforms = append(dc.uniforms[:0], rec.uniforms...)
	dc.textures = append(dc.textures[:0], rec.textures...)

	s.breakBatching = false
	return dc
}

// WithTexture sets the texture of subsequent geometry. NoTexture draws
// with a white texture, so vertex colors show through unchanged.
func (r *Renderer[V]) WithTexture(tex TextureID) {
	r.state.texture = tex
}

// WithDrawMode selects triangles or lines.
func (r *Renderer[V]) WithDrawMode(mode DrawMode) {
	r.state.mode = mode
}

// WithScissor clips subsequent geometry to clip, given with a top-left
// origin. A nil clip disables clipping.
func (r *Renderer[V]) WithScissor(clip *Rect) {
	r.state.clip = someRect(clip)
}

// WithViewport sets the viewport of subsequent geometry. A nil viewport
// covers the whole render target.
func (r *Renderer[V]) WithViewport(viewport *Rect) {
	r.state.viewport = someRect(viewport)
}

// Viewport returns the explicit viewport or the full size of the active
// render target.
func (r *Renderer[V]) Viewport(b Backend) Rect {
	if r.state.viewport.ok {
		return r.state.viewport.rect
	}
	w, h := targetSize(b, r.state.pass)
	return Rect{W: w, H: h}
}

// Scissor returns the active clip rectangle, or nil.
func (r *Renderer[V]) Scissor() *Rect {
	return r.state.clip.ptr()
}

// PushModelMatrix multiplies m onto the current model matrix and makes the
// product current.
func (r *Renderer[V]) PushModelMatrix(m mgl32.Mat4) {
	r.state.pushModel(m)
}

// PopModelMatrix restores the previous model matrix. It reports false and
// does nothing when only the identity base remains.
func (r *Renderer[V]) PopModelMatrix() bool {
	return r.state.popModel()
}

// Model returns the current model matrix.
func (r *Renderer[V]) Model() mgl32.Mat4 {
	return r.state.model()
}

// WithRenderPass directs subsequent geometry to pass. DefaultPass targets
// the backbuffer.
func (r *Renderer[V]) WithRenderPass(pass RenderPassID) {
	r.state.pass = pass
}

// ActiveRenderPass returns the current render pass.
func (r *Renderer[V]) ActiveRenderPass() RenderPassID {
	return r.state.pass
}

// WithDepthTest selects the depth-tested built-in pipelines.
func (r *Renderer[V]) WithDepthTest(enabled bool) {
	r.state.depth = enabled
}

// DepthTestEnabled reports whether depth testing is on.
func (r *Renderer[V]) DepthTestEnabled() bool {
	return r.state.depth
}

// WithCapture marks subsequent geometry for capture. Captured draw calls
// are reported by LastFrame after the next Flush.
func (r *Renderer[V]) WithCapture(capture bool) {
	r.state.capture = capture
}

// WithPipeline overrides the pipeline of subsequent geometry. NoPipeline
// restores the built-in selection. A handle that is not live in this
// renderer panics.
func (r *Renderer[V]) WithPipeline(p Pipeline) {
	if !p.IsZero() && !r.reg.has(p) {
		panic(fmt.Sprintf("imm: WithPipeline: %v does not belong to this renderer or was deleted", p))
	}
	if r.state.pipeline != p {
		r.state.breakBatching = true
	}
	r.state.pipeline = p
}

// ActivePipeline returns the pipeline override, or NoPipeline.
func (r *Renderer[V]) ActivePipeline() Pipeline {
	return r.state.pipeline
}

// Reset restores clip, texture and model stack and discards pending draw
// calls without drawing them.
func (r *Renderer[V]) Reset() {
	r.state.reset()
	r.clearDrawCalls()
}

func (r *Renderer[V]) clearDrawCalls() {
	r.numCalls = 0
	r.vertices = r.vertices[:0]
	r.indices = r.indices[:0]
}
