package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/imm"
)

// retired holds objects the GPU may still read. They are destroyed once
// the queue reports their submission as completed.
type retired struct {
	submission uint64
	buffer     hal.Buffer
	bindGroup  hal.BindGroup
	texture    *texture
	depth      *depthTarget
}

func (b *Backend) retire(r retired) {
	r.submission = ^uint64(0)
	if b.frame == nil {
		// Nothing is being encoded; the last submit is the newest reader.
		r.submission = b.submitted
	}
	b.pending = append(b.pending, r)
}

// collect destroys retired objects whose submission is at most done.
func (b *Backend) collect(done uint64) {
	keep := b.pending[:0]
	for _, r := range b.pending {
		if r.submission > done && done != ^uint64(0) {
			keep = append(keep, r)
			continue
		}
		if r.bindGroup != nil {
			b.device.DestroyBindGroup(r.bindGroup)
		}
		if r.buffer != nil {
			b.device.DestroyBuffer(r.buffer)
		}
		if r.texture != nil {
			r.texture.destroy(b.device)
		}
		if r.depth != nil {
			r.depth.destroy(b.device)
		}
	}
	clear(b.pending[len(keep):])
	b.pending = keep
}

// frame is the state of one BeginPass/EndPass bracket.
type frame struct {
	encoder hal.CommandEncoder
	pass    hal.RenderPassEncoder
	width   int
	height  int

	pipeline *pipeline
	images   []imm.TextureID
	uniforms []byte

	transient []retired
	errs      []error
}

func (f *frame) fail(err error) {
	f.errs = append(f.errs, err)
}

func (f *frame) discard() {
	if f.pass != nil {
		f.pass.End()
		f.pass = nil
	}
	if f.encoder != nil {
		f.encoder.DiscardEncoding()
		f.encoder = nil
	}
}

// BeginPass implements imm.Backend. Failures are reported by EndPass.
func (b *Backend) BeginPass(id imm.RenderPassID, action imm.PassAction) {
	if b.frame != nil {
		imm.Logger().Warn("wgpu: BeginPass inside an open pass, discarding it")
		b.frame.discard()
		b.collectTransient(b.frame, b.submitted)
	}
	b.collect(b.queue.PollCompleted())

	f := &frame{}
	b.frame = f

	var color, depth hal.TextureView
	switch id {
	case imm.DefaultPass:
		color = b.screenView()
		view, err := b.screenDepthView()
		if err != nil {
			f.fail(err)
			return
		}
		depth = view
		f.width, f.height = b.width, b.height
	default:
		p, ok := b.passes[id]
		if !ok {
			f.fail(fmt.Errorf("wgpu: unknown render pass %d", id))
			return
		}
		ct, ok := b.textures[p.color]
		if !ok {
			f.fail(fmt.Errorf("wgpu: render pass %d lost its color texture", id))
			return
		}
		color, depth = ct.view, p.depth.view
		f.width, f.height = ct.width, ct.height
	}

	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: b.opts.label + "_encoder",
	})
	if err != nil {
		f.fail(fmt.Errorf("wgpu: create command encoder: %w", err))
		return
	}
	if err := encoder.BeginEncoding(b.opts.label); err != nil {
		f.fail(fmt.Errorf("wgpu: begin encoding: %w", err))
		return
	}
	f.encoder = encoder

	loadOp := gputypes.LoadOpLoad
	if action.Clear {
		loadOp = gputypes.LoadOpClear
	}
	clearDepth := action.Depth
	if clearDepth == 0 {
		clearDepth = 1
	}
	f.pass = encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: b.opts.label + "_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:       color,
				LoadOp:     loadOp,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: action.Color,
			},
		},
		DepthStencilAttachment: &hal.RenderPassDepthStencilAttachment{
			View:            depth,
			DepthLoadOp:     loadOp,
			DepthStoreOp:    gputypes.StoreOpStore,
			DepthClearValue: clearDepth,
		},
	})
}

// ApplyPipeline implements imm.Backend.
func (b *Backend) ApplyPipeline(id imm.PipelineID) {
	f := b.frame
	if f == nil || f.pass == nil {
		return
	}
	p, ok := b.pipelines[id]
	if !ok {
		f.fail(fmt.Errorf("wgpu: unknown pipeline %d", id))
		return
	}
	f.pipeline = p
	f.pass.SetPipeline(p.pipe)
}

// flipClamp converts a bottom-left rect to a top-left one inside the
// target.
func flipClamp(r imm.Rect, width, height int) (x, y, w, h int) {
	top := height - (r.Y + r.H)
	x0, y0 := min(max(r.X, 0), width), min(max(top, 0), height)
	x1, y1 := min(r.X+r.W, width), min(top+r.H, height)
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	return x0, y0, x1 - x0, y1 - y0
}

// ApplyViewport implements imm.Backend.
func (b *Backend) ApplyViewport(r imm.Rect) {
	f := b.frame
	if f == nil || f.pass == nil {
		return
	}
	x, y, w, h := flipClamp(r, f.width, f.height)
	f.pass.SetViewport(float32(x), float32(y), float32(w), float32(h), 0, 1)
}

// ApplyScissor implements imm.Backend.
func (b *Backend) ApplyScissor(r imm.Rect) {
	f := b.frame
	if f == nil || f.pass == nil {
		return
	}
	x, y, w, h := flipClamp(r, f.width, f.height)
	f.pass.SetScissorRect(uint32(x), uint32(y), uint32(w), uint32(h)) //nolint:gosec // clamped to target
}

// ApplyBindings implements imm.Backend.
func (b *Backend) ApplyBindings(bind imm.Bindings) {
	f := b.frame
	if f == nil || f.pass == nil {
		return
	}
	vb, ok := b.buffers[bind.VertexBuffer]
	if !ok || vb.kind != imm.VertexBuffer {
		f.fail(fmt.Errorf("wgpu: bad vertex buffer %d", bind.VertexBuffer))
		return
	}
	ib, ok := b.buffers[bind.IndexBuffer]
	if !ok || ib.kind != imm.IndexBuffer {
		f.fail(fmt.Errorf("wgpu: bad index buffer %d", bind.IndexBuffer))
		return
	}
	f.pass.SetVertexBuffer(0, vb.buf, 0)
	f.pass.SetIndexBuffer(ib.buf, gputypes.IndexFormatUint16, 0)
	f.images = append(f.images[:0], bind.Images...)
}

// ApplyUniforms implements imm.Backend.
func (b *Backend) ApplyUniforms(data []byte) {
	f := b.frame
	if f == nil {
		return
	}
	f.uniforms = append(f.uniforms[:0], data...)
}

// Draw implements imm.Backend. It builds the bind group for the current
// pipeline from the applied images and uniforms.
func (b *Backend) Draw(baseElement, numElements, numInstances int) {
	f := b.frame
	if f == nil || f.pass == nil {
		return
	}
	if f.pipeline == nil {
		f.fail(errors.New("wgpu: draw without pipeline"))
		return
	}
	group, err := b.bindGroup(f)
	if err != nil {
		f.fail(err)
		return
	}
	f.pass.SetBindGroup(0, group, nil)
	f.pass.DrawIndexed(
		uint32(numElements),  //nolint:gosec // bounded by index capacity
		uint32(numInstances), //nolint:gosec // caller passes 1
		uint32(baseElement),  //nolint:gosec // bounded by index capacity
		0, 0)
	b.draws++
}

func (b *Backend) bindGroup(f *frame) (hal.BindGroup, error) {
	s := f.pipeline.shader
	if len(f.images) != len(s.meta.Images) {
		return nil, fmt.Errorf("wgpu: %d images bound, pipeline expects %d",
			len(f.images), len(s.meta.Images))
	}

	entries := make([]gputypes.BindGroupEntry, 0, 1+2*len(f.images))
	if s.uniformSize > 0 {
		if len(f.uniforms) > int(s.uniformSize) {
			return nil, fmt.Errorf("wgpu: %d uniform bytes exceed block of %d",
				len(f.uniforms), s.uniformSize)
		}
		ub, err := b.device.CreateBuffer(&hal.BufferDescriptor{
			Label: b.opts.label + "_uniforms",
			Size:  s.uniformSize,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("wgpu: create uniform buffer: %w", err)
		}
		f.transient = append(f.transient, retired{buffer: ub})
		data := make([]byte, s.uniformSize)
		copy(data, f.uniforms)
		if err := b.queue.WriteBuffer(ub, 0, data); err != nil {
			return nil, fmt.Errorf("wgpu: write uniforms: %w", err)
		}
		entries = append(entries, gputypes.BindGroupEntry{
			Binding: 0,
			Resource: gputypes.BufferBinding{
				Buffer: ub.NativeHandle(), Offset: 0, Size: s.uniformSize,
			},
		})
	}
	for i, id := range f.images {
		t, ok := b.textures[id]
		if !ok {
			return nil, fmt.Errorf("wgpu: unknown texture %d for %q", id, s.meta.Images[i])
		}
		entries = append(entries,
			gputypes.BindGroupEntry{
				Binding:  textureBinding(i),
				Resource: gputypes.TextureViewBinding{TextureView: t.view.NativeHandle()},
			},
			gputypes.BindGroupEntry{
				Binding:  samplerBinding(i),
				Resource: gputypes.SamplerBinding{Sampler: t.sampler.NativeHandle()},
			},
		)
	}

	group, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   b.opts.label + "_bind",
		Layout:  s.bindLayout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create bind group: %w", err)
	}
	f.transient = append(f.transient, retired{bindGroup: group})
	return group, nil
}

// EndPass implements imm.Backend. It submits the pass and returns every
// error collected since BeginPass.
func (b *Backend) EndPass() error {
	f := b.frame
	if f == nil {
		return errors.New("wgpu: EndPass without BeginPass")
	}
	b.frame = nil

	if f.pass == nil || f.encoder == nil {
		f.discard()
		b.collectTransient(f, b.submitted)
		return errors.Join(f.errs...)
	}
	f.pass.End()
	f.pass = nil

	cmd, err := f.encoder.EndEncoding()
	if err != nil {
		f.fail(fmt.Errorf("wgpu: end encoding: %w", err))
		b.collectTransient(f, b.submitted)
		return errors.Join(f.errs...)
	}
	defer b.device.FreeCommandBuffer(cmd)

	index, err := b.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		f.fail(fmt.Errorf("wgpu: submit: %w", err))
		index = b.submitted
	}
	b.submitted = max(b.submitted, index)
	b.collectTransient(f, index)
	return errors.Join(f.errs...)
}

// collectTransient hands the pass's per-draw objects to the retire list,
// tagged with the submission that reads them. Objects retired while the
// pass was open get the same tag.
func (b *Backend) collectTransient(f *frame, submission uint64) {
	for i := range b.pending {
		if b.pending[i].submission == ^uint64(0) {
			b.pending[i].submission = submission
		}
	}
	for _, r := range f.transient {
		r.submission = submission
		b.pending = append(b.pending, r)
	}
	f.transient = nil
}
