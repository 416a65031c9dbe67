package recording

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/imm"
)

func init() {
	imm.RegisterBackend("recording", func(width, height int) (imm.Backend, error) {
		return New(width, height), nil
	})
}

type buffer struct {
	kind imm.BufferKind
	size int
	data []byte
}

type texture struct {
	desc   imm.TextureDesc
	pixels []byte
}

type pipeline struct {
	shader imm.ShaderID
	params imm.PipelineParams
	stride int
	images int
}

type renderPass struct {
	color, depth imm.TextureID
}

// Backend implements imm.Backend by recording every call.
//
// Draw validates the bound state the way a GPU validation layer would:
// unknown handles, indices past the end of the vertex data and images not
// matching the pipeline are collected and returned by EndPass.
//
// Backend is not safe for concurrent use.
type Backend struct {
	width, height int
	next          uint64

	buffers   map[imm.BufferID]*buffer
	shaders   map[imm.ShaderID]imm.ShaderMeta
	pipelines map[imm.PipelineID]pipeline
	textures  map[imm.TextureID]*texture
	passes    map[imm.RenderPassID]renderPass

	commands []Command

	inPass     bool
	passErrs   []error
	draw       DrawCommand
	bindings   imm.Bindings
	failShader error
}

var _ imm.Backend = (*Backend)(nil)

// New creates a recording backend with a width x height backbuffer.
func New(width, height int) *Backend {
	return &Backend{
		width:     width,
		height:    height,
		buffers:   make(map[imm.BufferID]*buffer),
		shaders:   make(map[imm.ShaderID]imm.ShaderMeta),
		pipelines: make(map[imm.PipelineID]pipeline),
		textures:  make(map[imm.TextureID]*texture),
		passes:    make(map[imm.RenderPassID]renderPass),
		commands:  make([]Command, 0, 256),
	}
}

func (b *Backend) id() uint64 {
	b.next++
	return b.next
}

func (b *Backend) record(c Command) {
	b.commands = append(b.commands, c)
}

// Commands returns the recorded commands in call order.
func (b *Backend) Commands() []Command {
	return b.commands
}

// DrawCommands returns only the recorded draws.
func (b *Backend) DrawCommands() []DrawCommand {
	var out []DrawCommand
	for _, c := range b.commands {
		if d, ok := c.(DrawCommand); ok {
			out = append(out, d)
		}
	}
	return out
}

// Count returns how many commands of type t were recorded.
func (b *Backend) Count(t CommandType) int {
	n := 0
	for _, c := range b.commands {
		if c.Type() == t {
			n++
		}
	}
	return n
}

// Reset clears the command log. Resources stay alive.
func (b *Backend) Reset() {
	b.commands = b.commands[:0]
}

// Resize changes the backbuffer size.
func (b *Backend) Resize(width, height int) {
	b.width, b.height = width, height
}

// LiveObjects returns the number of buffers, shaders, pipelines, textures
// and render passes not yet deleted.
func (b *Backend) LiveObjects() int {
	return len(b.buffers) + len(b.shaders) + len(b.pipelines) + len(b.textures) + len(b.passes)
}

// BufferData returns the current contents of buf.
func (b *Backend) BufferData(buf imm.BufferID) []byte {
	if rb, ok := b.buffers[buf]; ok {
		return rb.data
	}
	return nil
}

// TexturePixels returns the RGBA8 pixels a texture was created with.
func (b *Backend) TexturePixels(tex imm.TextureID) []byte {
	if t, ok := b.textures[tex]; ok {
		return t.pixels
	}
	return nil
}

// FailNextShader makes the next NewShader call return err.
func (b *Backend) FailNextShader(err error) {
	b.failShader = err
}

// NewBuffer implements imm.Backend.
func (b *Backend) NewBuffer(kind imm.BufferKind, size int) (imm.BufferID, error) {
	if size <= 0 {
		return 0, fmt.Errorf("recording: invalid buffer size %d", size)
	}
	id := imm.BufferID(b.id())
	b.buffers[id] = &buffer{kind: kind, size: size}
	b.record(CreateBufferCommand{Buffer: id, Kind: kind, Size: size})
	return id, nil
}

// UpdateBuffer implements imm.Backend.
func (b *Backend) UpdateBuffer(buf imm.BufferID, data []byte) error {
	rb, ok := b.buffers[buf]
	if !ok {
		return fmt.Errorf("recording: update of unknown buffer %d", buf)
	}
	if len(data) > rb.size {
		return fmt.Errorf("recording: %d bytes overflow %s buffer %d of %d bytes", len(data), rb.kind, buf, rb.size)
	}
	rb.data = append(rb.data[:0], data...)
	b.record(UpdateBufferCommand{Buffer: buf, Size: len(data)})
	return nil
}

// DeleteBuffer implements imm.Backend.
func (b *Backend) DeleteBuffer(buf imm.BufferID) {
	delete(b.buffers, buf)
	b.record(DeleteBufferCommand{Buffer: buf})
}

// NewShader implements imm.Backend.
func (b *Backend) NewShader(src imm.ShaderSource, meta imm.ShaderMeta) (imm.ShaderID, error) {
	if err := b.failShader; err != nil {
		b.failShader = nil
		return 0, err
	}
	if src.WGSL == "" {
		return 0, errors.New("recording: empty shader source")
	}
	id := imm.ShaderID(b.id())
	meta.Images = slices.Clone(meta.Images)
	meta.Uniforms = slices.Clone(meta.Uniforms)
	b.shaders[id] = meta
	b.record(CreateShaderCommand{Shader: id, Meta: meta})
	return id, nil
}

// DeleteShader implements imm.Backend.
func (b *Backend) DeleteShader(shader imm.ShaderID) {
	delete(b.shaders, shader)
	b.record(DeleteShaderCommand{Shader: shader})
}

// NewPipeline implements imm.Backend.
func (b *Backend) NewPipeline(layout []imm.VertexAttribute, shader imm.ShaderID, params imm.PipelineParams) (imm.PipelineID, error) {
	meta, ok := b.shaders[shader]
	if !ok {
		return 0, fmt.Errorf("recording: pipeline with unknown shader %d", shader)
	}
	id := imm.PipelineID(b.id())
	b.pipelines[id] = pipeline{
		shader: shader,
		params: params,
		stride: imm.VertexStride(layout),
		images: len(meta.Images),
	}
	b.record(CreatePipelineCommand{Pipeline: id, Shader: shader, Params: params})
	return id, nil
}

// DeletePipeline implements imm.Backend.
func (b *Backend) DeletePipeline(p imm.PipelineID) {
	delete(b.pipelines, p)
	b.record(DeletePipelineCommand{Pipeline: p})
}

// NewTexture implements imm.Backend.
func (b *Backend) NewTexture(desc imm.TextureDesc, rgba []byte) (imm.TextureID, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return 0, fmt.Errorf("recording: invalid texture size %dx%d", desc.Width, desc.Height)
	}
	if rgba != nil && len(rgba) != 4*desc.Width*desc.Height {
		return 0, fmt.Errorf("recording: texture data is %d bytes, want %d", len(rgba), 4*desc.Width*desc.Height)
	}
	id := imm.TextureID(b.id())
	b.textures[id] = &texture{desc: desc, pixels: slices.Clone(rgba)}
	b.record(CreateTextureCommand{Texture: id, Desc: desc})
	return id, nil
}

// DeleteTexture implements imm.Backend.
func (b *Backend) DeleteTexture(tex imm.TextureID) {
	delete(b.textures, tex)
	b.record(DeleteTextureCommand{Texture: tex})
}

// TextureSize implements imm.Backend.
func (b *Backend) TextureSize(tex imm.TextureID) (int, int) {
	t, ok := b.textures[tex]
	if !ok {
		return 0, 0
	}
	return t.desc.Width, t.desc.Height
}

// NewRenderPass implements imm.Backend.
func (b *Backend) NewRenderPass(color, depth imm.TextureID) (imm.RenderPassID, error) {
	ct, ok := b.textures[color]
	if !ok {
		return 0, fmt.Errorf("recording: render pass with unknown color texture %d", color)
	}
	if !ct.desc.RenderTarget {
		return 0, fmt.Errorf("recording: texture %d is not a render target", color)
	}
	if depth != imm.NoTexture {
		if _, ok := b.textures[depth]; !ok {
			return 0, fmt.Errorf("recording: render pass with unknown depth texture %d", depth)
		}
	}
	id := imm.RenderPassID(b.id())
	b.passes[id] = renderPass{color: color, depth: depth}
	b.record(CreateRenderPassCommand{Pass: id, Color: color, Depth: depth})
	return id, nil
}

// RenderPassTexture implements imm.Backend.
func (b *Backend) RenderPassTexture(pass imm.RenderPassID) imm.TextureID {
	return b.passes[pass].color
}

// DeleteRenderPass implements imm.Backend.
func (b *Backend) DeleteRenderPass(pass imm.RenderPassID) {
	delete(b.passes, pass)
	b.record(DeleteRenderPassCommand{Pass: pass})
}

// ScreenSize implements imm.Backend.
func (b *Backend) ScreenSize() (int, int) {
	return b.width, b.height
}

// BeginPass implements imm.Backend.
func (b *Backend) BeginPass(pass imm.RenderPassID, action imm.PassAction) {
	if b.inPass {
		b.passErrs = append(b.passErrs, errors.New("recording: BeginPass inside an open pass"))
	}
	if _, ok := b.passes[pass]; pass != imm.DefaultPass && !ok {
		b.passErrs = append(b.passErrs, fmt.Errorf("recording: unknown render pass %d", pass))
	}
	b.inPass = true
	b.draw = DrawCommand{Pass: pass}
	b.bindings = imm.Bindings{}
	b.record(BeginPassCommand{Pass: pass, Action: action})
}

// EndPass implements imm.Backend. It returns the validation errors
// collected since BeginPass.
func (b *Backend) EndPass() error {
	if !b.inPass {
		return errors.New("recording: EndPass without BeginPass")
	}
	b.inPass = false
	b.record(EndPassCommand{})
	err := errors.Join(b.passErrs...)
	b.passErrs = b.passErrs[:0]
	if err != nil {
		imm.Logger().Debug("recording: pass failed validation", "err", err)
	}
	return err
}

// ApplyPipeline implements imm.Backend.
func (b *Backend) ApplyPipeline(p imm.PipelineID) {
	b.draw.Pipeline = p
	b.record(ApplyPipelineCommand{Pipeline: p})
}

// ApplyViewport implements imm.Backend.
func (b *Backend) ApplyViewport(r imm.Rect) {
	b.draw.Viewport = r
	b.record(ApplyViewportCommand{Rect: r})
}

// ApplyScissor implements imm.Backend.
func (b *Backend) ApplyScissor(r imm.Rect) {
	b.draw.Scissor = r
	b.record(ApplyScissorCommand{Rect: r})
}

// ApplyBindings implements imm.Backend.
func (b *Backend) ApplyBindings(bind imm.Bindings) {
	bind.Images = slices.Clone(bind.Images)
	b.bindings = bind
	b.draw.Images = bind.Images
	b.record(ApplyBindingsCommand{Bindings: bind})
}

// ApplyUniforms implements imm.Backend.
func (b *Backend) ApplyUniforms(data []byte) {
	b.draw.Uniforms = slices.Clone(data)
	b.record(ApplyUniformsCommand{Data: b.draw.Uniforms})
}

// Draw implements imm.Backend.
func (b *Backend) Draw(baseElement, numElements, numInstances int) {
	d := b.draw
	d.BaseElement, d.NumElements, d.NumInstances = baseElement, numElements, numInstances
	if err := b.validateDraw(&d); err != nil {
		b.passErrs = append(b.passErrs, err)
	}
	b.record(d)
}

func (b *Backend) validateDraw(d *DrawCommand) error {
	if !b.inPass {
		return errors.New("recording: Draw outside a pass")
	}
	p, ok := b.pipelines[d.Pipeline]
	if !ok {
		return fmt.Errorf("recording: draw with unknown pipeline %d", d.Pipeline)
	}
	if len(d.Images) != p.images {
		return fmt.Errorf("recording: draw binds %d images, pipeline expects %d", len(d.Images), p.images)
	}
	for _, tex := range d.Images {
		if _, ok := b.textures[tex]; !ok {
			return fmt.Errorf("recording: draw binds unknown texture %d", tex)
		}
	}
	vb, ok := b.buffers[b.bindings.VertexBuffer]
	if !ok || vb.kind != imm.VertexBuffer {
		return fmt.Errorf("recording: draw without a vertex buffer")
	}
	ib, ok := b.buffers[b.bindings.IndexBuffer]
	if !ok || ib.kind != imm.IndexBuffer {
		return fmt.Errorf("recording: draw without an index buffer")
	}

	d.Vertices = slices.Clone(vb.data)
	end := d.BaseElement + d.NumElements
	if 2*end > len(ib.data) {
		return fmt.Errorf("recording: draw reads %d indices, buffer holds %d", end, len(ib.data)/2)
	}
	d.Indices = make([]uint16, d.NumElements)
	vertexCount := 0
	if p.stride > 0 {
		vertexCount = len(vb.data) / p.stride
	}
	for k := range d.Indices {
		ix := binary.LittleEndian.Uint16(ib.data[2*(d.BaseElement+k):])
		if int(ix) >= vertexCount {
			return fmt.Errorf("recording: index %d out of range of %d vertices", ix, vertexCount)
		}
		d.Indices[k] = ix
	}
	return nil
}
