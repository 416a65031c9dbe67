package imm

import (
	"github.com/gogpu/gputypes"
)

// Backend handles. The zero value of each means "none".
type (
	BufferID     uint64
	TextureID    uint64
	ShaderID     uint64
	PipelineID   uint64
	RenderPassID uint64
)

const (
	// NoTexture selects the white fallback texture when drawing.
	NoTexture TextureID = 0

	// DefaultPass targets the backbuffer.
	DefaultPass RenderPassID = 0
)

// BufferKind selects the GPU usage of a buffer.
type BufferKind uint8

const (
	VertexBuffer BufferKind = iota
	IndexBuffer
)

// String returns the buffer kind name.
func (k BufferKind) String() string {
	switch k {
	case VertexBuffer:
		return "Vertex"
	case IndexBuffer:
		return "Index"
	default:
		return "Unknown"
	}
}

// Rect is an integer rectangle in pixels. Viewport and scissor rectangles
// passed to a Backend use a bottom-left origin.
type Rect struct {
	X, Y, W, H int
}

// PassAction selects what happens to the target when a pass begins.
type PassAction struct {
	Clear bool
	Color gputypes.Color
	Depth float32
}

// Bindings are the resources used by one draw: the per-call vertex and
// index buffers and the images in pipeline order. Images[0] is always the
// "Texture" slot.
type Bindings struct {
	VertexBuffer BufferID
	IndexBuffer  BufferID
	Images       []TextureID
}

// ShaderSource is a WGSL module with a vertex and a fragment entry point.
type ShaderSource struct {
	WGSL               string
	VertexEntryPoint   string
	FragmentEntryPoint string
}

func (s ShaderSource) withDefaults() ShaderSource {
	if s.VertexEntryPoint == "" {
		s.VertexEntryPoint = "vs_main"
	}
	if s.FragmentEntryPoint == "" {
		s.FragmentEntryPoint = "fs_main"
	}
	return s
}

// ShaderMeta describes the resources a shader expects: image names in
// binding order and the packed uniform block.
type ShaderMeta struct {
	Images   []string
	Uniforms []UniformDesc
}

// UniformBlockSize returns the packed size in bytes of the uniform block.
func (m ShaderMeta) UniformBlockSize() int {
	n := 0
	for _, u := range m.Uniforms {
		n += u.Size()
	}
	return n
}

// PipelineParams is the fixed-function state of a pipeline.
type PipelineParams struct {
	Topology     gputypes.PrimitiveTopology
	CullMode     gputypes.CullMode
	FrontFace    gputypes.FrontFace
	DepthCompare gputypes.CompareFunction
	DepthWrite   bool
	ColorBlend   *gputypes.BlendState
}

// HasDepth reports whether the pipeline tests or writes depth.
func (p PipelineParams) HasDepth() bool {
	return p.DepthWrite || (p.DepthCompare != gputypes.CompareFunctionUndefined &&
		p.DepthCompare != gputypes.CompareFunctionAlways)
}

// TextureDesc describes an RGBA8 texture.
type TextureDesc struct {
	Width, Height int
	Filter        gputypes.FilterMode
	RenderTarget  bool
}

// Backend is the GPU abstraction the renderer drives. It is passed to every
// operation that needs it and never stored by the renderer.
//
// Calls between BeginPass and EndPass follow the order ApplyPipeline,
// ApplyViewport, ApplyScissor, ApplyBindings, ApplyUniforms, Draw.
type Backend interface {
	NewBuffer(kind BufferKind, size int) (BufferID, error)
	UpdateBuffer(buf BufferID, data []byte) error
	DeleteBuffer(buf BufferID)

	NewShader(src ShaderSource, meta ShaderMeta) (ShaderID, error)
	DeleteShader(shader ShaderID)
	NewPipeline(layout []VertexAttribute, shader ShaderID, params PipelineParams) (PipelineID, error)
	DeletePipeline(p PipelineID)

	NewTexture(desc TextureDesc, rgba []byte) (TextureID, error)
	DeleteTexture(tex TextureID)
	TextureSize(tex TextureID) (width, height int)

	NewRenderPass(color, depth TextureID) (RenderPassID, error)
	RenderPassTexture(pass RenderPassID) TextureID
	DeleteRenderPass(pass RenderPassID)

	// ScreenSize returns the backbuffer size in pixels.
	ScreenSize() (width, height int)

	BeginPass(pass RenderPassID, action PassAction)
	EndPass() error
	ApplyPipeline(p PipelineID)
	ApplyViewport(r Rect)
	ApplyScissor(r Rect)
	ApplyBindings(b Bindings)
	ApplyUniforms(data []byte)
	Draw(baseElement, numElements, numInstances int)
}

// targetSize returns the size of a render pass target, or the screen for
// the default pass.
func targetSize(b Backend, pass RenderPassID) (int, int) {
	if pass == DefaultPass {
		return b.ScreenSize()
	}
	return b.TextureSize(b.RenderPassTexture(pass))
}
