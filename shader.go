package imm

import "github.com/gogpu/gputypes"

// DefaultShader is the WGSL source of the built-in pipelines. Custom
// shaders follow the same binding convention: group 0, binding 0 holds
// the uniform block, image i is at binding 1+2i with its sampler at 2+2i.
// The uniform struct starts with Projection, Model and Time.
const DefaultShader = `struct Uniforms {
    Projection: mat4x4<f32>,
    Model: mat4x4<f32>,
    Time: vec4<f32>,
}

@group(0) @binding(0) var<uniform> u: Uniforms;
@group(0) @binding(1) var Texture: texture_2d<f32>;
@group(0) @binding(2) var TextureSampler: sampler;

struct VertexInput {
    @location(0) position: vec3<f32>,
    @location(1) texcoord: vec2<f32>,
    @location(2) color0: vec4<f32>,
    @location(3) normal: vec4<f32>,
}

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
    @location(1) color: vec4<f32>,
}

@vertex
fn vs_main(input: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.position = u.Projection * u.Model * vec4<f32>(input.position, 1.0);
    out.uv = input.texcoord;
    out.color = input.color0;
    return out;
}

@fragment
fn fs_main(input: VertexOutput) -> @location(0) vec4<f32> {
    return input.color * textureSample(Texture, TextureSampler, input.uv);
}
`

// DrawMode selects the primitive topology of pushed geometry.
type DrawMode uint8

const (
	Triangles DrawMode = iota
	Lines
)

// String returns the draw mode name.
func (m DrawMode) String() string {
	if m == Lines {
		return "Lines"
	}
	return "Triangles"
}

func (m DrawMode) topology() gputypes.PrimitiveTopology {
	if m == Lines {
		return gputypes.PrimitiveTopologyLineList
	}
	return gputypes.PrimitiveTopologyTriangleList
}

// primitiveSize is the number of indices per primitive.
func (m DrawMode) primitiveSize() int {
	if m == Lines {
		return 2
	}
	return 3
}

// DefaultPipelineParams returns alpha-blended, depth-less parameters for
// the given draw mode.
func DefaultPipelineParams(mode DrawMode) PipelineParams {
	blend := gputypes.BlendStateAlpha()
	return PipelineParams{
		Topology:   mode.topology(),
		CullMode:   gputypes.CullModeNone,
		FrontFace:  gputypes.FrontFaceCCW,
		ColorBlend: &blend,
	}
}

// builtinPipelines lists the parameters of slots 0..3: triangles, lines,
// triangles with depth, lines with depth.
var builtinPipelines = [...]PipelineParams{
	DefaultPipelineParams(Triangles),
	DefaultPipelineParams(Lines),
	withDepth(DefaultPipelineParams(Triangles)),
	withDepth(DefaultPipelineParams(Lines)),
}

func withDepth(p PipelineParams) PipelineParams {
	p.DepthCompare = gputypes.CompareFunctionLessEqual
	p.DepthWrite = true
	return p
}

// builtinIndex maps a draw mode and depth flag to a built-in slot.
func builtinIndex(mode DrawMode, depth bool) int {
	i := 0
	if mode == Lines {
		i = 1
	}
	if depth {
		i += 2
	}
	return i
}
