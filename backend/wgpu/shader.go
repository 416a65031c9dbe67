package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/imm"
)

// ErrUniformLayout is returned by NewShader when the shader's uniform
// struct does not match the declared uniforms.
var ErrUniformLayout = errors.New("wgpu: uniform struct does not match declared uniforms")

type shader struct {
	module      hal.ShaderModule
	src         imm.ShaderSource
	meta        imm.ShaderMeta
	uniformSize uint64
	bindLayout  hal.BindGroupLayout
	pipeLayout  hal.PipelineLayout
}

type pipeline struct {
	pipe   hal.RenderPipeline
	shader *shader
}

// CompileShader parses and lowers WGSL with naga and checks its uniform
// struct against uniforms. It returns the lowered module and the byte size
// the uniform buffer must have.
func CompileShader(src string, uniforms []imm.UniformDesc, images int) (*ir.Module, uint64, error) {
	ast, err := naga.Parse(src)
	if err != nil {
		return nil, 0, fmt.Errorf("wgpu: parse shader: %w", err)
	}
	module, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return nil, 0, fmt.Errorf("wgpu: lower shader: %w", err)
	}
	size, err := reflectUniforms(module, uniforms)
	if err != nil {
		return nil, 0, err
	}
	if err := checkBindings(module, images); err != nil {
		return nil, 0, err
	}
	return module, size, nil
}

// reflectUniforms finds the var<uniform> at group 0 binding 0 and matches
// its members against the packed layout. Packed means each uniform starts
// where the previous one ended, so the WGSL struct has to be declared with
// members that need no alignment padding (mat4/vec4 first, scalars last).
func reflectUniforms(module *ir.Module, want []imm.UniformDesc) (uint64, error) {
	packed := 0
	for _, u := range want {
		packed += u.Size()
	}

	var found *ir.GlobalVariable
	for i := range module.GlobalVariables {
		gv := &module.GlobalVariables[i]
		if gv.Space != ir.SpaceUniform || gv.Binding == nil {
			continue
		}
		if gv.Binding.Group == 0 && gv.Binding.Binding == 0 {
			found = gv
			break
		}
	}
	if found == nil {
		if len(want) == 0 {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: no var<uniform> at @group(0) @binding(0)", ErrUniformLayout)
	}
	if int(found.Type) >= len(module.Types) {
		return 0, fmt.Errorf("%w: bad type handle for %q", ErrUniformLayout, found.Name)
	}
	st, ok := module.Types[found.Type].Inner.(ir.StructType)
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a struct", ErrUniformLayout, found.Name)
	}
	if len(st.Members) != len(want) {
		return 0, fmt.Errorf("%w: struct has %d members, %d uniforms declared",
			ErrUniformLayout, len(st.Members), len(want))
	}

	offset := 0
	for i, m := range st.Members {
		u := want[i]
		if m.Name != u.Name {
			return 0, fmt.Errorf("%w: member %d is %q, want %q", ErrUniformLayout, i, m.Name, u.Name)
		}
		if int(m.Offset) != offset {
			return 0, fmt.Errorf("%w: %q at offset %d, packed offset is %d",
				ErrUniformLayout, m.Name, m.Offset, offset)
		}
		offset += u.Size()
	}

	size := uint64(st.Span)
	if uint64(packed) > size {
		size = uint64(packed)
	}
	return align(size, 16), nil
}

// checkBindings rejects group 0 resources the bind group layout would not
// cover: anything past the last image sampler.
func checkBindings(module *ir.Module, images int) error {
	last := uint32(2 * images) //nolint:gosec // image count is small
	for _, gv := range module.GlobalVariables {
		if gv.Binding == nil || gv.Binding.Group != 0 {
			continue
		}
		if gv.Binding.Binding > last {
			return fmt.Errorf("wgpu: %q at @binding(%d) is outside the layout (%d images)",
				gv.Name, gv.Binding.Binding, images)
		}
	}
	return nil
}

func toSPIRV(module *ir.Module) ([]uint32, error) {
	bytes, err := naga.GenerateSPIRV(module, spirv.Options{Version: spirv.Version1_3})
	if err != nil {
		return nil, err
	}
	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(bytes)/4)
	for i := range words {
		words[i] = uint32(bytes[i*4]) |
			uint32(bytes[i*4+1])<<8 |
			uint32(bytes[i*4+2])<<16 |
			uint32(bytes[i*4+3])<<24
	}
	return words, nil
}

// NewShader implements imm.Backend.
func (b *Backend) NewShader(src imm.ShaderSource, meta imm.ShaderMeta) (imm.ShaderID, error) {
	module, size, err := CompileShader(src.WGSL, meta.Uniforms, len(meta.Images))
	if err != nil {
		return 0, err
	}

	source := hal.ShaderSource{WGSL: src.WGSL}
	if b.opts.spirv {
		words, err := toSPIRV(module)
		if err != nil {
			return 0, fmt.Errorf("wgpu: compile shader to SPIR-V: %w", err)
		}
		source.SPIRV = words
	}

	id := imm.ShaderID(b.id())
	label := fmt.Sprintf("%s_shader_%d", b.opts.label, id)
	mod, err := b.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: source,
	})
	if err != nil {
		return 0, fmt.Errorf("wgpu: create shader module: %w", err)
	}

	bindLayout, err := b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label + "_bind_layout",
		Entries: bindGroupLayoutEntries(len(meta.Images), size),
	})
	if err != nil {
		b.device.DestroyShaderModule(mod)
		return 0, fmt.Errorf("wgpu: create bind group layout: %w", err)
	}
	pipeLayout, err := b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{bindLayout},
	})
	if err != nil {
		b.device.DestroyBindGroupLayout(bindLayout)
		b.device.DestroyShaderModule(mod)
		return 0, fmt.Errorf("wgpu: create pipeline layout: %w", err)
	}

	b.shaders[id] = &shader{
		module:      mod,
		src:         src,
		meta:        meta,
		uniformSize: size,
		bindLayout:  bindLayout,
		pipeLayout:  pipeLayout,
	}
	imm.Logger().Debug("wgpu: shader created",
		"id", id, "images", len(meta.Images), "uniform_bytes", size)
	return id, nil
}

func bindGroupLayoutEntries(images int, uniformSize uint64) []gputypes.BindGroupLayoutEntry {
	entries := make([]gputypes.BindGroupLayoutEntry, 0, 1+2*images)
	if uniformSize > 0 {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    0,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		})
	}
	for i := range images {
		entries = append(entries,
			gputypes.BindGroupLayoutEntry{
				Binding:    textureBinding(i),
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			gputypes.BindGroupLayoutEntry{
				Binding:    samplerBinding(i),
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		)
	}
	return entries
}

func textureBinding(i int) uint32 { return uint32(1 + 2*i) } //nolint:gosec // small
func samplerBinding(i int) uint32 { return uint32(2 + 2*i) } //nolint:gosec // small

// DeleteShader implements imm.Backend.
func (b *Backend) DeleteShader(id imm.ShaderID) {
	s, ok := b.shaders[id]
	if !ok {
		return
	}
	delete(b.shaders, id)
	b.device.DestroyPipelineLayout(s.pipeLayout)
	b.device.DestroyBindGroupLayout(s.bindLayout)
	b.device.DestroyShaderModule(s.module)
}

// NewPipeline implements imm.Backend.
func (b *Backend) NewPipeline(layout []imm.VertexAttribute, id imm.ShaderID, params imm.PipelineParams) (imm.PipelineID, error) {
	s, ok := b.shaders[id]
	if !ok {
		return 0, fmt.Errorf("wgpu: pipeline with unknown shader %d", id)
	}

	depthCompare := params.DepthCompare
	if depthCompare == gputypes.CompareFunctionUndefined {
		depthCompare = gputypes.CompareFunctionAlways
	}
	keep := hal.StencilFaceState{
		Compare:     gputypes.CompareFunctionAlways,
		FailOp:      hal.StencilOperationKeep,
		DepthFailOp: hal.StencilOperationKeep,
		PassOp:      hal.StencilOperationKeep,
	}

	pid := imm.PipelineID(b.id())
	pipe, err := b.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  fmt.Sprintf("%s_pipeline_%d", b.opts.label, pid),
		Layout: s.pipeLayout,
		Vertex: hal.VertexState{
			Module:     s.module,
			EntryPoint: s.src.VertexEntryPoint,
			Buffers:    []gputypes.VertexBufferLayout{imm.BufferLayout(layout)},
		},
		Fragment: &hal.FragmentState{
			Module:     s.module,
			EntryPoint: s.src.FragmentEntryPoint,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    b.opts.format,
					Blend:     params.ColorBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		DepthStencil: &hal.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: params.DepthWrite,
			DepthCompare:      depthCompare,
			StencilFront:      keep,
			StencilBack:       keep,
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  params.Topology,
			FrontFace: params.FrontFace,
			CullMode:  params.CullMode,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("wgpu: create render pipeline: %w", err)
	}
	b.pipelines[pid] = &pipeline{pipe: pipe, shader: s}
	return pid, nil
}

// DeletePipeline implements imm.Backend.
func (b *Backend) DeletePipeline(id imm.PipelineID) {
	p, ok := b.pipelines[id]
	if !ok {
		return
	}
	delete(b.pipelines, id)
	b.device.DestroyRenderPipeline(p.pipe)
}
