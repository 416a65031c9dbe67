package imm

import (
	"fmt"
	"slices"
)

// SetUniform writes value into the uniform name of pipeline p and breaks
// the current batch. Values are encoded little-endian: float32, int32,
// uint32, fixed arrays of them, mgl32 vectors and matrices, or raw bytes.
//
// Unknown names, array uniforms, unsupported widths and size mismatches
// are logged and ignored. A handle from another renderer panics.
func (r *Renderer[V]) SetUniform(p Pipeline, name string, value any) {
	rec := r.reg.get(p)
	slot, ok := rec.layout.lookup(name)
	if !ok {
		Logger().Warn("imm: trying to set non-existing uniform", "uniform", name, "pipeline", p)
		return
	}
	if slot.desc.Count > 1 {
		Logger().Warn("imm: SetUniform does not support uniform arrays, use SetUniformArray",
			"uniform", name, "count", slot.desc.Count)
		return
	}
	data, err := encodeUniform(value)
	if err != nil {
		Logger().Warn("imm: cannot encode uniform", "uniform", name, "err", err)
		return
	}
	if !isUniformWidth(len(data)) {
		Logger().Warn("imm: unsupported uniform size", "uniform", name, "size", len(data))
		return
	}
	if len(data) != slot.desc.Type.Size() {
		Logger().Warn("imm: trying to set uniform of a wrong size",
			"uniform", name, "type", slot.desc.Type, "want", slot.desc.Type.Size(), "got", len(data))
		return
	}
	copy(rec.uniforms[slot.offset:], data)
	r.state.breakBatching = true
}

// SetUniformArray writes values into the array uniform name. The encoded
// length must equal the declared element size times count.
func (r *Renderer[V]) SetUniformArray(p Pipeline, name string, values any) {
	rec := r.reg.get(p)
	slot, ok := rec.layout.lookup(name)
	if !ok {
		Logger().Warn("imm: trying to set non-existing uniform", "uniform", name, "pipeline", p)
		return
	}
	data, err := encodeUniform(values)
	if err != nil {
		Logger().Warn("imm: cannot encode uniform", "uniform", name, "err", err)
		return
	}
	if len(data) != slot.desc.Size() {
		Logger().Warn("imm: trying to set uniform array of a wrong size",
			"uniform", name, "want", slot.desc.Size(), "got", len(data))
		return
	}
	copy(rec.uniforms[slot.offset:], data)
	r.state.breakBatching = true
}

// UniformBytes returns a copy of the current bytes of uniform name.
func (r *Renderer[V]) UniformBytes(p Pipeline, name string) ([]byte, bool) {
	rec := r.reg.get(p)
	slot, ok := rec.layout.lookup(name)
	if !ok {
		return nil, false
	}
	return slices.Clone(rec.uniforms[slot.offset : slot.offset+slot.desc.Size()]), true
}

// SetTexture binds tex to the image name declared by pipeline p. Naming
// an image the pipeline did not declare panics.
func (r *Renderer[V]) SetTexture(p Pipeline, name string, tex TextureID) {
	rec := r.reg.get(p)
	i := rec.textureIndex(name)
	if i < 0 {
		panic(fmt.Sprintf("imm: can't find texture %q, declared textures: %v", name, rec.textureNames))
	}
	rec.textures[i] = tex
	r.state.breakBatching = true
}

// MaterialParams configures a material pipeline.
type MaterialParams struct {
	Pipeline PipelineParams
	Uniforms []UniformDesc
	Textures []string
	// Includes resolves #include directives in the shader source.
	Includes map[string]string
}

// Material is a pipeline with its own uniforms and textures.
type Material[V Vertexer] struct {
	r        *Renderer[V]
	pipeline Pipeline
}

// LoadMaterial preprocesses shader with params.Includes and registers a
// pipeline for it. A zero params.Pipeline selects the default triangle
// state.
func LoadMaterial[V Vertexer](b Backend, r *Renderer[V], shader ShaderSource, params MaterialParams) (*Material[V], error) {
	src, err := PreprocessShader(shader.WGSL, params.Includes)
	if err != nil {
		return nil, err
	}
	shader.WGSL = src
	pp := params.Pipeline
	if pp == (PipelineParams{}) {
		pp = DefaultPipelineParams(Triangles)
	}
	p, err := r.MakePipeline(b, shader, pp, params.Uniforms, params.Textures)
	if err != nil {
		return nil, err
	}
	return &Material[V]{r: r, pipeline: p}, nil
}

// Pipeline returns the material's pipeline handle.
func (m *Material[V]) Pipeline() Pipeline { return m.pipeline }

// SetUniform sets a scalar uniform of the material.
func (m *Material[V]) SetUniform(name string, value any) {
	m.r.SetUniform(m.pipeline, name, value)
}

// SetUniformArray sets an array uniform of the material.
func (m *Material[V]) SetUniformArray(name string, values any) {
	m.r.SetUniformArray(m.pipeline, name, values)
}

// SetTexture binds a texture declared by the material.
func (m *Material[V]) SetTexture(name string, tex TextureID) {
	m.r.SetTexture(m.pipeline, name, tex)
}

// Delete releases the material's pipeline.
func (m *Material[V]) Delete(b Backend) {
	m.r.DeletePipeline(b, m.pipeline)
}

// UseMaterial draws subsequent geometry with m.
func (r *Renderer[V]) UseMaterial(m *Material[V]) {
	r.WithPipeline(m.pipeline)
}

// UseDefaultMaterial restores the built-in pipelines.
func (r *Renderer[V]) UseDefaultMaterial() {
	r.WithPipeline(NoPipeline)
}

// HasMaterial reports whether m is still live in r.
func (r *Renderer[V]) HasMaterial(m *Material[V]) bool {
	return m != nil && m.r == r && r.reg.has(m.pipeline)
}
