package imm

import (
	"fmt"
	"slices"
	"sync/atomic"
)

// Pipeline is a handle to a pipeline slot in one renderer's registry.
// The zero value, NoPipeline, selects the built-in pipeline matching the
// current draw mode and depth flag.
type Pipeline struct {
	owner uint32
	index uint16
	gen   uint16
}

// NoPipeline clears a pipeline override.
var NoPipeline Pipeline

// IsZero reports whether p is NoPipeline.
func (p Pipeline) IsZero() bool { return p == NoPipeline }

// String returns a debug representation of the handle.
func (p Pipeline) String() string {
	if p.IsZero() {
		return "Pipeline(none)"
	}
	return fmt.Sprintf("Pipeline(%d:%d.%d)", p.owner, p.index, p.gen)
}

// registryIDs hands out registry owner ids. Zero is never used so that a
// zero handle never matches a registry.
var registryIDs atomic.Uint32

type pipelineRecord struct {
	live     bool
	gen      uint16
	builtin  bool
	pipeline PipelineID
	shader   ShaderID
	params   PipelineParams
	layout   *uniformLayout
	uniforms []byte
	// textureNames lists declared images after the reserved "Texture" slot.
	textureNames []string
	textures     []TextureID
}

func (rec *pipelineRecord) textureIndex(name string) int {
	return slices.Index(rec.textureNames, name)
}

type registry struct {
	id    uint32
	slots []pipelineRecord
}

func newRegistry(capacity int) registry {
	return registry{
		id:    registryIDs.Add(1),
		slots: make([]pipelineRecord, capacity),
	}
}

func (reg *registry) handle(index int) Pipeline {
	return Pipeline{owner: reg.id, index: uint16(index), gen: reg.slots[index].gen} //nolint:gosec // capacity is small
}

func (reg *registry) has(p Pipeline) bool {
	if p.owner != reg.id || int(p.index) >= len(reg.slots) {
		return false
	}
	rec := &reg.slots[p.index]
	return rec.live && rec.gen == p.gen
}

// get returns the record for p, panicking on a foreign or stale handle.
func (reg *registry) get(p Pipeline) *pipelineRecord {
	if !reg.has(p) {
		panic(fmt.Sprintf("imm: %v does not belong to this renderer or was deleted", p))
	}
	return &reg.slots[p.index]
}

func (reg *registry) freeSlot() (int, bool) {
	for i := range reg.slots {
		if !reg.slots[i].live {
			return i, true
		}
	}
	return 0, false
}

func (reg *registry) builtin(mode DrawMode, depth bool) Pipeline {
	return reg.handle(builtinIndex(mode, depth))
}

// createPipeline compiles shader and fills slot index. Nothing is stored
// on failure.
func (reg *registry) createPipeline(b Backend, index int, attrs []VertexAttribute, shader ShaderSource,
	params PipelineParams, uniforms []UniformDesc, textures []string) error {
	layout, err := newUniformLayout(uniforms)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(textures))
	for _, name := range textures {
		if name == TextureSlot {
			return fmt.Errorf("%w: %q", ErrReservedTextureName, name)
		}
		if seen[name] {
			return fmt.Errorf("%w: texture %q", ErrDuplicateName, name)
		}
		seen[name] = true
	}

	meta := ShaderMeta{
		Images:   append([]string{TextureSlot}, textures...),
		Uniforms: layout.descs(),
	}
	sh, err := b.NewShader(shader.withDefaults(), meta)
	if err != nil {
		return fmt.Errorf("imm: create shader: %w", err)
	}
	pl, err := b.NewPipeline(attrs, sh, params)
	if err != nil {
		b.DeleteShader(sh)
		return fmt.Errorf("imm: create pipeline: %w", err)
	}

	rec := &reg.slots[index]
	rec.live = true
	rec.pipeline = pl
	rec.shader = sh
	rec.params = params
	rec.layout = layout
	rec.uniforms = make([]byte, layout.size)
	rec.textureNames = slices.Clone(textures)
	rec.textures = make([]TextureID, len(textures))

	Logger().Debug("imm: pipeline created",
		"slot", index, "uniform_bytes", layout.size, "textures", len(textures))
	return nil
}

func (reg *registry) deletePipeline(b Backend, p Pipeline) {
	rec := reg.get(p)
	if rec.builtin {
		panic("imm: built-in pipelines cannot be deleted")
	}
	b.DeletePipeline(rec.pipeline)
	b.DeleteShader(rec.shader)
	gen := rec.gen + 1
	*rec = pipelineRecord{gen: gen}
}

// MakePipeline registers a pipeline built from shader and params. The
// uniform block is Projection, Model and Time followed by uniforms in
// order; textures name the images bound after the draw call's texture.
//
// It returns ErrReservedTextureName if textures contains "Texture",
// ErrPipelineCapacity when all slots are in use, and wraps any backend
// error from compiling the shader or creating the pipeline.
func (r *Renderer[V]) MakePipeline(b Backend, shader ShaderSource, params PipelineParams,
	uniforms []UniformDesc, textures []string) (Pipeline, error) {
	index, ok := r.reg.freeSlot()
	if !ok {
		return NoPipeline, fmt.Errorf("%w: %d slots", ErrPipelineCapacity, len(r.reg.slots))
	}
	if err := r.reg.createPipeline(b, index, r.attrs, shader, params, uniforms, textures); err != nil {
		return NoPipeline, err
	}
	return r.reg.handle(index), nil
}

// DeletePipeline releases p and its backend objects. Deleting a built-in
// pipeline or a handle from another renderer panics. An active override
// of p is cleared; pending draw calls using p are dropped at flush.
func (r *Renderer[V]) DeletePipeline(b Backend, p Pipeline) {
	r.reg.deletePipeline(b, p)
	if r.state.pipeline == p {
		r.state.pipeline = NoPipeline
		r.state.breakBatching = true
	}
}

// HasPipeline reports whether p is a live pipeline of this renderer.
func (r *Renderer[V]) HasPipeline(p Pipeline) bool {
	return r.reg.has(p)
}

// BuiltinPipeline returns the built-in pipeline used for mode and the
// depth flag when no override is active.
func (r *Renderer[V]) BuiltinPipeline(mode DrawMode, depth bool) Pipeline {
	return r.reg.builtin(mode, depth)
}
