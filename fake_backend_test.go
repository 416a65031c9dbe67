package imm

import (
	"errors"
	"fmt"
)

// fakeBackend records the calls the renderer makes. It keeps only what
// tests in this package inspect; the recording package is the full
// command-log implementation.
type fakeBackend struct {
	width, height int
	next          uint64

	buffers  map[BufferID][]byte
	textures map[TextureID][2]int
	pixels   map[TextureID][]byte
	passes   map[RenderPassID]TextureID
	shaders  map[ShaderID]ShaderMeta
	pipes    map[PipelineID]PipelineParams

	draws     []fakeDraw
	clears    []PassAction
	cur       fakeDraw
	inPass    bool
	numPasses int
	deleted   int
	failEnd   error
	failNext  error
}

type fakeDraw struct {
	pass     RenderPassID
	pipeline PipelineID
	viewport Rect
	scissor  Rect
	bindings Bindings
	uniforms []byte
	count    int
	vertices []byte
	indices  []byte
}

func newFakeBackend(w, h int) *fakeBackend {
	return &fakeBackend{
		width:    w,
		height:   h,
		buffers:  make(map[BufferID][]byte),
		textures: make(map[TextureID][2]int),
		pixels:   make(map[TextureID][]byte),
		passes:   make(map[RenderPassID]TextureID),
		shaders:  make(map[ShaderID]ShaderMeta),
		pipes:    make(map[PipelineID]PipelineParams),
	}
}

func (f *fakeBackend) id() uint64 {
	f.next++
	return f.next
}

func (f *fakeBackend) NewBuffer(_ BufferKind, size int) (BufferID, error) {
	id := BufferID(f.id())
	f.buffers[id] = make([]byte, 0, size)
	return id, nil
}

func (f *fakeBackend) UpdateBuffer(buf BufferID, data []byte) error {
	if _, ok := f.buffers[buf]; !ok {
		return fmt.Errorf("unknown buffer %d", buf)
	}
	f.buffers[buf] = append(f.buffers[buf][:0], data...)
	return nil
}

func (f *fakeBackend) DeleteBuffer(buf BufferID) {
	delete(f.buffers, buf)
	f.deleted++
}

func (f *fakeBackend) NewShader(_ ShaderSource, meta ShaderMeta) (ShaderID, error) {
	if err := f.failNext; err != nil {
		f.failNext = nil
		return 0, err
	}
	id := ShaderID(f.id())
	f.shaders[id] = meta
	return id, nil
}

func (f *fakeBackend) DeleteShader(s ShaderID) { delete(f.shaders, s) }

func (f *fakeBackend) NewPipeline(_ []VertexAttribute, _ ShaderID, params PipelineParams) (PipelineID, error) {
	id := PipelineID(f.id())
	f.pipes[id] = params
	return id, nil
}

func (f *fakeBackend) DeletePipeline(p PipelineID) { delete(f.pipes, p) }

func (f *fakeBackend) NewTexture(desc TextureDesc, rgba []byte) (TextureID, error) {
	id := TextureID(f.id())
	f.textures[id] = [2]int{desc.Width, desc.Height}
	f.pixels[id] = append([]byte(nil), rgba...)
	return id, nil
}

func (f *fakeBackend) DeleteTexture(tex TextureID) { delete(f.textures, tex) }

func (f *fakeBackend) TextureSize(tex TextureID) (int, int) {
	s := f.textures[tex]
	return s[0], s[1]
}

func (f *fakeBackend) NewRenderPass(color, _ TextureID) (RenderPassID, error) {
	id := RenderPassID(f.id())
	f.passes[id] = color
	return id, nil
}

func (f *fakeBackend) RenderPassTexture(pass RenderPassID) TextureID { return f.passes[pass] }
func (f *fakeBackend) DeleteRenderPass(pass RenderPassID)            { delete(f.passes, pass) }
func (f *fakeBackend) ScreenSize() (int, int)                        { return f.width, f.height }

func (f *fakeBackend) BeginPass(pass RenderPassID, action PassAction) {
	if f.inPass {
		panic("BeginPass inside a pass")
	}
	f.inPass = true
	f.numPasses++
	f.cur = fakeDraw{pass: pass, count: -1}
	if action.Clear {
		f.clears = append(f.clears, action)
	}
}

func (f *fakeBackend) EndPass() error {
	if !f.inPass {
		return errors.New("EndPass outside a pass")
	}
	f.inPass = false
	if f.cur.count >= 0 {
		f.draws = append(f.draws, f.cur)
	}
	return f.failEnd
}

func (f *fakeBackend) ApplyPipeline(p PipelineID) { f.cur.pipeline = p }
func (f *fakeBackend) ApplyViewport(r Rect)       { f.cur.viewport = r }
func (f *fakeBackend) ApplyScissor(r Rect)        { f.cur.scissor = r }

func (f *fakeBackend) ApplyBindings(b Bindings) {
	b.Images = append([]TextureID(nil), b.Images...)
	f.cur.bindings = b
	f.cur.vertices = append([]byte(nil), f.buffers[b.VertexBuffer]...)
	f.cur.indices = append([]byte(nil), f.buffers[b.IndexBuffer]...)
}

func (f *fakeBackend) ApplyUniforms(data []byte) {
	f.cur.uniforms = append([]byte(nil), data...)
}

func (f *fakeBackend) Draw(_, n, _ int) { f.cur.count = n }
