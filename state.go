package imm

import "github.com/go-gl/mathgl/mgl32"

// optRect is an optional rectangle that stays comparable.
type optRect struct {
	rect Rect
	ok   bool
}

func someRect(r *Rect) optRect {
	if r == nil {
		return optRect{}
	}
	return optRect{rect: *r, ok: true}
}

func (o optRect) ptr() *Rect {
	if !o.ok {
		return nil
	}
	r := o.rect
	return &r
}

// renderState is the ambient state every pushed batch inherits.
type renderState struct {
	texture  TextureID
	mode     DrawMode
	clip     optRect
	viewport optRect
	pass     RenderPassID
	depth    bool
	pipeline Pipeline
	capture  bool

	// breakBatching forces the next push to open a new draw call.
	breakBatching bool

	// models is never empty; the last entry is the current model matrix.
	models []mgl32.Mat4
}

func newRenderState() renderState {
	s := renderState{models: make([]mgl32.Mat4, 1, 8)}
	s.models[0] = mgl32.Ident4()
	return s
}

func (s *renderState) model() mgl32.Mat4 {
	return s.models[len(s.models)-1]
}

func (s *renderState) pushModel(m mgl32.Mat4) {
	s.models = append(s.models, s.model().Mul4(m))
}

func (s *renderState) popModel() bool {
	if len(s.models) <= 1 {
		return false
	}
	s.models = s.models[:len(s.models)-1]
	return true
}

// reset restores clip, texture and the model stack.
func (s *renderState) reset() {
	s.clip = optRect{}
	s.texture = NoTexture
	s.models = s.models[:1]
	s.models[0] = mgl32.Ident4()
}
