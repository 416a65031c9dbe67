package imm_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/imm"
	"github.com/gogpu/imm/recording"
)

func TestFrameOnRecordingBackend(t *testing.T) {
	b := recording.New(320, 200)
	r, err := imm.NewRenderer[imm.Vertex](b)
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	defer r.Destroy(b)

	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(1, 1, color.NRGBA{R: 255, A: 255})
	sprite, err := imm.NewTextureFromImage(b, img)
	if err != nil {
		t.Fatalf("NewTextureFromImage() error = %v", err)
	}

	quad, idx := imm.Quad(10, 10, 20, 20, imm.White)
	r.PushGeometry(quad, idx)
	r.PushGeometry(quad, idx)

	r.WithTexture(sprite)
	r.WithScissor(&imm.Rect{X: 10, Y: 10, W: 50, H: 50})
	r.PushGeometry(quad, idx)

	r.WithTexture(imm.NoTexture)
	r.WithScissor(nil)
	r.WithDrawMode(imm.Lines)
	r.PushGeometry(quad[:2], []uint16{0, 1})

	b.Reset()
	if err := r.Flush(b, mgl32.Ortho2D(0, 320, 200, 0)); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	draws := b.DrawCommands()
	if len(draws) != 3 {
		t.Fatalf("draws = %d, want 3", len(draws))
	}
	if draws[0].NumElements != 12 || draws[1].NumElements != 6 || draws[2].NumElements != 2 {
		t.Errorf("element counts = %d, %d, %d, want 12, 6, 2",
			draws[0].NumElements, draws[1].NumElements, draws[2].NumElements)
	}
	if draws[1].Images[0] != sprite {
		t.Errorf("second draw texture = %d, want sprite %d", draws[1].Images[0], sprite)
	}
	if draws[0].Images[0] == sprite || draws[2].Images[0] == sprite {
		t.Error("untextured draws bound the sprite")
	}
	if got, want := draws[1].Scissor, (imm.Rect{X: 10, Y: 140, W: 50, H: 50}); got != want {
		t.Errorf("scissor = %v, want %v", got, want)
	}
	if draws[2].Pipeline == draws[0].Pipeline {
		t.Error("line draw used the triangle pipeline")
	}
	if len(draws[0].Vertices) != 8*40 {
		t.Errorf("first draw vertex bytes = %d, want %d", len(draws[0].Vertices), 8*40)
	}

	// Each draw call is one pass: Begin, two uploads, five applies, Draw, End.
	want := []recording.CommandType{
		recording.CmdBeginPass,
		recording.CmdUpdateBuffer,
		recording.CmdUpdateBuffer,
		recording.CmdApplyPipeline,
		recording.CmdApplyViewport,
		recording.CmdApplyScissor,
		recording.CmdApplyBindings,
		recording.CmdApplyUniforms,
		recording.CmdDraw,
		recording.CmdEndPass,
	}
	var got []recording.CommandType
	for _, c := range b.Commands() {
		switch c.Type() {
		case recording.CmdCreateBuffer, recording.CmdCreateTexture:
			continue
		}
		got = append(got, c.Type())
	}
	if len(got) != 3*len(want) {
		t.Fatalf("commands = %v", got)
	}
	for k, ct := range got {
		if ct != want[k%len(want)] {
			t.Fatalf("command %d = %v, want %v (log %v)", k, ct, want[k%len(want)], got)
		}
	}
}

func TestMaterialOnRecordingBackend(t *testing.T) {
	b := recording.New(64, 64)
	r, err := imm.NewRenderer[imm.Vertex](b)
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	m, err := imm.LoadMaterial(b, r, imm.ShaderSource{WGSL: imm.DefaultShader}, imm.MaterialParams{
		Uniforms: []imm.UniformDesc{imm.NewUniform("Tint", imm.UniformFloat4)},
		Textures: []string{"Mask"},
	})
	if err != nil {
		t.Fatalf("LoadMaterial() error = %v", err)
	}
	mask, err := b.NewTexture(imm.TextureDesc{Width: 1, Height: 1}, []byte{0, 0, 0, 255})
	if err != nil {
		t.Fatal(err)
	}

	m.SetUniform("Tint", mgl32.Vec4{1, 0.5, 0.25, 1})
	m.SetTexture("Mask", mask)
	r.UseMaterial(m)
	quad, idx := imm.Quad(0, 0, 8, 8, imm.Green)
	r.PushGeometry(quad, idx)
	r.UseDefaultMaterial()
	r.PushGeometry(quad, idx)

	if err := r.Flush(b, mgl32.Ident4()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	draws := b.DrawCommands()
	if len(draws) != 2 {
		t.Fatalf("draws = %d, want 2", len(draws))
	}
	if len(draws[0].Images) != 2 || draws[0].Images[1] != mask {
		t.Errorf("material images = %v, want [white mask]", draws[0].Images)
	}
	if len(draws[0].Uniforms) != 160 || len(draws[1].Uniforms) != 144 {
		t.Errorf("uniform sizes = %d, %d, want 160, 144", len(draws[0].Uniforms), len(draws[1].Uniforms))
	}

	m.Delete(b)
	r.Destroy(b)
	b.DeleteTexture(mask)
	if n := b.LiveObjects(); n != 0 {
		t.Errorf("LiveObjects() after Destroy = %d, want 0", n)
	}
}

func TestRenderPassOnRecordingBackend(t *testing.T) {
	b := recording.New(640, 480)
	r, err := imm.NewRenderer[imm.Vertex](b)
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	target, err := b.NewTexture(imm.TextureDesc{Width: 128, Height: 64, RenderTarget: true}, nil)
	if err != nil {
		t.Fatal(err)
	}
	pass, err := b.NewRenderPass(target, imm.NoTexture)
	if err != nil {
		t.Fatal(err)
	}

	r.WithRenderPass(pass)
	if err := r.Clear(b, imm.Black); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	quad, idx := imm.Quad(0, 0, 8, 8, imm.Red)
	r.PushGeometry(quad, idx)
	if got := r.Viewport(b); got != (imm.Rect{W: 128, H: 64}) {
		t.Errorf("Viewport() = %v, want pass target size", got)
	}
	if err := r.Flush(b, mgl32.Ident4()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	d := b.DrawCommands()[0]
	if d.Pass != pass || d.Viewport != (imm.Rect{W: 128, H: 64}) {
		t.Errorf("draw pass/viewport = %v/%v", d.Pass, d.Viewport)
	}
}
