package imm

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

func floatAt(data []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
}

func TestFlushTwiceDrawsNothingSecondTime(t *testing.T) {
	r, b := newTestRenderer(t)
	v, i := triangle()
	r.PushGeometry(v, i)

	if err := r.Flush(b, mgl32.Ident4()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if len(b.draws) != 1 {
		t.Fatalf("draws after first flush = %d, want 1", len(b.draws))
	}
	if err := r.Flush(b, mgl32.Ident4()); err != nil {
		t.Fatalf("second Flush() error = %v", err)
	}
	if len(b.draws) != 1 {
		t.Errorf("draws after second flush = %d, want still 1", len(b.draws))
	}
	if got := r.LastFrame().DrawCalls; got != 0 {
		t.Errorf("LastFrame().DrawCalls = %d, want 0", got)
	}
}

func TestFlushScissorFlipsY(t *testing.T) {
	r, b := newTestRenderer(t)
	v, i := triangle()
	r.PushGeometry(v, i)
	r.WithScissor(&Rect{X: 10, Y: 10, W: 50, H: 50})
	r.PushGeometry(v, i)

	if err := r.Flush(b, mgl32.Ident4()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if len(b.draws) != 2 {
		t.Fatalf("draws = %d, want 2", len(b.draws))
	}
	if got, want := b.draws[0].scissor, (Rect{W: 320, H: 200}); got != want {
		t.Errorf("unclipped scissor = %v, want %v", got, want)
	}
	if got, want := b.draws[1].scissor, (Rect{X: 10, Y: 140, W: 50, H: 50}); got != want {
		t.Errorf("clipped scissor = %v, want %v", got, want)
	}
	if got, want := b.draws[1].viewport, (Rect{W: 320, H: 200}); got != want {
		t.Errorf("viewport = %v, want %v", got, want)
	}
}

func TestFlushUsesRenderPassTargetSize(t *testing.T) {
	r, b := newTestRenderer(t)
	tex, _ := b.NewTexture(TextureDesc{Width: 64, Height: 32, RenderTarget: true}, nil)
	pass, _ := b.NewRenderPass(tex, NoTexture)

	r.WithRenderPass(pass)
	r.WithScissor(&Rect{X: 0, Y: 2, W: 8, H: 10})
	v, i := triangle()
	r.PushGeometry(v, i)

	if err := r.Flush(b, mgl32.Ident4()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	d := b.draws[0]
	if d.pass != pass {
		t.Errorf("pass = %v, want %v", d.pass, pass)
	}
	if got, want := d.scissor, (Rect{X: 0, Y: 20, W: 8, H: 10}); got != want {
		t.Errorf("scissor = %v, want %v", got, want)
	}
	if got, want := d.viewport, (Rect{W: 64, H: 32}); got != want {
		t.Errorf("viewport = %v, want %v", got, want)
	}
}

func TestFlushUploadsRebasedIndices(t *testing.T) {
	r, b := newTestRenderer(t)
	v, i := triangle()
	r.PushGeometry(v, i)
	r.WithTexture(4)
	r.PushGeometry(v, i)
	r.PushGeometry(v, i)

	if err := r.Flush(b, mgl32.Ident4()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	second := b.draws[1]
	if second.count != 6 {
		t.Fatalf("second draw count = %d, want 6", second.count)
	}
	want := []uint16{0, 1, 2, 3, 4, 5}
	for k, w := range want {
		if got := binary.LittleEndian.Uint16(second.indices[2*k:]); got != w {
			t.Fatalf("index %d = %d, want %d", k, got, w)
		}
	}
	if got := len(second.vertices); got != 6*40 {
		t.Errorf("vertex bytes = %d, want %d", got, 6*40)
	}
	if second.bindings.VertexBuffer == b.draws[0].bindings.VertexBuffer {
		t.Error("draw calls share a vertex buffer")
	}
}

func TestFlushWhiteFallbackTexture(t *testing.T) {
	r, b := newTestRenderer(t)
	p, err := r.MakePipeline(b, ShaderSource{WGSL: "custom"}, DefaultPipelineParams(Triangles), nil, []string{"Mask", "Noise"})
	if err != nil {
		t.Fatalf("MakePipeline() error = %v", err)
	}
	r.SetTexture(p, "Noise", 42)
	r.WithPipeline(p)
	v, i := triangle()
	r.PushGeometry(v, i)

	if err := r.Flush(b, mgl32.Ident4()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	images := b.draws[0].bindings.Images
	if len(images) != 3 {
		t.Fatalf("images = %v, want 3 entries", images)
	}
	white := images[0]
	if size := b.textures[white]; size != [2]int{1, 1} {
		t.Errorf("fallback texture size = %v, want 1x1", size)
	}
	if px := b.pixels[white]; string(px) != "\xff\xff\xff\xff" {
		t.Errorf("fallback texture pixels = %v, want opaque white", px)
	}
	if images[1] != white || images[2] != 42 {
		t.Errorf("images = %v, want [white white 42]", images)
	}
}

func TestFlushWritesReservedUniforms(t *testing.T) {
	start := time.Unix(100, 0)
	now := start
	r, b := newTestRenderer(t, WithClock(func() time.Time { return now }))
	p, err := r.MakePipeline(b, ShaderSource{WGSL: "custom"}, DefaultPipelineParams(Triangles),
		[]UniformDesc{NewUniform("Tint", UniformFloat4)}, nil)
	if err != nil {
		t.Fatalf("MakePipeline() error = %v", err)
	}
	r.SetUniform(p, "Tint", mgl32.Vec4{1, 2, 3, 4})
	r.WithPipeline(p)
	model := mgl32.Translate3D(5, 6, 7)
	r.PushModelMatrix(model)
	v, i := triangle()
	r.PushGeometry(v, i)

	now = start.Add(2 * time.Second)
	proj := mgl32.Ortho2D(0, 320, 200, 0)
	if err := r.Flush(b, proj); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	u := b.draws[0].uniforms
	if len(u) != 64+64+16+16 {
		t.Fatalf("uniform bytes = %d, want 160", len(u))
	}
	for k := range 16 {
		if got := floatAt(u, 4*k); got != proj[k] {
			t.Fatalf("Projection[%d] = %v, want %v", k, got, proj[k])
		}
		if got := floatAt(u, 64+4*k); got != model[k] {
			t.Fatalf("Model[%d] = %v, want %v", k, got, model[k])
		}
	}
	wantTime := []float32{2, float32(math.Sin(2)), float32(math.Cos(2)), 0}
	for k, w := range wantTime {
		if got := floatAt(u, 128+4*k); got != w {
			t.Errorf("Time[%d] = %v, want %v", k, got, w)
		}
	}
	for k, w := range []float32{1, 2, 3, 4} {
		if got := floatAt(u, 144+4*k); got != w {
			t.Errorf("Tint[%d] = %v, want %v", k, got, w)
		}
	}
}

func TestFlushUsesUniformSnapshots(t *testing.T) {
	r, b := newTestRenderer(t)
	p, err := r.MakePipeline(b, ShaderSource{WGSL: "custom"}, DefaultPipelineParams(Triangles),
		[]UniformDesc{NewUniform("Alpha", UniformFloat1)}, nil)
	if err != nil {
		t.Fatalf("MakePipeline() error = %v", err)
	}
	r.WithPipeline(p)
	v, i := triangle()
	r.SetUniform(p, "Alpha", float32(0.25))
	r.PushGeometry(v, i)
	r.SetUniform(p, "Alpha", float32(0.75))
	r.PushGeometry(v, i)

	if err := r.Flush(b, mgl32.Ident4()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if len(b.draws) != 2 {
		t.Fatalf("draws = %d, want 2", len(b.draws))
	}
	if got := floatAt(b.draws[0].uniforms, 144); got != 0.25 {
		t.Errorf("first call Alpha = %v, want 0.25", got)
	}
	if got := floatAt(b.draws[1].uniforms, 144); got != 0.75 {
		t.Errorf("second call Alpha = %v, want 0.75", got)
	}
}

func TestFlushContinuesAfterBackendError(t *testing.T) {
	logs := captureLogs(t)
	r, b := newTestRenderer(t)
	b.failEnd = errors.New("device lost")
	v, i := triangle()
	r.PushGeometry(v, i)
	r.WithTexture(2)
	r.PushGeometry(v, i)

	err := r.Flush(b, mgl32.Ident4())
	if err == nil {
		t.Fatal("Flush() error = nil, want joined backend errors")
	}
	if !errors.Is(err, b.failEnd) {
		t.Errorf("Flush() error = %v, want it to wrap %v", err, b.failEnd)
	}
	if len(b.draws) != 2 {
		t.Errorf("draws = %d, want both calls attempted", len(b.draws))
	}
	if n := len(r.PendingDrawCalls()); n != 0 {
		t.Errorf("pending after failed flush = %d, want 0", n)
	}
	if logs.Len() == 0 {
		t.Error("expected a warning for the failed draw call")
	}
}

func TestFlushDropsDeletedPipeline(t *testing.T) {
	r, b := newTestRenderer(t)
	p, err := r.MakePipeline(b, ShaderSource{WGSL: "custom"}, DefaultPipelineParams(Triangles), nil, nil)
	if err != nil {
		t.Fatalf("MakePipeline() error = %v", err)
	}
	r.WithPipeline(p)
	v, i := triangle()
	r.PushGeometry(v, i)
	r.DeletePipeline(b, p)
	if r.ActivePipeline() != NoPipeline {
		t.Error("deleting the active pipeline did not clear the override")
	}
	r.PushGeometry(v, i)

	if err := r.Flush(b, mgl32.Ident4()); err == nil {
		t.Error("Flush() error = nil, want deleted pipeline error")
	}
	if len(b.draws) != 1 {
		t.Errorf("draws = %d, want only the live call", len(b.draws))
	}
}

func TestFlushCapturedDrawCalls(t *testing.T) {
	r, b := newTestRenderer(t)
	v, i := triangle()
	r.PushGeometry(v, i)
	r.WithCapture(true)
	r.PushGeometry(v, i)
	r.PushGeometry(v, i)

	if err := r.Flush(b, mgl32.Ident4()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	stats := r.LastFrame()
	if stats.DrawCalls != 2 || stats.Vertices != 9 || stats.Indices != 9 {
		t.Errorf("stats = %+v, want 2 calls, 9 vertices, 9 indices", stats)
	}
	if len(stats.Captured) != 1 || stats.Captured[0].VertexCount != 6 {
		t.Errorf("captured = %+v, want one call with 6 vertices", stats.Captured)
	}
}

func TestClearDropsPending(t *testing.T) {
	r, b := newTestRenderer(t)
	v, i := triangle()
	r.PushGeometry(v, i)

	if err := r.Clear(b, Blue); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if len(b.clears) != 1 || b.clears[0].Color.B != 1 {
		t.Errorf("clears = %+v, want one blue clear", b.clears)
	}
	if n := len(r.PendingDrawCalls()); n != 0 {
		t.Errorf("pending after Clear = %d, want 0", n)
	}
	if err := r.Flush(b, mgl32.Ident4()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if len(b.draws) != 0 {
		t.Errorf("draws = %d, want 0", len(b.draws))
	}
}

func TestResizeCapacity(t *testing.T) {
	r, b := newTestRenderer(t)
	v, i := triangle()
	r.PushGeometry(v, i)
	r.WithTexture(1)
	r.PushGeometry(v, i)
	if err := r.Flush(b, mgl32.Ident4()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	before := len(b.buffers)

	r.PushGeometry(v, i)
	if err := r.ResizeCapacity(b, 100, 300); err != nil {
		t.Fatalf("ResizeCapacity() error = %v", err)
	}
	if b.deleted != before {
		t.Errorf("deleted buffers = %d, want %d", b.deleted, before)
	}
	if len(b.buffers) != before {
		t.Errorf("buffers after resize = %d, want %d recreated", len(b.buffers), before)
	}
	for id, data := range b.buffers {
		if c := cap(data); c != 100*40 && c != 600 {
			t.Errorf("buffer %d capacity = %d, want 4000 or 600", id, c)
		}
	}
	if n := len(r.PendingDrawCalls()); n != 0 {
		t.Errorf("pending after resize = %d, want 0", n)
	}
	if r.MaxVertices() != 100 || r.MaxIndices() != 300 {
		t.Errorf("capacity = %d/%d, want 100/300", r.MaxVertices(), r.MaxIndices())
	}
	if err := r.ResizeCapacity(b, 0, 10); !errors.Is(err, ErrInvalidCapacity) {
		t.Errorf("ResizeCapacity(0) error = %v, want ErrInvalidCapacity", err)
	}
}
