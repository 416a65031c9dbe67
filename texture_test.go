package imm

import (
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func near(a, b mgl32.Vec2) bool {
	return a.ApproxEqualThreshold(b, 1e-4)
}

func positions(verts []Vertex) []mgl32.Vec2 {
	out := make([]mgl32.Vec2, len(verts))
	for i, v := range verts {
		out[i] = v.Position.Vec2()
	}
	return out
}

func TestTextureQuadSourceRect(t *testing.T) {
	verts, idx := TextureQuad(64, 32, 10, 20, White, DrawTextureParams{
		Source: &SourceRect{X: 16, Y: 8, W: 32, H: 16},
	})
	if len(verts) != 4 || len(idx) != 6 {
		t.Fatalf("got %d vertices, %d indices", len(verts), len(idx))
	}
	wantUV := []mgl32.Vec2{{0.25, 0.25}, {0.75, 0.25}, {0.75, 0.75}, {0.25, 0.75}}
	wantPos := []mgl32.Vec2{{10, 20}, {42, 20}, {42, 36}, {10, 36}}
	for i, v := range verts {
		if !near(v.UV, wantUV[i]) {
			t.Errorf("vertex %d UV = %v, want %v", i, v.UV, wantUV[i])
		}
		if !near(v.Position.Vec2(), wantPos[i]) {
			t.Errorf("vertex %d position = %v, want %v", i, v.Position, wantPos[i])
		}
	}
}

func TestTextureQuadDestSize(t *testing.T) {
	verts, _ := TextureQuad(8, 8, 0, 0, White, DrawTextureParams{DestSize: &mgl32.Vec2{100, 50}})
	if got := verts[2].Position.Vec2(); !near(got, mgl32.Vec2{100, 50}) {
		t.Errorf("far corner = %v, want (100, 50)", got)
	}
	if got := verts[2].UV; !near(got, mgl32.Vec2{1, 1}) {
		t.Errorf("far UV = %v, want (1, 1)", got)
	}
}

func TestTextureQuadFlip(t *testing.T) {
	tests := []struct {
		name   string
		params DrawTextureParams
		want   []mgl32.Vec2
	}{
		{"none", DrawTextureParams{}, []mgl32.Vec2{{0, 0}, {10, 0}, {10, 20}, {0, 20}}},
		{"x", DrawTextureParams{FlipX: true}, []mgl32.Vec2{{10, 0}, {0, 0}, {0, 20}, {10, 20}}},
		{"y", DrawTextureParams{FlipY: true}, []mgl32.Vec2{{0, 20}, {10, 20}, {10, 0}, {0, 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verts, _ := TextureQuad(10, 20, 0, 0, White, tt.params)
			for i, p := range positions(verts) {
				if !near(p, tt.want[i]) {
					t.Errorf("vertex %d = %v, want %v", i, p, tt.want[i])
				}
			}
			// UVs stay put, so the image appears mirrored.
			if !near(verts[0].UV, mgl32.Vec2{0, 0}) {
				t.Errorf("vertex 0 UV = %v, want (0, 0)", verts[0].UV)
			}
		})
	}
}

func TestTextureQuadRotation(t *testing.T) {
	// A quarter turn around the center moves the top-left corner to the
	// top-right.
	verts, _ := TextureQuad(10, 10, 0, 0, White, DrawTextureParams{Rotation: math.Pi / 2})
	want := []mgl32.Vec2{{10, 0}, {10, 10}, {0, 10}, {0, 0}}
	for i, p := range positions(verts) {
		if !near(p, want[i]) {
			t.Errorf("center pivot vertex %d = %v, want %v", i, p, want[i])
		}
	}

	verts, _ = TextureQuad(10, 10, 0, 0, White, DrawTextureParams{
		Rotation: math.Pi,
		Pivot:    &mgl32.Vec2{0, 0},
	})
	want = []mgl32.Vec2{{0, 0}, {-10, 0}, {-10, -10}, {0, -10}}
	for i, p := range positions(verts) {
		if !near(p, want[i]) {
			t.Errorf("origin pivot vertex %d = %v, want %v", i, p, want[i])
		}
	}
}

func TestDrawTexture(t *testing.T) {
	r, b := newTestRenderer(t)
	tex, err := b.NewTexture(TextureDesc{Width: 16, Height: 8}, make([]byte, 16*8*4))
	if err != nil {
		t.Fatal(err)
	}

	r.WithDrawMode(Lines)
	DrawTexture(r, b, tex, 4, 4, Red)

	calls := r.PendingDrawCalls()
	if len(calls) != 1 {
		t.Fatalf("draw calls = %d, want 1", len(calls))
	}
	if calls[0].Texture != tex || calls[0].Mode != Triangles {
		t.Errorf("call texture=%d mode=%v, want %d Triangles", calls[0].Texture, calls[0].Mode, tex)
	}
	verts, _ := r.PendingGeometry(0)
	if got := verts[2].Position.Vec2(); !near(got, mgl32.Vec2{20, 12}) {
		t.Errorf("far corner = %v, want (20, 12)", got)
	}
	if r.state.mode != Lines || r.state.texture != NoTexture {
		t.Errorf("state after DrawTexture = %v/%d, want Lines/NoTexture", r.state.mode, r.state.texture)
	}
}

func TestDrawTextureEmptyIsSkipped(t *testing.T) {
	logs := captureLogs(t)
	r, b := newTestRenderer(t)
	DrawTextureEx(r, b, TextureID(999), 0, 0, White, DrawTextureParams{})
	if n := len(r.PendingDrawCalls()); n != 0 {
		t.Errorf("draw calls = %d, want 0", n)
	}
	if !strings.Contains(logs.String(), "empty texture") {
		t.Errorf("expected warning, got: %s", logs)
	}
}
