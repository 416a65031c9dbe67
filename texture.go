package imm

import "github.com/go-gl/mathgl/mgl32"

// SourceRect selects a region of a texture in pixels.
type SourceRect struct {
	X, Y, W, H float32
}

// DrawTextureParams adjusts DrawTextureEx. The zero value draws the whole
// texture at its own size, unrotated.
type DrawTextureParams struct {
	// DestSize is the drawn size. Nil uses the source size.
	DestSize *mgl32.Vec2
	// Source is the texture region to draw, useful for atlases. Nil draws
	// the whole texture.
	Source *SourceRect
	// Rotation in radians around Pivot.
	Rotation float32
	FlipX    bool
	FlipY    bool
	// Pivot is in screen space. Nil rotates around the quad's center.
	Pivot *mgl32.Vec2
}

// TextureQuad returns the vertices and indices of a quad showing a
// texture of texW x texH pixels at (x, y).
func TextureQuad(texW, texH int, x, y float32, c RGBA, params DrawTextureParams) ([]Vertex, []uint16) {
	tw, th := float32(texW), float32(texH)
	src := SourceRect{W: tw, H: th}
	if params.Source != nil {
		src = *params.Source
	}
	w, h := src.W, src.H
	if params.DestSize != nil {
		w, h = params.DestSize.X(), params.DestSize.Y()
	}
	if params.FlipX {
		x += w
		w = -w
	}
	if params.FlipY {
		y += h
		h = -h
	}

	pivot := mgl32.Vec2{x + w/2, y + h/2}
	if params.Pivot != nil {
		pivot = *params.Pivot
	}
	rot := mgl32.Rotate2D(params.Rotation)
	corner := func(px, py float32) mgl32.Vec2 {
		return rot.Mul2x1(mgl32.Vec2{px, py}.Sub(pivot)).Add(pivot)
	}
	p0, p1 := corner(x, y), corner(x+w, y)
	p2, p3 := corner(x+w, y+h), corner(x, y+h)

	u0, v0 := src.X/tw, src.Y/th
	u1, v1 := (src.X+src.W)/tw, (src.Y+src.H)/th
	return []Vertex{
			NewVertex(p0.X(), p0.Y(), 0, u0, v0, c),
			NewVertex(p1.X(), p1.Y(), 0, u1, v0, c),
			NewVertex(p2.X(), p2.Y(), 0, u1, v1, c),
			NewVertex(p3.X(), p3.Y(), 0, u0, v1, c),
		},
		[]uint16{0, 1, 2, 0, 2, 3}
}

// DrawTexture draws tex at (x, y) at its own size, tinted by c.
func DrawTexture(r *Renderer[Vertex], b Backend, tex TextureID, x, y float32, c RGBA) {
	DrawTextureEx(r, b, tex, x, y, c, DrawTextureParams{})
}

// DrawTextureEx draws tex as a textured quad. The texture and draw mode of
// r are restored afterwards, like DrawMesh. A texture the backend reports
// as empty draws nothing.
func DrawTextureEx(r *Renderer[Vertex], b Backend, tex TextureID, x, y float32, c RGBA, params DrawTextureParams) {
	w, h := b.TextureSize(tex)
	if w <= 0 || h <= 0 {
		Logger().Warn("imm: DrawTexture with an empty texture", "texture", tex)
		return
	}
	verts, idx := TextureQuad(w, h, x, y, c, params)
	r.DrawMesh(&Mesh[Vertex]{Vertices: verts, Indices: idx, Texture: tex})
}
