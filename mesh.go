package imm

// Mesh is indexed geometry drawn with one texture.
type Mesh[V Vertexer] struct {
	Vertices []V
	Indices  []uint16
	Texture  TextureID
}

// DrawMesh pushes m as triangles with its texture and restores the
// previous texture afterwards.
func (r *Renderer[V]) DrawMesh(m *Mesh[V]) {
	prevTex, prevMode := r.state.texture, r.state.mode
	r.WithTexture(m.Texture)
	r.WithDrawMode(Triangles)
	r.PushGeometry(m.Vertices, m.Indices)
	r.WithTexture(prevTex)
	r.WithDrawMode(prevMode)
}

// Quad returns the four vertices and six indices of an axis-aligned quad
// with texture coordinates covering the whole texture.
func Quad(x, y, w, h float32, c RGBA) ([]Vertex, []uint16) {
	return []Vertex{
			NewVertex(x, y, 0, 0, 0, c),
			NewVertex(x+w, y, 0, 1, 0, c),
			NewVertex(x+w, y+h, 0, 1, 1, c),
			NewVertex(x, y+h, 0, 0, 1, c),
		},
		[]uint16{0, 1, 2, 0, 2, 3}
}
