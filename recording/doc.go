// Package recording provides an in-memory imm.Backend that records GPU
// commands.
//
// Every backend call is captured as a typed command structure instead of
// being sent to a device. Buffer and texture contents are kept so that
// draws can be validated and inspected after a frame: which pipeline and
// textures were bound, the viewport and scissor rectangles, the uniform
// bytes, and the exact vertices and indices each draw read.
//
// # Example
//
//	b := recording.New(800, 600)
//	r, _ := imm.NewRenderer[imm.Vertex](b)
//	r.PushGeometry(verts, indices)
//	_ = r.Flush(b, projection)
//
//	for _, d := range b.DrawCommands() {
//	    fmt.Println(d.Pipeline, d.Scissor, len(d.Indices))
//	}
package recording
