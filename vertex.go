package imm

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

// VertexAttribute names one field of a vertex and its GPU format.
// Attributes are bound to shader locations in declaration order.
type VertexAttribute struct {
	Name   string
	Format gputypes.VertexFormat
}

// Vertexer is implemented by vertex types usable with a Renderer.
// Attributes must list every field in memory order with no padding.
type Vertexer interface {
	Attributes() []VertexAttribute
}

// Vertex is the default vertex format.
type Vertex struct {
	Position mgl32.Vec3
	UV       mgl32.Vec2
	Color    [4]uint8
	// Normal is free-use data forwarded to shaders untouched.
	Normal mgl32.Vec4
}

var vertexAttributes = []VertexAttribute{
	{Name: "position", Format: gputypes.VertexFormatFloat32x3},
	{Name: "texcoord", Format: gputypes.VertexFormatFloat32x2},
	{Name: "color0", Format: gputypes.VertexFormatUnorm8x4},
	{Name: "normal", Format: gputypes.VertexFormatFloat32x4},
}

// Attributes implements Vertexer.
func (Vertex) Attributes() []VertexAttribute { return vertexAttributes }

// NewVertex creates a vertex with a zero normal.
func NewVertex(x, y, z, u, v float32, c RGBA) Vertex {
	return Vertex{
		Position: mgl32.Vec3{x, y, z},
		UV:       mgl32.Vec2{u, v},
		Color:    c.Bytes(),
	}
}

// VertexStride returns the byte size of one vertex described by attrs.
func VertexStride(attrs []VertexAttribute) int {
	n := 0
	for _, a := range attrs {
		n += int(a.Format.Size())
	}
	return n
}

// BufferLayout converts attrs into a single interleaved GPU vertex buffer
// layout with shader locations 0..len(attrs)-1.
func BufferLayout(attrs []VertexAttribute) gputypes.VertexBufferLayout {
	out := make([]gputypes.VertexAttribute, len(attrs))
	var offset uint64
	for i, a := range attrs {
		out[i] = gputypes.VertexAttribute{
			Format:         a.Format,
			Offset:         offset,
			ShaderLocation: uint32(i), //nolint:gosec // attribute count is tiny
		}
		offset += a.Format.Size()
	}
	return gputypes.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  out,
	}
}

// checkVertexLayout verifies that V's attributes describe its memory size.
func checkVertexLayout[V Vertexer]() ([]VertexAttribute, error) {
	var zero V
	attrs := zero.Attributes()
	if len(attrs) == 0 {
		return nil, fmt.Errorf("%w: %T declares no attributes", ErrVertexLayout, zero)
	}
	if stride, size := VertexStride(attrs), int(unsafe.Sizeof(zero)); stride != size {
		return nil, fmt.Errorf("%w: %T attributes span %d bytes, type is %d bytes",
			ErrVertexLayout, zero, stride, size)
	}
	return attrs, nil
}

// vertexBytes reinterprets a vertex slice as raw bytes for upload.
func vertexBytes[V any](vs []V) []byte {
	if len(vs) == 0 {
		return nil
	}
	size := int(unsafe.Sizeof(vs[0]))
	return unsafe.Slice((*byte)(unsafe.Pointer(&vs[0])), len(vs)*size) //nolint:gosec // V has no pointers, layout checked
}

// indexBytes reinterprets a uint16 slice as little-endian bytes.
func indexBytes(is []uint16) []byte {
	if len(is) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&is[0])), len(is)*2) //nolint:gosec // uint16 slice view
}
