package imm

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// UniformType is the element type of a uniform.
type UniformType uint8

const (
	UniformFloat1 UniformType = iota
	UniformFloat2
	UniformFloat3
	UniformFloat4
	UniformInt1
	UniformInt2
	UniformInt3
	UniformInt4
	UniformMat4
)

var uniformTypeInfo = [...]struct {
	name string
	size int
}{
	UniformFloat1: {"Float1", 4},
	UniformFloat2: {"Float2", 8},
	UniformFloat3: {"Float3", 12},
	UniformFloat4: {"Float4", 16},
	UniformInt1:   {"Int1", 4},
	UniformInt2:   {"Int2", 8},
	UniformInt3:   {"Int3", 12},
	UniformInt4:   {"Int4", 16},
	UniformMat4:   {"Mat4", 64},
}

// Size returns the byte size of one element.
func (t UniformType) Size() int {
	if int(t) < len(uniformTypeInfo) {
		return uniformTypeInfo[t].size
	}
	return 0
}

// String returns the type name.
func (t UniformType) String() string {
	if int(t) < len(uniformTypeInfo) {
		return uniformTypeInfo[t].name
	}
	return "Unknown"
}

// UniformDesc declares one uniform. Count > 1 declares an array.
type UniformDesc struct {
	Name  string
	Type  UniformType
	Count int
}

// NewUniform declares a scalar (non-array) uniform.
func NewUniform(name string, typ UniformType) UniformDesc {
	return UniformDesc{Name: name, Type: typ, Count: 1}
}

// NewUniformArray declares an array uniform of count elements.
func NewUniformArray(name string, typ UniformType, count int) UniformDesc {
	return UniformDesc{Name: name, Type: typ, Count: count}
}

func (d UniformDesc) count() int {
	if d.Count < 1 {
		return 1
	}
	return d.Count
}

// Size returns the byte size of the uniform including all array elements.
func (d UniformDesc) Size() int {
	return d.Type.Size() * d.count()
}

// Names of the uniforms every pipeline carries ahead of its own.
const (
	UniformProjection = "Projection"
	UniformModel      = "Model"
	UniformTime       = "Time"
)

// TextureSlot is the image name always bound to the draw call's texture.
const TextureSlot = "Texture"

var reservedUniforms = []UniformDesc{
	NewUniform(UniformProjection, UniformMat4),
	NewUniform(UniformModel, UniformMat4),
	NewUniform(UniformTime, UniformFloat4),
}

// uniformSlot locates a uniform inside a pipeline's uniform bytes.
type uniformSlot struct {
	desc   UniformDesc
	offset int
}

// uniformLayout is the packed layout of a pipeline's uniform block:
// reserved uniforms first, then declared ones, each at the running sum of
// the sizes before it.
type uniformLayout struct {
	slots  []uniformSlot
	byName map[string]int
	size   int
}

func newUniformLayout(declared []UniformDesc) (*uniformLayout, error) {
	l := &uniformLayout{byName: make(map[string]int, len(reservedUniforms)+len(declared))}
	for _, d := range reservedUniforms {
		l.add(d)
	}
	for _, d := range declared {
		if _, ok := l.byName[d.Name]; ok {
			for _, r := range reservedUniforms {
				if r.Name == d.Name {
					return nil, fmt.Errorf("%w: %q", ErrReservedUniformName, d.Name)
				}
			}
			return nil, fmt.Errorf("%w: uniform %q", ErrDuplicateName, d.Name)
		}
		if d.Type.Size() == 0 {
			return nil, fmt.Errorf("imm: uniform %q has unknown type %d", d.Name, d.Type)
		}
		l.add(d)
	}
	return l, nil
}

func (l *uniformLayout) add(d UniformDesc) {
	d.Count = d.count()
	l.byName[d.Name] = len(l.slots)
	l.slots = append(l.slots, uniformSlot{desc: d, offset: l.size})
	l.size += d.Size()
}

func (l *uniformLayout) lookup(name string) (uniformSlot, bool) {
	i, ok := l.byName[name]
	if !ok {
		return uniformSlot{}, false
	}
	return l.slots[i], true
}

func (l *uniformLayout) descs() []UniformDesc {
	out := make([]UniformDesc, len(l.slots))
	for i, s := range l.slots {
		out[i] = s.desc
	}
	return out
}

// isUniformWidth reports whether n is a width SetUniform accepts.
func isUniformWidth(n int) bool {
	switch n {
	case 4, 8, 12, 16, 64:
		return true
	}
	return false
}

// encodeUniform converts a uniform value to little-endian bytes.
// Raw []byte values are passed through; everything else must be a
// fixed-size value accepted by encoding/binary (float32, int32, uint32,
// arrays of them, mgl32 vectors and matrices, or slices of those).
func encodeUniform(v any) ([]byte, error) {
	if b, ok := v.([]byte); ok {
		return b, nil
	}
	if binary.Size(v) < 0 {
		return nil, fmt.Errorf("imm: unsupported uniform value type %T", v)
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		return nil, fmt.Errorf("imm: encode uniform %T: %w", v, err)
	}
	return buf.Bytes(), nil
}
