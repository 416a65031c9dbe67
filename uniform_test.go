package imm

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestUniformTypeSize(t *testing.T) {
	want := map[UniformType]int{
		UniformFloat1: 4, UniformFloat2: 8, UniformFloat3: 12, UniformFloat4: 16,
		UniformInt1: 4, UniformInt2: 8, UniformInt3: 12, UniformInt4: 16,
		UniformMat4: 64,
	}
	for typ, size := range want {
		if got := typ.Size(); got != size {
			t.Errorf("%v.Size() = %d, want %d", typ, got, size)
		}
		if !isUniformWidth(size) {
			t.Errorf("isUniformWidth(%d) = false", size)
		}
	}
	if UniformType(200).Size() != 0 || UniformType(200).String() != "Unknown" {
		t.Error("unknown uniform type has a size or name")
	}
}

func TestUniformLayoutPacksInOrder(t *testing.T) {
	l, err := newUniformLayout([]UniformDesc{
		NewUniform("A", UniformFloat3),
		NewUniformArray("B", UniformFloat2, 3),
		{Name: "C", Type: UniformInt1},
	})
	if err != nil {
		t.Fatalf("newUniformLayout() error = %v", err)
	}
	want := []struct {
		name   string
		offset int
	}{
		{UniformProjection, 0},
		{UniformModel, 64},
		{UniformTime, 128},
		{"A", 144},
		{"B", 156},
		{"C", 180},
	}
	for _, w := range want {
		slot, ok := l.lookup(w.name)
		if !ok {
			t.Fatalf("lookup(%q) missing", w.name)
		}
		if slot.offset != w.offset {
			t.Errorf("%s offset = %d, want %d", w.name, slot.offset, w.offset)
		}
	}
	if l.size != 184 {
		t.Errorf("size = %d, want 184", l.size)
	}
	if c, _ := l.lookup("C"); c.desc.Count != 1 {
		t.Errorf("zero Count not normalized: %d", c.desc.Count)
	}
}

func TestUniformLayoutRejectsUnknownType(t *testing.T) {
	_, err := newUniformLayout([]UniformDesc{{Name: "X", Type: UniformType(99)}})
	if err == nil {
		t.Error("newUniformLayout() accepted an unknown type")
	}
	_, err = newUniformLayout([]UniformDesc{NewUniform(UniformTime, UniformFloat4)})
	if !errors.Is(err, ErrReservedUniformName) {
		t.Errorf("error = %v, want ErrReservedUniformName", err)
	}
}

func TestEncodeUniform(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		size    int
		wantErr bool
	}{
		{"float32", float32(1), 4, false},
		{"vec3", mgl32.Vec3{}, 12, false},
		{"mat4", mgl32.Ident4(), 64, false},
		{"slice", []float32{1, 2, 3}, 12, false},
		{"raw", []byte{1, 2}, 2, false},
		{"int", 1, 0, true},
		{"string", "x", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := encodeUniform(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("encodeUniform() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && len(got) != tt.size {
				t.Errorf("len = %d, want %d", len(got), tt.size)
			}
		})
	}
}
