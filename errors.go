package imm

import "errors"

// Configuration errors returned by the pipeline registry and renderer
// construction. Backend failures are wrapped with fmt.Errorf and %w.
var (
	// ErrReservedTextureName is returned when a pipeline declares a texture
	// named "Texture", which is always bound to the draw call's texture.
	ErrReservedTextureName = errors.New("imm: texture name is reserved")

	// ErrReservedUniformName is returned when a pipeline declares a uniform
	// that collides with Projection, Model or Time.
	ErrReservedUniformName = errors.New("imm: uniform name is reserved")

	// ErrDuplicateName is returned when a uniform or texture name is
	// declared twice for the same pipeline.
	ErrDuplicateName = errors.New("imm: duplicate uniform or texture name")

	// ErrPipelineCapacity is returned when every pipeline slot is in use.
	ErrPipelineCapacity = errors.New("imm: pipeline capacity exhausted")

	// ErrInvalidCapacity is returned by NewRenderer and ResizeCapacity for
	// non-positive or out-of-range buffer capacities.
	ErrInvalidCapacity = errors.New("imm: invalid capacity")

	// ErrVertexLayout is returned when a vertex type's attribute list does
	// not describe its in-memory size.
	ErrVertexLayout = errors.New("imm: vertex attributes do not match vertex size")

	// ErrIncludeNotFound is returned by PreprocessShader for an #include
	// directive naming an unknown file.
	ErrIncludeNotFound = errors.New("imm: shader include not found")
)
