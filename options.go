package imm

import (
	"fmt"
	"time"
)

// Default capacities of a single draw call. Indices are 16-bit, so a draw
// call never addresses more than MaxVerticesLimit vertices.
const (
	DefaultMaxVertices      = 10000
	DefaultMaxIndices       = 5000
	DefaultPipelineCapacity = 32
	MaxVerticesLimit        = 1 << 16
)

// Option configures a Renderer during creation.
//
// Example:
//
//	r, err := imm.NewRenderer[imm.Vertex](backend,
//	    imm.WithMaxVertices(20000),
//	    imm.WithMaxIndices(40000),
//	)
type Option func(*options)

type options struct {
	maxVertices      int
	maxIndices       int
	pipelineCapacity int
	initialDrawCalls int
	clock            func() time.Time
	defaultShader    *ShaderSource
}

func defaultOptions() options {
	return options{
		maxVertices:      DefaultMaxVertices,
		maxIndices:       DefaultMaxIndices,
		pipelineCapacity: DefaultPipelineCapacity,
		initialDrawCalls: 8,
		clock:            time.Now,
	}
}

func (o *options) validate() error {
	if o.maxVertices <= 0 || o.maxVertices > MaxVerticesLimit {
		return fmt.Errorf("%w: max vertices %d", ErrInvalidCapacity, o.maxVertices)
	}
	if o.maxIndices <= 0 {
		return fmt.Errorf("%w: max indices %d", ErrInvalidCapacity, o.maxIndices)
	}
	if o.pipelineCapacity < len(builtinPipelines) {
		return fmt.Errorf("%w: pipeline capacity %d", ErrInvalidCapacity, o.pipelineCapacity)
	}
	if o.initialDrawCalls < 0 {
		return fmt.Errorf("%w: initial draw calls %d", ErrInvalidCapacity, o.initialDrawCalls)
	}
	return nil
}

// WithMaxVertices sets the per-draw-call vertex capacity.
// Geometry pushed in a single call beyond this count is truncated.
func WithMaxVertices(n int) Option {
	return func(o *options) {
		o.maxVertices = n
	}
}

// WithMaxIndices sets the per-draw-call index capacity.
func WithMaxIndices(n int) Option {
	return func(o *options) {
		o.maxIndices = n
	}
}

// WithPipelineCapacity sets the number of pipeline slots, including the
// four built-in pipelines.
func WithPipelineCapacity(n int) Option {
	return func(o *options) {
		o.pipelineCapacity = n
	}
}

// WithInitialDrawCalls preallocates draw-call records.
func WithInitialDrawCalls(n int) Option {
	return func(o *options) {
		o.initialDrawCalls = n
	}
}

// WithClock replaces the time source used for the Time uniform.
// Tests use it to get deterministic uniform contents.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}

// WithDefaultShader replaces the WGSL shader of the built-in pipelines.
// Renderers over a custom vertex type need one whose inputs match it.
func WithDefaultShader(src ShaderSource) Option {
	return func(o *options) {
		o.defaultShader = &src
	}
}
