package wgpu

import "github.com/gogpu/gputypes"

const (
	defaultWidth  = 800
	defaultHeight = 600

	depthFormat = gputypes.TextureFormatDepth24Plus
)

// Option configures a Backend.
type Option func(*options)

type options struct {
	format        gputypes.TextureFormat
	width, height int
	spirv         bool
	label         string
}

func defaultOptions() options {
	return options{
		format: gputypes.TextureFormatBGRA8Unorm,
		width:  defaultWidth,
		height: defaultHeight,
		spirv:  true,
		label:  "imm",
	}
}

// WithTargetFormat sets the color format of the backbuffer and of render
// target textures. Pipelines are built against this format.
// Default: BGRA8Unorm, or the provider's surface format with NewFromProvider.
func WithTargetFormat(format gputypes.TextureFormat) Option {
	return func(o *options) {
		if format != gputypes.TextureFormatUndefined {
			o.format = format
		}
	}
}

// WithScreenSize sets the size of the offscreen backbuffer used until
// SetSurfaceTarget is called. Non-positive values are ignored.
func WithScreenSize(width, height int) Option {
	return func(o *options) {
		if width > 0 && height > 0 {
			o.width, o.height = width, height
		}
	}
}

// WithSPIRV controls whether shaders are also compiled to SPIR-V by naga.
// When disabled only the WGSL text reaches the HAL. Default: enabled.
func WithSPIRV(enabled bool) Option {
	return func(o *options) {
		o.spirv = enabled
	}
}

// WithLabel sets the prefix of GPU object debug labels.
func WithLabel(label string) Option {
	return func(o *options) {
		if label != "" {
			o.label = label
		}
	}
}
