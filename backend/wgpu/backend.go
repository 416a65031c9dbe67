package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/imm"
)

var (
	// ErrNilDevice is returned when New receives a nil device or queue.
	ErrNilDevice = errors.New("wgpu: nil device or queue")

	// ErrNoHAL is returned by NewFromProvider when the provider does not
	// expose its HAL device and queue.
	ErrNoHAL = errors.New("wgpu: provider does not expose HAL types")
)

type buffer struct {
	buf  hal.Buffer
	kind imm.BufferKind
	size uint64
}

type texture struct {
	tex     hal.Texture
	view    hal.TextureView
	sampler hal.Sampler
	width   int
	height  int
	format  gputypes.TextureFormat
	target  bool
}

func (t *texture) destroy(device hal.Device) {
	if t.sampler != nil {
		device.DestroySampler(t.sampler)
	}
	if t.view != nil {
		device.DestroyTextureView(t.view)
	}
	if t.tex != nil {
		device.DestroyTexture(t.tex)
	}
}

// depthTarget is a Depth24Plus attachment sized like a color target.
type depthTarget struct {
	tex           hal.Texture
	view          hal.TextureView
	width, height int
}

type renderPass struct {
	color imm.TextureID
	depth depthTarget
}

// Backend implements imm.Backend on a HAL device and queue.
type Backend struct {
	device hal.Device
	queue  hal.Queue
	opts   options
	next   uint64

	buffers   map[imm.BufferID]*buffer
	shaders   map[imm.ShaderID]*shader
	pipelines map[imm.PipelineID]*pipeline
	textures  map[imm.TextureID]*texture
	passes    map[imm.RenderPassID]*renderPass

	// Default pass target. surface is set by SetSurfaceTarget; otherwise
	// offscreen is used.
	surface       hal.TextureView
	offscreen     *texture
	width, height int
	screenDepth   depthTarget

	frame     *frame
	pending   []retired
	submitted uint64
	draws     int
}

// New creates a backend on device and queue. The caller keeps ownership of
// both; Destroy releases only what the backend created.
func New(device hal.Device, queue hal.Queue, opts ...Option) (*Backend, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	b := &Backend{
		device:    device,
		queue:     queue,
		opts:      o,
		buffers:   make(map[imm.BufferID]*buffer),
		shaders:   make(map[imm.ShaderID]*shader),
		pipelines: make(map[imm.PipelineID]*pipeline),
		textures:  make(map[imm.TextureID]*texture),
		passes:    make(map[imm.RenderPassID]*renderPass),
		width:     o.width,
		height:    o.height,
	}
	off, err := b.createTexture(imm.TextureDesc{Width: o.width, Height: o.height, RenderTarget: true}, nil)
	if err != nil {
		return nil, fmt.Errorf("wgpu: create offscreen target: %w", err)
	}
	b.offscreen = off
	imm.Logger().Debug("wgpu: backend created",
		"format", o.format, "width", o.width, "height", o.height, "spirv", o.spirv)
	return b, nil
}

// NewFromProvider creates a backend on a device shared by a host
// application. The provider must implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue. Its surface format is
// used as the target format unless WithTargetFormat overrides it.
func NewFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Backend, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHAL)
	}
	all := append([]Option{WithTargetFormat(provider.SurfaceFormat())}, opts...)
	return New(device, queue, all...)
}

func (b *Backend) id() uint64 {
	b.next++
	return b.next
}

// Device returns the HAL device the backend renders with.
func (b *Backend) Device() hal.Device { return b.device }

// TargetFormat returns the color format pipelines are built for.
func (b *Backend) TargetFormat() gputypes.TextureFormat { return b.opts.format }

// SetSurfaceTarget makes view the backbuffer for the default pass. The
// view must have the target format. Pass a nil view to go back to the
// offscreen target.
func (b *Backend) SetSurfaceTarget(view hal.TextureView, width, height int) {
	b.surface = view
	if view == nil {
		b.width, b.height = b.offscreen.width, b.offscreen.height
		return
	}
	b.width, b.height = width, height
}

// ScreenSize implements imm.Backend.
func (b *Backend) ScreenSize() (int, int) {
	return b.width, b.height
}

func (b *Backend) screenView() hal.TextureView {
	if b.surface != nil {
		return b.surface
	}
	return b.offscreen.view
}

// NewBuffer implements imm.Backend.
func (b *Backend) NewBuffer(kind imm.BufferKind, size int) (imm.BufferID, error) {
	if size <= 0 {
		return 0, fmt.Errorf("wgpu: buffer size %d", size)
	}
	usage := gputypes.BufferUsageCopyDst
	switch kind {
	case imm.VertexBuffer:
		usage |= gputypes.BufferUsageVertex
	case imm.IndexBuffer:
		usage |= gputypes.BufferUsageIndex
	default:
		return 0, fmt.Errorf("wgpu: unknown buffer kind %v", kind)
	}
	id := imm.BufferID(b.id())
	sz := align(uint64(size), 4)
	buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: fmt.Sprintf("%s_%s_buffer_%d", b.opts.label, kind, id),
		Size:  sz,
		Usage: usage,
	})
	if err != nil {
		return 0, fmt.Errorf("wgpu: create %v buffer: %w", kind, err)
	}
	b.buffers[id] = &buffer{buf: buf, kind: kind, size: sz}
	return id, nil
}

// UpdateBuffer implements imm.Backend. Writes are padded to a multiple of
// four bytes as the queue requires.
func (b *Backend) UpdateBuffer(id imm.BufferID, data []byte) error {
	buf, ok := b.buffers[id]
	if !ok {
		return fmt.Errorf("wgpu: update of unknown buffer %d", id)
	}
	if len(data) == 0 {
		return nil
	}
	if uint64(len(data)) > buf.size {
		return fmt.Errorf("wgpu: %d bytes do not fit %v buffer %d of %d bytes",
			len(data), buf.kind, id, buf.size)
	}
	if rem := len(data) % 4; rem != 0 {
		padded := make([]byte, len(data)+4-rem)
		copy(padded, data)
		data = padded
	}
	if err := b.queue.WriteBuffer(buf.buf, 0, data); err != nil {
		return fmt.Errorf("wgpu: write buffer %d: %w", id, err)
	}
	return nil
}

// DeleteBuffer implements imm.Backend.
func (b *Backend) DeleteBuffer(id imm.BufferID) {
	buf, ok := b.buffers[id]
	if !ok {
		return
	}
	delete(b.buffers, id)
	b.retire(retired{buffer: buf.buf})
}

// NewTexture implements imm.Backend. Sampled textures are RGBA8Unorm;
// render targets use the target format so pipelines can draw into them.
func (b *Backend) NewTexture(desc imm.TextureDesc, rgba []byte) (imm.TextureID, error) {
	t, err := b.createTexture(desc, rgba)
	if err != nil {
		return 0, err
	}
	id := imm.TextureID(b.id())
	b.textures[id] = t
	return id, nil
}

func (b *Backend) createTexture(desc imm.TextureDesc, rgba []byte) (*texture, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("wgpu: texture size %dx%d", desc.Width, desc.Height)
	}
	if rgba != nil && len(rgba) != desc.Width*desc.Height*4 {
		return nil, fmt.Errorf("wgpu: texture data is %d bytes, want %d",
			len(rgba), desc.Width*desc.Height*4)
	}
	format := gputypes.TextureFormatRGBA8Unorm
	usage := gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst
	if desc.RenderTarget {
		format = b.opts.format
		usage |= gputypes.TextureUsageRenderAttachment
	}
	size := hal.Extent3D{
		Width:              uint32(desc.Width),  //nolint:gosec // checked positive
		Height:             uint32(desc.Height), //nolint:gosec // checked positive
		DepthOrArrayLayers: 1,
	}
	label := fmt.Sprintf("%s_texture_%dx%d", b.opts.label, desc.Width, desc.Height)

	t := &texture{width: desc.Width, height: desc.Height, format: format, target: desc.RenderTarget}
	var err error
	t.tex, err = b.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture: %w", err)
	}
	t.view, err = b.device.CreateTextureView(t.tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		t.destroy(b.device)
		return nil, fmt.Errorf("wgpu: create texture view: %w", err)
	}
	filter := desc.Filter
	if filter == gputypes.FilterModeUndefined {
		filter = gputypes.FilterModeLinear
	}
	t.sampler, err = b.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        label + "_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    filter,
		MinFilter:    filter,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		t.destroy(b.device)
		return nil, fmt.Errorf("wgpu: create sampler: %w", err)
	}

	if rgba != nil {
		data := rgba
		if format == gputypes.TextureFormatBGRA8Unorm {
			data = swizzleRB(rgba)
		}
		err = b.queue.WriteTexture(
			&hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0},
			data,
			&hal.ImageDataLayout{
				Offset:       0,
				BytesPerRow:  size.Width * 4,
				RowsPerImage: size.Height,
			},
			&size,
		)
		if err != nil {
			t.destroy(b.device)
			return nil, fmt.Errorf("wgpu: upload texture: %w", err)
		}
	}
	return t, nil
}

// swizzleRB converts RGBA8 pixels to BGRA8.
func swizzleRB(rgba []byte) []byte {
	out := make([]byte, len(rgba))
	for i := 0; i+3 < len(rgba); i += 4 {
		out[i], out[i+1], out[i+2], out[i+3] = rgba[i+2], rgba[i+1], rgba[i], rgba[i+3]
	}
	return out
}

// DeleteTexture implements imm.Backend.
func (b *Backend) DeleteTexture(id imm.TextureID) {
	t, ok := b.textures[id]
	if !ok {
		return
	}
	delete(b.textures, id)
	b.retire(retired{texture: t})
}

// TextureSize implements imm.Backend.
func (b *Backend) TextureSize(id imm.TextureID) (int, int) {
	t, ok := b.textures[id]
	if !ok {
		return 0, 0
	}
	return t.width, t.height
}

// NewRenderPass implements imm.Backend. The depth texture, when given, is
// only checked for size: the pass always renders depth into an attachment
// the backend owns.
func (b *Backend) NewRenderPass(color, depth imm.TextureID) (imm.RenderPassID, error) {
	ct, ok := b.textures[color]
	if !ok {
		return 0, fmt.Errorf("wgpu: render pass with unknown color texture %d", color)
	}
	if !ct.target {
		return 0, fmt.Errorf("wgpu: texture %d is not a render target", color)
	}
	if depth != imm.NoTexture {
		dt, ok := b.textures[depth]
		if !ok {
			return 0, fmt.Errorf("wgpu: render pass with unknown depth texture %d", depth)
		}
		if dt.width != ct.width || dt.height != ct.height {
			return 0, fmt.Errorf("wgpu: depth texture %dx%d does not match color %dx%d",
				dt.width, dt.height, ct.width, ct.height)
		}
	}
	d, err := b.createDepth(ct.width, ct.height)
	if err != nil {
		return 0, err
	}
	id := imm.RenderPassID(b.id())
	b.passes[id] = &renderPass{color: color, depth: d}
	return id, nil
}

func (b *Backend) createDepth(width, height int) (depthTarget, error) {
	tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label: b.opts.label + "_depth",
		Size: hal.Extent3D{
			Width:              uint32(width),  //nolint:gosec // target size
			Height:             uint32(height), //nolint:gosec // target size
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        depthFormat,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		return depthTarget{}, fmt.Errorf("wgpu: create depth texture: %w", err)
	}
	view, err := b.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         b.opts.label + "_depth_view",
		Format:        depthFormat,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectDepthOnly,
		MipLevelCount: 1,
	})
	if err != nil {
		b.device.DestroyTexture(tex)
		return depthTarget{}, fmt.Errorf("wgpu: create depth view: %w", err)
	}
	return depthTarget{tex: tex, view: view, width: width, height: height}, nil
}

func (d *depthTarget) destroy(device hal.Device) {
	if d.view != nil {
		device.DestroyTextureView(d.view)
	}
	if d.tex != nil {
		device.DestroyTexture(d.tex)
	}
	*d = depthTarget{}
}

// screenDepthView returns the depth attachment of the default pass,
// recreating it when the backbuffer size changed.
func (b *Backend) screenDepthView() (hal.TextureView, error) {
	d := &b.screenDepth
	if d.view != nil && d.width == b.width && d.height == b.height {
		return d.view, nil
	}
	if d.view != nil {
		old := *d
		b.retire(retired{depth: &old})
		*d = depthTarget{}
	}
	nd, err := b.createDepth(b.width, b.height)
	if err != nil {
		return nil, err
	}
	*d = nd
	return d.view, nil
}

// RenderPassTexture implements imm.Backend.
func (b *Backend) RenderPassTexture(id imm.RenderPassID) imm.TextureID {
	p, ok := b.passes[id]
	if !ok {
		return imm.NoTexture
	}
	return p.color
}

// DeleteRenderPass implements imm.Backend. The color texture is left to
// the caller.
func (b *Backend) DeleteRenderPass(id imm.RenderPassID) {
	p, ok := b.passes[id]
	if !ok {
		return
	}
	delete(b.passes, id)
	d := p.depth
	b.retire(retired{depth: &d})
}

// Destroy waits for the device to go idle and releases every object the
// backend created. The device and queue stay alive.
func (b *Backend) Destroy() {
	if b.frame != nil {
		b.frame.discard()
		b.pending = append(b.pending, b.frame.transient...)
		b.frame = nil
	}
	if err := b.device.WaitIdle(); err != nil {
		imm.Logger().Warn("wgpu: wait idle on destroy", "err", err)
	}
	b.collect(^uint64(0))

	for id := range b.pipelines {
		b.DeletePipeline(id)
	}
	for id := range b.shaders {
		b.DeleteShader(id)
	}
	for id, buf := range b.buffers {
		b.device.DestroyBuffer(buf.buf)
		delete(b.buffers, id)
	}
	for id, t := range b.textures {
		t.destroy(b.device)
		delete(b.textures, id)
	}
	for id, p := range b.passes {
		p.depth.destroy(b.device)
		delete(b.passes, id)
	}
	b.screenDepth.destroy(b.device)
	if b.offscreen != nil {
		b.offscreen.destroy(b.device)
		b.offscreen = nil
	}
	b.surface = nil
}

// LiveObjects returns the number of buffers, shaders, pipelines, textures
// and render passes currently alive.
func (b *Backend) LiveObjects() int {
	return len(b.buffers) + len(b.shaders) + len(b.pipelines) + len(b.textures) + len(b.passes)
}

// Stats returns the number of draws encoded and the last submission index.
func (b *Backend) Stats() (draws int, submission uint64) {
	return b.draws, b.submitted
}

func align(n, to uint64) uint64 {
	return (n + to - 1) / to * to
}

var _ imm.Backend = (*Backend)(nil)
