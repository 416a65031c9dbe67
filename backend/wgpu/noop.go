package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/imm"
)

func init() {
	imm.RegisterBackend("noop", func(width, height int) (imm.Backend, error) {
		b, err := NewNoop(WithScreenSize(width, height))
		if err != nil {
			return nil, err
		}
		return b, nil
	})
}

// NoopBackend is a Backend running on the wgpu noop device. It owns the
// device and releases it on Destroy.
type NoopBackend struct {
	*Backend
	instance hal.Instance
	device   hal.Device
}

// NewNoop opens a noop device and creates a backend on it. Nothing is
// rendered, but every HAL call the backend makes is exercised.
func NewNoop(opts ...Option) (*NoopBackend, error) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("wgpu: noop instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: noop instance has no adapters")
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open noop adapter: %w", err)
	}
	b, err := New(open.Device, open.Queue, opts...)
	if err != nil {
		open.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	return &NoopBackend{Backend: b, instance: instance, device: open.Device}, nil
}

// Destroy releases the backend objects, the device and the instance.
func (n *NoopBackend) Destroy() {
	n.Backend.Destroy()
	n.device.Destroy()
	n.instance.Destroy()
}
