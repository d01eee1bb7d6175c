package gpu

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gpumul"
	"github.com/gogpu/wgpu/hal"
)

// ComputeAccelerator provides GPU batch dispatch over the wgpu HAL.
// It implements gpumul.GPUAccelerator and gpumul.DeviceProviderAware.
//
// The accelerator either owns a standalone Vulkan device (created during
// Init) or borrows a shared device from an external provider (via
// SetDeviceProvider); borrowed resources are not destroyed on Close.
type ComputeAccelerator struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	dispatcher *Dispatcher
	adapters   []gpumul.AdapterInfo

	gpuReady       bool
	externalDevice bool // true when using a shared device (don't destroy on Close)
}

// Interface compliance checks.
var _ gpumul.GPUAccelerator = (*ComputeAccelerator)(nil)
var _ gpumul.DeviceProviderAware = (*ComputeAccelerator)(nil)

// NewComputeAccelerator returns an unregistered accelerator. Callers
// normally never construct one directly; the gpu package registers it via
// blank import.
func NewComputeAccelerator() *ComputeAccelerator {
	return &ComputeAccelerator{}
}

// Name returns the accelerator identifier.
func (a *ComputeAccelerator) Name() string { return "wgpu-compute" }

// Init discovers a compute device and compiles the kernels. It returns
// ErrBackendUnavailable or ErrNoAdapters in headless environments, which
// keeps the accelerator unregistered and routes batches to the host path.
func (a *ComputeAccelerator) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.gpuReady {
		return nil
	}

	sd, err := initStandalone()
	if err != nil {
		return err
	}
	a.instance = sd.instance
	a.device = sd.device
	a.queue = sd.queue
	a.adapters = sd.adapters
	a.externalDevice = false

	dispatcher := NewDispatcher(a.device, a.queue)
	if err := dispatcher.Init(); err != nil {
		a.closeLocked()
		return fmt.Errorf("gpu: pipeline init: %w", err)
	}
	a.dispatcher = dispatcher
	a.gpuReady = true
	return nil
}

// Close releases all GPU resources held by the accelerator.
func (a *ComputeAccelerator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closeLocked()
}

// closeLocked releases resources. The caller must hold a.mu.
func (a *ComputeAccelerator) closeLocked() {
	if a.dispatcher != nil {
		a.dispatcher.Close()
		a.dispatcher = nil
	}

	if !a.externalDevice {
		if a.device != nil {
			a.device.Destroy()
			a.device = nil
		}
		if a.instance != nil {
			a.instance.Destroy()
			a.instance = nil
		}
	} else {
		// Don't destroy shared resources -- we don't own them.
		a.device = nil
		a.instance = nil
	}
	a.queue = nil
	a.adapters = nil
	a.gpuReady = false
	a.externalDevice = false
}

// SetLogger sets the logger for the accelerator and its internal packages.
// Called by gpumul.SetLogger to propagate logging configuration.
func (a *ComputeAccelerator) SetLogger(l *slog.Logger) {
	setLogger(l)
}

// CanCompute reports whether a device is ready to accept dispatches.
func (a *ComputeAccelerator) CanCompute() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gpuReady && a.dispatcher != nil
}

// Adapters returns the adapters discovered during initialization.
func (a *ComputeAccelerator) Adapters() []gpumul.AdapterInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]gpumul.AdapterInfo, len(a.adapters))
	copy(out, a.adapters)
	return out
}

// SetDeviceProvider switches the accelerator to a shared GPU device from
// an external provider (e.g., gogpu). The provider must implement
// HalDevice() any and HalQueue() any returning hal.Device and hal.Queue.
func (a *ComputeAccelerator) SetDeviceProvider(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("gpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("gpu: provider HalQueue is not hal.Queue")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Drop owned resources before switching.
	a.closeLocked()

	a.device = device
	a.queue = queue
	a.externalDevice = true

	dispatcher := NewDispatcher(device, queue)
	if err := dispatcher.Init(); err != nil {
		a.device = nil
		a.queue = nil
		a.externalDevice = false
		return fmt.Errorf("gpu: pipeline init on shared device: %w", err)
	}
	a.dispatcher = dispatcher
	a.gpuReady = true
	slogger().Debug("gpu: switched to shared device")
	return nil
}

// Multiply dispatches the element-wise product kernel for one batch.
func (a *ComputeAccelerator) Multiply(records []gpumul.Record) ([]float32, error) {
	d := a.readyDispatcher()
	if d == nil {
		return nil, gpumul.ErrFallbackToCPU
	}
	return d.Multiply(records)
}

// GroupSum dispatches the workgroup-shared-memory kernel for one batch.
func (a *ComputeAccelerator) GroupSum(records []gpumul.Record, scale float32) ([]float32, error) {
	d := a.readyDispatcher()
	if d == nil {
		return nil, gpumul.ErrFallbackToCPU
	}
	return d.GroupSum(records, scale)
}

// readyDispatcher returns the dispatcher when a device is ready, else nil.
func (a *ComputeAccelerator) readyDispatcher() *Dispatcher {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.gpuReady {
		return nil
	}
	return a.dispatcher
}
