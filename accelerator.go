package gpumul

import (
	"errors"
	"sync"
)

// ErrFallbackToCPU indicates the GPU accelerator cannot run this batch.
// The caller should transparently fall back to the host computation.
var ErrFallbackToCPU = errors.New("gpumul: falling back to CPU compute")

// AdapterKind classifies a discovered compute adapter.
type AdapterKind int

const (
	// AdapterUnknown is an adapter whose device class was not reported.
	AdapterUnknown AdapterKind = iota

	// AdapterDiscreteGPU is a dedicated GPU with its own memory.
	AdapterDiscreteGPU

	// AdapterIntegratedGPU is a GPU sharing memory with the host.
	AdapterIntegratedGPU
)

// String returns the human-readable adapter class.
func (k AdapterKind) String() string {
	switch k {
	case AdapterDiscreteGPU:
		return "discrete"
	case AdapterIntegratedGPU:
		return "integrated"
	default:
		return "other"
	}
}

// AdapterInfo describes one compute adapter discovered during device
// enumeration. Index is the adapter's position in enumeration order and is
// the tie-break key when several adapters of the same kind are present.
type AdapterInfo struct {
	Index int
	Name  string
	Kind  AdapterKind
}

// GPUAccelerator is an optional GPU compute provider.
//
// When registered via RegisterAccelerator, the Runner dispatches batches to
// the accelerator first. If the accelerator returns ErrFallbackToCPU, the
// batch transparently runs on the host instead. Any other error is fatal
// for the batch and is returned to the caller.
//
// Implementations are provided by GPU backend packages (internal/gpu).
// Users opt in to GPU dispatch via blank import:
//
//	import _ "github.com/gogpu/gpumul/gpu" // enables GPU dispatch
type GPUAccelerator interface {
	// Name returns the accelerator name (e.g., "wgpu-compute").
	Name() string

	// Init initializes GPU resources. Called once during registration.
	Init() error

	// Close releases GPU resources.
	Close()

	// CanCompute reports whether a device is ready to accept dispatches.
	// This is a fast check used to skip the GPU entirely when unavailable.
	CanCompute() bool

	// Adapters returns the adapters discovered during initialization,
	// in enumeration order.
	Adapters() []AdapterInfo

	// Multiply runs the element-wise product kernel for one batch and
	// returns one result per record, index-aligned with the input.
	// Returns ErrFallbackToCPU if no device is available.
	Multiply(records []Record) ([]float32, error)

	// GroupSum runs the workgroup-shared-memory demonstration kernel:
	// one scaled sum of products per workgroup of 64 records.
	// Returns ErrFallbackToCPU if no device is available.
	GroupSum(records []Record, scale float32) ([]float32, error)
}

// DeviceProviderAware is an optional interface for accelerators that can
// share a GPU device with an external provider (e.g., a gogpu window).
// When SetDeviceProvider is called, the accelerator reuses the provided
// device instead of creating its own.
type DeviceProviderAware interface {
	SetDeviceProvider(provider any) error
}

var (
	accelMu sync.RWMutex
	accel   GPUAccelerator
)

// RegisterAccelerator registers a GPU accelerator for optional GPU dispatch.
//
// Only one accelerator can be registered. Subsequent calls replace the
// previous one. The accelerator's Init() method is called during
// registration. If Init() fails, the accelerator is not registered and the
// error is returned; batches then run on the host.
//
// Typical usage via blank import in GPU backend packages:
//
//	func init() {
//	    gpumul.RegisterAccelerator(gpu.NewComputeAccelerator())
//	}
func RegisterAccelerator(a GPUAccelerator) error {
	if a == nil {
		return errors.New("gpumul: accelerator must not be nil")
	}
	if err := a.Init(); err != nil {
		return err
	}
	propagateLogger(a, Logger())
	accelMu.Lock()
	old := accel
	accel = a
	accelMu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

// Accelerator returns the currently registered GPU accelerator, or nil if none.
func Accelerator() GPUAccelerator {
	accelMu.RLock()
	a := accel
	accelMu.RUnlock()
	return a
}

// SetAcceleratorDeviceProvider passes a device provider to the registered
// accelerator, enabling GPU device sharing. If no accelerator is registered
// or it doesn't support device sharing, this is a no-op.
//
// The provider should implement HalDevice() any and HalQueue() any methods
// that return wgpu/hal types.
func SetAcceleratorDeviceProvider(provider any) error {
	a := Accelerator()
	if a == nil {
		return nil
	}
	if dpa, ok := a.(DeviceProviderAware); ok {
		return dpa.SetDeviceProvider(provider)
	}
	return nil
}
