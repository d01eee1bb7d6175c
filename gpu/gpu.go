// Package gpu registers the GPU accelerator for hardware compute dispatch.
//
// Import this package to enable batch dispatch on a compute device. The
// accelerator uses wgpu/hal compute shaders, one invocation per record.
//
// If GPU initialization fails (no Vulkan available, no adapters, as on
// headless and CI machines), the registration is silently skipped and
// batches run on the host. The absence of a device is a designed
// alternate path, never an error.
//
// Usage:
//
//	import _ "github.com/gogpu/gpumul/gpu" // enable GPU dispatch
package gpu

import (
	"github.com/gogpu/gpumul"
	gpuimpl "github.com/gogpu/gpumul/internal/gpu"
)

func init() {
	accel := gpuimpl.NewComputeAccelerator()
	if err := gpumul.RegisterAccelerator(accel); err != nil {
		gpumul.Logger().Warn("GPU accelerator not available", "err", err)
	}
}

// SetDeviceProvider configures the GPU accelerator to use a shared GPU
// device from an external provider (e.g., gogpu). This avoids creating a
// separate GPU instance and enables efficient device sharing.
//
// The provider should be a gpucontext.DeviceProvider that also implements
// HalDevice() any and HalQueue() any for direct HAL access.
func SetDeviceProvider(provider any) error {
	return gpumul.SetAcceleratorDeviceProvider(provider)
}
