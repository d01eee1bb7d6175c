package gpumul

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// DeviceHandle provides GPU device access from a host application.
//
// This interface is the integration point between gpumul and GPU frameworks
// like gogpu. The host application implements DeviceHandle and passes it to
// SetAcceleratorDeviceProvider, allowing gpumul to dispatch on the shared
// GPU device instead of creating a standalone one.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider, providing a
// gpumul-specific name for the interface while maintaining full
// compatibility with the gpucontext ecosystem. Providers that also expose
// HalDevice() any and HalQueue() any are used directly for dispatch.
type DeviceHandle = gpucontext.DeviceProvider

// NullDeviceHandle is a DeviceHandle that provides nil implementations.
// Used where a provider is required but no GPU is available; passing it to
// SetAcceleratorDeviceProvider yields an error from the accelerator rather
// than a crash.
type NullDeviceHandle struct{}

// Device returns nil for the null device.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil for the null device.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null device.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// AdapterInfo returns zero adapter info for the null device.
func (NullDeviceHandle) AdapterInfo() gpucontext.AdapterInfo { return gpucontext.AdapterInfo{} }

// SurfaceFormat returns undefined format for the null device.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// Ensure NullDeviceHandle implements DeviceHandle.
var _ DeviceHandle = NullDeviceHandle{}
