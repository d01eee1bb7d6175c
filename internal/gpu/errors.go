package gpu

import "errors"

// Dispatch errors. Device unavailability is reported to callers as
// gpumul.ErrFallbackToCPU, not as one of these: these cover faults after a
// device was acquired, which are fatal for the batch.
var (
	// ErrBackendUnavailable is returned when no wgpu backend is compiled in.
	ErrBackendUnavailable = errors.New("gpu: vulkan backend not available")

	// ErrNoAdapters is returned when device enumeration finds no adapters.
	ErrNoAdapters = errors.New("gpu: no compute adapters found")

	// ErrNotInitialized is returned when a dispatch is attempted before Init.
	ErrNotInitialized = errors.New("gpu: dispatcher not initialized, call Init() first")

	// ErrDispatchTimeout is returned when the fence wait exceeds its deadline.
	ErrDispatchTimeout = errors.New("gpu: timed out waiting for device")

	// ErrReadbackSizeMismatch is returned when the staging buffer holds
	// fewer bytes than the batch requires.
	ErrReadbackSizeMismatch = errors.New("gpu: readback size mismatch")
)
