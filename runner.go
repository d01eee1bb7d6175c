package gpumul

import "errors"

// Source identifies where a batch was computed.
type Source int

const (
	// SourceHost means the batch ran on the CPU fallback path.
	SourceHost Source = iota

	// SourceGPU means the batch ran on a compute device.
	SourceGPU
)

// String returns the human-readable source name.
func (s Source) String() string {
	if s == SourceGPU {
		return "gpu"
	}
	return "host"
}

// Runner executes single-batch compute dispatches.
//
// A Runner issues one batch of work, waits for completion, and returns the
// results: from the caller's perspective the dispatch is synchronous. When
// a GPU accelerator is registered and ready, the batch runs on the device;
// otherwise it runs on the host. The no-device case is a designed alternate
// path and never surfaces as an error. Any failure after a device was
// acquired (buffer creation, shader compile, submit, readback) is returned
// as a descriptive error with no retry.
//
// The zero Runner is not usable; construct with NewRunner or NewRunnerWith.
type Runner struct {
	accel         GPUAccelerator
	useRegistered bool

	// lastSource records where the most recent batch ran.
	lastSource Source
}

// NewRunner returns a Runner that dispatches through the globally
// registered accelerator (see RegisterAccelerator), falling back to the
// host when none is registered.
func NewRunner() *Runner {
	return &Runner{useRegistered: true}
}

// NewRunnerWith returns a Runner bound to a specific accelerator.
// Pass nil to force the host path.
func NewRunnerWith(a GPUAccelerator) *Runner {
	return &Runner{accel: a}
}

// accelerator resolves the accelerator for this Runner.
func (r *Runner) accelerator() GPUAccelerator {
	if r.useRegistered {
		return Accelerator()
	}
	return r.accel
}

// LastSource reports where the most recent batch was computed.
// Meaningful only after a Multiply or GroupSum call.
func (r *Runner) LastSource() Source {
	return r.lastSource
}

// Multiply computes results[i] = records[i].Value * records[i].Multiplier
// for every record, on the GPU when available and on the host otherwise.
// The result has exactly len(records) elements. Empty input produces an
// empty result with no device work issued.
func (r *Runner) Multiply(records []Record) ([]float32, error) {
	return r.dispatch(records, func(a GPUAccelerator) ([]float32, error) {
		return a.Multiply(records)
	}, func() []float32 {
		return HostMultiply(records)
	})
}

// GroupSum computes one scaled sum of products per workgroup of GroupSize
// records, on the GPU when available and on the host otherwise. This is
// the workgroup-shared-memory demonstration kernel; it is not required for
// the element-wise path.
func (r *Runner) GroupSum(records []Record, scale float32) ([]float32, error) {
	return r.dispatch(records, func(a GPUAccelerator) ([]float32, error) {
		return a.GroupSum(records, scale)
	}, func() []float32 {
		return HostGroupSum(records, scale)
	})
}

// dispatch runs one batch through the accelerator when possible, falling
// back to the host computation when no device is available.
func (r *Runner) dispatch(records []Record, gpu func(GPUAccelerator) ([]float32, error), host func() []float32) ([]float32, error) {
	if len(records) == 0 {
		r.lastSource = SourceHost
		return []float32{}, nil
	}

	if a := r.accelerator(); a != nil && a.CanCompute() {
		out, err := gpu(a)
		switch {
		case err == nil:
			r.lastSource = SourceGPU
			return out, nil
		case errors.Is(err, ErrFallbackToCPU):
			Logger().Warn("gpumul: accelerator declined batch, using host path",
				"accelerator", a.Name(), "records", len(records))
		default:
			return nil, err
		}
	}

	r.lastSource = SourceHost
	return host(), nil
}
