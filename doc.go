// Package gpumul demonstrates dispatching a GPU compute kernel from Go.
//
// # Overview
//
// gpumul uploads a batch of two-field records to GPU memory, runs a
// parallel kernel that multiplies the two fields of every record, and
// reads the results back to the host. When no compute device is
// available (headless machines, CI), the same computation runs on the
// CPU; the absence of a device is a recognized alternate path, not an
// error.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/gpumul"
//
//	    _ "github.com/gogpu/gpumul/gpu" // enable GPU dispatch
//	)
//
//	records := []gpumul.Record{{Value: 1, Multiplier: 2}, {Value: 2, Multiplier: 3}}
//	results, err := gpumul.NewRunner().Multiply(records)
//	// results[i] == records[i].Value * records[i].Multiplier
//
// # Architecture
//
// The library is organized into:
//   - Public API: Record, Runner, GPUAccelerator, host reference computation
//   - internal/gpu: wgpu HAL dispatch (device discovery, buffers, pipelines, readback)
//   - internal/hostpar: worker pool for the parallel host fallback
//   - cmd/gpumul: demonstration CLI
//
// # Data Layout
//
// Record is laid out identically on host and device: two float32 fields,
// Value then Multiplier, 8 bytes, little-endian, no padding. A byte-for-byte
// copy between host memory and a storage buffer is valid in both directions.
package gpumul

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)
