package gpumul

import (
	"runtime"

	"github.com/gogpu/gpumul/internal/hostpar"
)

// GroupSize is the number of records per workgroup in the GPU kernels.
// The host reference computations use the same grouping so both paths
// produce identical output.
const GroupSize = 64

// hostParallelThreshold is the batch size above which HostMultiply spreads
// work across a worker pool. Below it, goroutine overhead exceeds the win.
const hostParallelThreshold = 4096

// HostMultiply computes every record's product on the CPU. This is the
// fallback path when no compute device is available and the reference for
// verifying GPU results: float32 multiplication is deterministic, so the
// two paths agree bit for bit.
//
// The result is index-aligned with records and always complete; empty
// input yields an empty slice.
func HostMultiply(records []Record) []float32 {
	out := make([]float32, len(records))
	if len(records) < hostParallelThreshold {
		for i, r := range records {
			out[i] = r.Product()
		}
		return out
	}

	// Large batches mirror the device's per-element parallelism.
	pool := hostpar.New(runtime.GOMAXPROCS(0))
	defer pool.Close()

	chunk := (len(records) + pool.Workers() - 1) / pool.Workers()
	tasks := make([]func(), 0, pool.Workers())
	for start := 0; start < len(records); start += chunk {
		end := min(start+chunk, len(records))
		tasks = append(tasks, func() {
			for i := start; i < end; i++ {
				out[i] = records[i].Product()
			}
		})
	}
	pool.RunAll(tasks)
	return out
}

// HostGroupSum computes the workgroup-shared-memory demonstration kernel
// on the CPU: one sum of products per group of GroupSize records, scaled
// by scale. The final group may be partial. Summation order matches the
// shader (ascending index within the group).
func HostGroupSum(records []Record, scale float32) []float32 {
	groups := (len(records) + GroupSize - 1) / GroupSize
	out := make([]float32, groups)
	for g := range groups {
		end := min((g+1)*GroupSize, len(records))
		var sum float32
		for i := g * GroupSize; i < end; i++ {
			sum += records[i].Product()
		}
		out[g] = sum * scale
	}
	return out
}
