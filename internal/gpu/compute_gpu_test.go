package gpu

import (
	"math/rand"
	"testing"

	"github.com/gogpu/gpumul"
)

// requireAccelerator initializes a real compute device, skipping the test
// in headless environments. Tests using it verify device output against
// the host reference bit for bit.
func requireAccelerator(t *testing.T) *ComputeAccelerator {
	t.Helper()

	a := NewComputeAccelerator()
	if err := a.Init(); err != nil {
		t.Skipf("GPU not available: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func randomRecords(n int, seed int64) []gpumul.Record {
	rng := rand.New(rand.NewSource(seed))
	records := make([]gpumul.Record, n)
	for i := range records {
		records[i] = gpumul.Record{
			Value:      rng.Float32()*200 - 100,
			Multiplier: rng.Float32()*200 - 100,
		}
	}
	return records
}

func TestGPUMultiplyMatchesHost(t *testing.T) {
	a := requireAccelerator(t)

	// Cover a partial workgroup, an exact multiple, and several groups.
	for _, n := range []int{1, 7, WorkgroupSize, WorkgroupSize + 1, 1000} {
		records := randomRecords(n, int64(n))

		got, err := a.Multiply(records)
		if err != nil {
			t.Fatalf("n=%d: Multiply failed: %v", n, err)
		}
		want := gpumul.HostMultiply(records)
		if len(got) != len(want) {
			t.Fatalf("n=%d: result len = %d, want %d", n, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("n=%d: result[%d] = %g, want %g", n, i, got[i], want[i])
			}
		}
	}
}

func TestGPUGroupSumMatchesHost(t *testing.T) {
	a := requireAccelerator(t)

	for _, n := range []int{1, WorkgroupSize, WorkgroupSize + 5, 3 * WorkgroupSize} {
		records := randomRecords(n, int64(n))

		got, err := a.GroupSum(records, 0.5)
		if err != nil {
			t.Fatalf("n=%d: GroupSum failed: %v", n, err)
		}
		want := gpumul.HostGroupSum(records, 0.5)
		if len(got) != len(want) {
			t.Fatalf("n=%d: group count = %d, want %d", n, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("n=%d: group[%d] = %g, want %g", n, i, got[i], want[i])
			}
		}
	}
}

func TestGPUMultiplyDeterministic(t *testing.T) {
	a := requireAccelerator(t)

	records := randomRecords(500, 99)
	first, err := a.Multiply(records)
	if err != nil {
		t.Fatalf("first Multiply failed: %v", err)
	}
	second, err := a.Multiply(records)
	if err != nil {
		t.Fatalf("second Multiply failed: %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("result[%d] differs between dispatches: %g vs %g", i, first[i], second[i])
		}
	}
}

func TestGPUAdapters(t *testing.T) {
	a := requireAccelerator(t)

	adapters := a.Adapters()
	if len(adapters) == 0 {
		t.Fatal("no adapters reported after successful init")
	}
	for i, info := range adapters {
		if info.Index != i {
			t.Errorf("adapter %d reports index %d", i, info.Index)
		}
		if info.Name == "" {
			t.Errorf("adapter %d has empty name", i)
		}
	}
}

func TestDispatcherNotInitialized(t *testing.T) {
	d := NewDispatcher(nil, nil)

	records := []gpumul.Record{{Value: 1, Multiplier: 2}}
	if _, err := d.Multiply(records); err != ErrNotInitialized {
		t.Errorf("Multiply on uninitialized dispatcher = %v, want %v", err, ErrNotInitialized)
	}
	if _, err := d.GroupSum(records, 1); err != ErrNotInitialized {
		t.Errorf("GroupSum on uninitialized dispatcher = %v, want %v", err, ErrNotInitialized)
	}
}

func TestAcceleratorFallbackWhenNotReady(t *testing.T) {
	a := NewComputeAccelerator()

	records := []gpumul.Record{{Value: 1, Multiplier: 2}}
	if _, err := a.Multiply(records); err != gpumul.ErrFallbackToCPU {
		t.Errorf("Multiply without device = %v, want %v", err, gpumul.ErrFallbackToCPU)
	}
	if _, err := a.GroupSum(records, 1); err != gpumul.ErrFallbackToCPU {
		t.Errorf("GroupSum without device = %v, want %v", err, gpumul.ErrFallbackToCPU)
	}
	if a.CanCompute() {
		t.Error("CanCompute reports true without a device")
	}
}
