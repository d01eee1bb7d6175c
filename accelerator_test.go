package gpumul

import (
	"errors"
	"log/slog"
	"testing"
)

// mockAccelerator implements GPUAccelerator for testing.
type mockAccelerator struct {
	name        string
	initErr     error
	canCompute  bool
	adapters    []AdapterInfo
	multiplyErr error
	groupSumErr error

	initCalled     bool
	closeCalled    bool
	multiplyCalls  int
	groupSumCalls  int
	providerCalled bool
	logger         *slog.Logger
}

func (m *mockAccelerator) SetLogger(l *slog.Logger) { m.logger = l }

func (m *mockAccelerator) Name() string {
	if m.name != "" {
		return m.name
	}
	return "mock"
}

func (m *mockAccelerator) Init() error {
	m.initCalled = true
	return m.initErr
}

func (m *mockAccelerator) Close() { m.closeCalled = true }

func (m *mockAccelerator) CanCompute() bool { return m.canCompute }

func (m *mockAccelerator) Adapters() []AdapterInfo { return m.adapters }

func (m *mockAccelerator) Multiply(records []Record) ([]float32, error) {
	m.multiplyCalls++
	if m.multiplyErr != nil {
		return nil, m.multiplyErr
	}
	return HostMultiply(records), nil
}

func (m *mockAccelerator) GroupSum(records []Record, scale float32) ([]float32, error) {
	m.groupSumCalls++
	if m.groupSumErr != nil {
		return nil, m.groupSumErr
	}
	return HostGroupSum(records, scale), nil
}

// mockProviderAware additionally accepts a device provider.
type mockProviderAware struct {
	mockAccelerator
	providerErr error
}

func (m *mockProviderAware) SetDeviceProvider(provider any) error {
	m.providerCalled = true
	return m.providerErr
}

// resetAccelerator clears the global registry between tests.
func resetAccelerator() {
	accelMu.Lock()
	accel = nil
	accelMu.Unlock()
}

func TestRegisterAcceleratorNil(t *testing.T) {
	defer resetAccelerator()

	if err := RegisterAccelerator(nil); err == nil {
		t.Fatal("RegisterAccelerator(nil) returned nil, want error")
	}
	if Accelerator() != nil {
		t.Error("accelerator registered after nil registration")
	}
}

func TestRegisterAcceleratorInitError(t *testing.T) {
	defer resetAccelerator()

	initErr := errors.New("no device")
	m := &mockAccelerator{initErr: initErr}

	err := RegisterAccelerator(m)
	if !errors.Is(err, initErr) {
		t.Fatalf("RegisterAccelerator error = %v, want %v", err, initErr)
	}
	if !m.initCalled {
		t.Error("Init was not called")
	}
	if Accelerator() != nil {
		t.Error("accelerator registered despite Init failure")
	}
}

func TestRegisterAcceleratorSuccess(t *testing.T) {
	defer resetAccelerator()

	m := &mockAccelerator{canCompute: true}
	if err := RegisterAccelerator(m); err != nil {
		t.Fatalf("RegisterAccelerator failed: %v", err)
	}
	if !m.initCalled {
		t.Error("Init was not called")
	}
	if Accelerator() != GPUAccelerator(m) {
		t.Error("registered accelerator not returned by Accelerator()")
	}
}

func TestRegisterAcceleratorReplacesOld(t *testing.T) {
	defer resetAccelerator()

	first := &mockAccelerator{name: "first"}
	second := &mockAccelerator{name: "second"}

	if err := RegisterAccelerator(first); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := RegisterAccelerator(second); err != nil {
		t.Fatalf("second registration failed: %v", err)
	}

	if !first.closeCalled {
		t.Error("replaced accelerator was not closed")
	}
	if second.closeCalled {
		t.Error("new accelerator was closed")
	}
	if got := Accelerator().Name(); got != "second" {
		t.Errorf("active accelerator = %q, want %q", got, "second")
	}
}

func TestSetAcceleratorDeviceProviderNoAccelerator(t *testing.T) {
	defer resetAccelerator()

	if err := SetAcceleratorDeviceProvider(struct{}{}); err != nil {
		t.Errorf("SetAcceleratorDeviceProvider without accelerator = %v, want nil", err)
	}
}

func TestSetAcceleratorDeviceProvider(t *testing.T) {
	defer resetAccelerator()

	m := &mockProviderAware{}
	if err := RegisterAccelerator(m); err != nil {
		t.Fatalf("RegisterAccelerator failed: %v", err)
	}
	if err := SetAcceleratorDeviceProvider(struct{}{}); err != nil {
		t.Fatalf("SetAcceleratorDeviceProvider failed: %v", err)
	}
	if !m.providerCalled {
		t.Error("SetDeviceProvider was not forwarded to the accelerator")
	}
}

func TestSetAcceleratorDeviceProviderUnaware(t *testing.T) {
	defer resetAccelerator()

	// An accelerator without device sharing support is a silent no-op.
	m := &mockAccelerator{}
	if err := RegisterAccelerator(m); err != nil {
		t.Fatalf("RegisterAccelerator failed: %v", err)
	}
	if err := SetAcceleratorDeviceProvider(struct{}{}); err != nil {
		t.Errorf("SetAcceleratorDeviceProvider = %v, want nil", err)
	}
}

func TestAdapterKindString(t *testing.T) {
	tests := []struct {
		kind AdapterKind
		want string
	}{
		{AdapterDiscreteGPU, "discrete"},
		{AdapterIntegratedGPU, "integrated"},
		{AdapterUnknown, "other"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("AdapterKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
