package gpu

import (
	"fmt"

	"github.com/gogpu/gpumul"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// pickAdapter returns the index of the preferred adapter given the device
// type of each discovered adapter, in enumeration order: the first discrete
// GPU, else the first integrated GPU, else index 0. Ties within a class
// break by lowest index, so selection is deterministic for a fixed
// enumeration order. Returns -1 for empty input.
func pickAdapter(kinds []gputypes.DeviceType) int {
	if len(kinds) == 0 {
		return -1
	}
	for i, k := range kinds {
		if k == gputypes.DeviceTypeDiscreteGPU {
			return i
		}
	}
	for i, k := range kinds {
		if k == gputypes.DeviceTypeIntegratedGPU {
			return i
		}
	}
	return 0
}

// adapterKind maps a HAL device type to the public adapter classification.
func adapterKind(t gputypes.DeviceType) gpumul.AdapterKind {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpumul.AdapterDiscreteGPU
	case gputypes.DeviceTypeIntegratedGPU:
		return gpumul.AdapterIntegratedGPU
	default:
		return gpumul.AdapterUnknown
	}
}

// standaloneDevice holds the resources of a self-created compute device.
type standaloneDevice struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	adapters []gpumul.AdapterInfo
	selected int
}

// initStandalone creates a standalone Vulkan device for compute-only use.
// This is the default path when no external device is provided via
// SetDeviceProvider. Returns ErrBackendUnavailable or ErrNoAdapters when
// the environment is headless; the caller treats those as the fallback
// signal, not a fault.
func initStandalone() (*standaloneDevice, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, ErrBackendUnavailable
	}

	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}

	exposed := instance.EnumerateAdapters(nil)
	if len(exposed) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapters
	}

	infos := make([]gpumul.AdapterInfo, len(exposed))
	kinds := make([]gputypes.DeviceType, len(exposed))
	for i := range exposed {
		infos[i] = gpumul.AdapterInfo{
			Index: i,
			Name:  exposed[i].Info.Name,
			Kind:  adapterKind(exposed[i].Info.DeviceType),
		}
		kinds[i] = exposed[i].Info.DeviceType
	}

	selected := pickAdapter(kinds)
	openDev, err := exposed[selected].Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device %q: %w", infos[selected].Name, err)
	}

	slogger().Info("gpu: adapter selected",
		"adapter", infos[selected].Name,
		"kind", infos[selected].Kind.String(),
		"index", selected,
		"discovered", len(infos))

	return &standaloneDevice{
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
		adapters: infos,
		selected: selected,
	}, nil
}
