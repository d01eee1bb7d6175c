package gpu

import (
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// compileWGSL compiles WGSL source to a SPIR-V word slice via naga.
// Compiling on the host keeps shader errors synchronous and descriptive
// instead of surfacing as driver-side pipeline failures.
func compileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}

	// SPIR-V is little-endian 32-bit words.
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return code, nil
}

// createShaderModule compiles WGSL and wraps it in a HAL shader module.
func createShaderModule(device hal.Device, label, source string) (hal.ShaderModule, error) {
	code, err := compileWGSL(source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	return device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: label,
		Source: hal.ShaderSource{
			SPIRV: code,
		},
	})
}
