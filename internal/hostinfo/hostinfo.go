// Package hostinfo reports host CPU capabilities. The CLI includes this in
// the headless-mode notice so the fallback environment is identifiable.
package hostinfo

import (
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// Features describes the SIMD capabilities of the current process.
type Features struct {
	HasAVX2      bool
	HasAVX512    bool
	HasSSE2      bool
	HasNEON      bool
	Architecture string
}

// Detect reports the available CPU features for the current process.
func Detect() Features {
	return Features{
		HasAVX2:      cpu.X86.HasAVX2,
		HasAVX512:    cpu.X86.HasAVX512,
		HasSSE2:      cpu.X86.HasSSE2,
		HasNEON:      cpu.ARM64.HasASIMD,
		Architecture: runtime.GOARCH,
	}
}

// String formats the features as e.g. "amd64 (SSE2, AVX2)".
func (f Features) String() string {
	var flags []string
	if f.HasSSE2 {
		flags = append(flags, "SSE2")
	}
	if f.HasAVX2 {
		flags = append(flags, "AVX2")
	}
	if f.HasAVX512 {
		flags = append(flags, "AVX512")
	}
	if f.HasNEON {
		flags = append(flags, "NEON")
	}
	if len(flags) == 0 {
		return f.Architecture
	}
	return f.Architecture + " (" + strings.Join(flags, ", ") + ")"
}
