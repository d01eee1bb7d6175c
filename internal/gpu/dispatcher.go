// Package gpu provides the wgpu HAL dispatch path for gpumul: device
// discovery, shader compilation, buffer management, and single-batch
// compute dispatch with staging-buffer readback.
package gpu

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gogpu/gpumul"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Shader sources are embedded from the shaders directory.

//go:embed shaders/multiply.wgsl
var shaderMultiply string

//go:embed shaders/group_sum.wgsl
var shaderGroupSum string

const (
	// WorkgroupSize is the workgroup size used by both kernels.
	// This matches the @workgroup_size attribute in every WGSL shader
	// and gpumul.GroupSize on the host side.
	WorkgroupSize = 64

	// fenceTimeout is the maximum time to wait for device work to complete.
	fenceTimeout = 5 * time.Second
)

// Kernel identifies one of the compute kernels.
type Kernel int

const (
	// KernelMultiply is the element-wise product kernel: one invocation
	// per record, one result per record.
	KernelMultiply Kernel = iota

	// KernelGroupSum is the workgroup-shared-memory demonstration kernel:
	// one scaled sum of products per workgroup.
	KernelGroupSum

	// kernelCount is the total number of kernels.
	kernelCount
)

// String returns the human-readable kernel name.
func (k Kernel) String() string {
	switch k {
	case KernelMultiply:
		return "multiply"
	case KernelGroupSum:
		return "group_sum"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// WorkgroupCount returns the number of workgroups needed to cover n
// elements at WorkgroupSize invocations per group (ceiling division).
func WorkgroupCount(n int) uint32 {
	if n <= 0 {
		return 0
	}
	return uint32((n + WorkgroupSize - 1) / WorkgroupSize)
}

// groupSumParams is the uniform block for KernelGroupSum. The layout must
// match the Params struct in group_sum.wgsl: a u32 count followed by an
// f32 scale, 8 bytes, little-endian.
type groupSumParams struct {
	Count uint32
	Scale float32
}

// toBytes serializes the params in the shader's uniform layout.
func (p groupSumParams) toBytes() []byte {
	buf := make([]byte, 8)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], p.Count)
	le.PutUint32(buf[4:8], math.Float32bits(p.Scale))
	return buf
}

// Dispatcher owns the compiled compute pipelines and performs single-batch
// dispatches on a HAL device. Buffers are created per batch, exclusively
// owned by the dispatch, and destroyed before return.
//
// The dispatch sequence for one batch is: upload input, bind buffers,
// record one compute pass, copy the output buffer to a MapRead staging
// buffer, submit once, wait on a fence, read the staging buffer back.
type Dispatcher struct {
	mu sync.RWMutex

	// device is the HAL device providing GPU resource creation.
	device hal.Device

	// queue is the HAL queue for command submission and buffer writes.
	queue hal.Queue

	// Compiled pipeline state, one entry per kernel.
	modules         [kernelCount]hal.ShaderModule
	bgLayouts       [kernelCount]hal.BindGroupLayout
	pipelineLayouts [kernelCount]hal.PipelineLayout
	pipelines       [kernelCount]hal.ComputePipeline

	// initialized indicates whether shaders have been compiled.
	initialized bool
}

// NewDispatcher creates a dispatcher attached to the given HAL device and
// queue. Init must be called before any dispatch.
func NewDispatcher(device hal.Device, queue hal.Queue) *Dispatcher {
	return &Dispatcher{device: device, queue: queue}
}

// kernelSource returns the embedded WGSL source for a kernel.
func kernelSource(k Kernel) string {
	if k == KernelGroupSum {
		return shaderGroupSum
	}
	return shaderMultiply
}

// kernelBindGroupLayoutEntries returns the bind group layout entries for a
// kernel. These match the @group(0) @binding(N) annotations in the
// corresponding WGSL shader exactly.
func kernelBindGroupLayoutEntries(k Kernel) []gputypes.BindGroupLayoutEntry {
	storageRO := gputypes.BindGroupLayoutEntry{
		Binding:    0,
		Visibility: gputypes.ShaderStageCompute,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
	}
	storageRW := gputypes.BindGroupLayoutEntry{
		Binding:    1,
		Visibility: gputypes.ShaderStageCompute,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
	}

	entries := []gputypes.BindGroupLayoutEntry{storageRO, storageRW}
	if k == KernelGroupSum {
		// @binding(2) uniform params
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    2,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		})
	}
	return entries
}

// Init compiles both WGSL kernels and creates their compute pipelines.
// It is safe to call Init multiple times; subsequent calls are no-ops.
//
// Returns an error if any shader fails to compile or pipeline creation
// fails; partial state is destroyed before returning.
func (d *Dispatcher) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		return nil
	}

	for k := Kernel(0); k < kernelCount; k++ {
		name := "gpumul_" + k.String()

		module, err := createShaderModule(d.device, name, kernelSource(k))
		if err != nil {
			d.destroyPartialInit(k)
			return fmt.Errorf("gpu: create shader module for %s: %w", k, err)
		}
		d.modules[k] = module

		entries := kernelBindGroupLayoutEntries(k)
		bgLayout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   name + "_bgl",
			Entries: entries,
		})
		if err != nil {
			d.destroyPartialInit(k + 1)
			return fmt.Errorf("gpu: create bind group layout for %s: %w", k, err)
		}
		d.bgLayouts[k] = bgLayout

		pipelineLayout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
			Label:            name + "_pl",
			BindGroupLayouts: []hal.BindGroupLayout{bgLayout},
		})
		if err != nil {
			d.destroyPartialInit(k + 1)
			return fmt.Errorf("gpu: create pipeline layout for %s: %w", k, err)
		}
		d.pipelineLayouts[k] = pipelineLayout

		pipeline, err := d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
			Label:  name,
			Layout: pipelineLayout,
			Compute: hal.ComputeState{
				Module:     module,
				EntryPoint: "main",
			},
		})
		if err != nil {
			d.destroyPartialInit(k + 1)
			return fmt.Errorf("gpu: create compute pipeline for %s: %w", k, err)
		}
		d.pipelines[k] = pipeline

		slogger().Debug("gpu: pipeline created",
			"kernel", k.String(),
			"bindings", len(entries))
	}

	d.initialized = true
	slogger().Info("gpu: compute pipelines initialized", "kernels", int(kernelCount))
	return nil
}

// destroyPartialInit cleans up resources for kernels [0, upTo) during a
// failed Init, so partial initialization leaks nothing.
func (d *Dispatcher) destroyPartialInit(upTo Kernel) {
	for k := Kernel(0); k < upTo; k++ {
		if d.pipelines[k] != nil {
			d.device.DestroyComputePipeline(d.pipelines[k])
			d.pipelines[k] = nil
		}
		if d.pipelineLayouts[k] != nil {
			d.device.DestroyPipelineLayout(d.pipelineLayouts[k])
			d.pipelineLayouts[k] = nil
		}
		if d.bgLayouts[k] != nil {
			d.device.DestroyBindGroupLayout(d.bgLayouts[k])
			d.bgLayouts[k] = nil
		}
		if d.modules[k] != nil {
			d.device.DestroyShaderModule(d.modules[k])
			d.modules[k] = nil
		}
	}
}

// Close releases all GPU resources held by the dispatcher. After Close,
// the dispatcher must be re-initialized with Init before use.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.destroyPartialInit(kernelCount)
	d.initialized = false
}

// batchBuffers holds the per-batch GPU buffers: input records, kernel
// output, and the MapRead staging buffer for readback.
type batchBuffers struct {
	input   hal.Buffer
	output  hal.Buffer
	staging hal.Buffer
	uniform hal.Buffer // nil for kernels without a uniform block
}

// destroy releases every buffer in the batch.
func (b *batchBuffers) destroy(device hal.Device) {
	for _, buf := range []hal.Buffer{b.input, b.output, b.staging, b.uniform} {
		if buf != nil {
			device.DestroyBuffer(buf)
		}
	}
	*b = batchBuffers{}
}

// createBatchBuffers allocates the buffer set for one batch. inputBytes is
// uploaded to the input buffer; outputSize is the byte size of both the
// output and staging buffers.
func (d *Dispatcher) createBatchBuffers(k Kernel, inputBytes []byte, outputSize uint64) (*batchBuffers, error) {
	bufs := &batchBuffers{}

	var err error
	bufs.input, err = d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "gpumul_input",
		Size:  uint64(len(inputBytes)),
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create input buffer: %w", err)
	}

	bufs.output, err = d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "gpumul_output",
		Size:  outputSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		bufs.destroy(d.device)
		return nil, fmt.Errorf("create output buffer: %w", err)
	}

	bufs.staging, err = d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "gpumul_staging",
		Size:  outputSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		bufs.destroy(d.device)
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}

	if k == KernelGroupSum {
		bufs.uniform, err = d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "gpumul_params",
			Size:  8,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			bufs.destroy(d.device)
			return nil, fmt.Errorf("create uniform buffer: %w", err)
		}
	}

	d.queue.WriteBuffer(bufs.input, 0, inputBytes)
	return bufs, nil
}

// bindGroupEntries maps the batch buffers to the kernel's bindings.
func bindGroupEntries(k Kernel, bufs *batchBuffers) []gputypes.BindGroupEntry {
	entry := func(binding uint32, buf hal.Buffer) gputypes.BindGroupEntry {
		return gputypes.BindGroupEntry{
			Binding: binding,
			Resource: gputypes.BufferBinding{
				Buffer: buf.NativeHandle(),
				Offset: 0,
				Size:   0, // 0 = entire buffer
			},
		}
	}

	entries := []gputypes.BindGroupEntry{
		entry(0, bufs.input),
		entry(1, bufs.output),
	}
	if k == KernelGroupSum {
		entries = append(entries, entry(2, bufs.uniform))
	}
	return entries
}

// dispatch records one compute pass for the kernel, copies the output to
// the staging buffer, submits once, waits on a fence, and returns the
// readback bytes.
func (d *Dispatcher) dispatch(k Kernel, bufs *batchBuffers, workgroups uint32, outputSize uint64) ([]byte, error) {
	bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "gpumul_" + k.String() + "_bg",
		Layout:  d.bgLayouts[k],
		Entries: bindGroupEntries(k, bufs),
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group: %w", err)
	}
	defer d.device.DestroyBindGroup(bg)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "gpumul_dispatch",
	})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("gpumul_dispatch"); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{
		Label: "gpumul_" + k.String(),
	})
	pass.SetPipeline(d.pipelines[k])
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(workgroups, 1, 1)
	pass.End()

	encoder.CopyBufferToBuffer(bufs.output, bufs.staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: outputSize},
	})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}

	ok, err := d.device.Wait(fence, 1, fenceTimeout)
	if err != nil {
		return nil, fmt.Errorf("wait for device: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%v)", ErrDispatchTimeout, fenceTimeout)
	}

	readback := make([]byte, outputSize)
	if err := d.queue.ReadBuffer(bufs.staging, 0, readback); err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}
	return readback, nil
}

// Multiply runs the element-wise product kernel for one batch and returns
// one result per record. The caller guarantees records is non-empty.
func (d *Dispatcher) Multiply(records []gpumul.Record) ([]float32, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.initialized {
		return nil, ErrNotInitialized
	}

	n := len(records)
	outputSize := uint64(n) * gpumul.ResultSize

	bufs, err := d.createBatchBuffers(KernelMultiply, gpumul.EncodeRecords(records), outputSize)
	if err != nil {
		return nil, fmt.Errorf("gpu: %s: %w", KernelMultiply, err)
	}
	defer bufs.destroy(d.device)

	workgroups := WorkgroupCount(n)
	slogger().Debug("gpu: dispatching batch",
		"kernel", KernelMultiply.String(),
		"records", n,
		"workgroups", workgroups,
		"output_bytes", outputSize)

	readback, err := d.dispatch(KernelMultiply, bufs, workgroups, outputSize)
	if err != nil {
		return nil, fmt.Errorf("gpu: %s: %w", KernelMultiply, err)
	}
	if len(readback) < n*gpumul.ResultSize {
		return nil, fmt.Errorf("gpu: %s: %w: got %d bytes, want %d",
			KernelMultiply, ErrReadbackSizeMismatch, len(readback), n*gpumul.ResultSize)
	}
	return gpumul.DecodeResults(readback), nil
}

// GroupSum runs the workgroup-shared-memory kernel for one batch and
// returns one scaled sum per workgroup. The caller guarantees records is
// non-empty.
func (d *Dispatcher) GroupSum(records []gpumul.Record, scale float32) ([]float32, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.initialized {
		return nil, ErrNotInitialized
	}

	n := len(records)
	workgroups := WorkgroupCount(n)
	outputSize := uint64(workgroups) * gpumul.ResultSize

	bufs, err := d.createBatchBuffers(KernelGroupSum, gpumul.EncodeRecords(records), outputSize)
	if err != nil {
		return nil, fmt.Errorf("gpu: %s: %w", KernelGroupSum, err)
	}
	defer bufs.destroy(d.device)

	params := groupSumParams{Count: uint32(n), Scale: scale}
	d.queue.WriteBuffer(bufs.uniform, 0, params.toBytes())

	slogger().Debug("gpu: dispatching batch",
		"kernel", KernelGroupSum.String(),
		"records", n,
		"workgroups", workgroups,
		"scale", scale)

	readback, err := d.dispatch(KernelGroupSum, bufs, workgroups, outputSize)
	if err != nil {
		return nil, fmt.Errorf("gpu: %s: %w", KernelGroupSum, err)
	}
	return gpumul.DecodeResults(readback), nil
}
