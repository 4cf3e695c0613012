package compute

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/fractal-go/common"
	"github.com/Carmen-Shannon/fractal-go/fractal/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuComputeBackend is the WebGPU implementation of the Backend interface.
type wgpuComputeBackend struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	limits   DeviceLimits

	kernel   shader.Shader
	module   *wgpu.ShaderModule
	pipeline *wgpu.ComputePipeline

	// bindGroupLayouts and bindGroups are keyed by bind group index and always
	// cover a contiguous 0..n range once the kernel is registered.
	bindGroupLayouts map[int]*wgpu.BindGroupLayout
	bindGroups       map[int]*wgpu.BindGroup

	buffers BufferSet

	// sampleBufferSize is the byte size of the output and staging buffers,
	// recorded at InitBuffers time for the readback.
	sampleBufferSize uint64
}

var _ Backend = &wgpuComputeBackend{}

// NewWGPUBackend acquires a compute device through WebGPU: instance, adapter
// (low-power preference; this is a batch job, not a frame loop), device, and
// queue. The device is requested with the WebGPU spec default limits, which
// are recorded as the limits the rest of the pipeline plans against.
//
// Any acquisition failure is a capability fault; device availability is
// assumed stable for a single short-lived run, so there is no retry.
//
// Parameters:
//   - forceFallbackAdapter: if true, forces WGPU to use a CPU/software fallback
//     adapter instead of hardware acceleration
//
// Returns:
//   - Backend: the acquired compute backend
//   - error: a capability fault if no suitable device could be acquired
func NewWGPUBackend(forceFallbackAdapter bool) (Backend, error) {
	instance := wgpu.CreateInstance(nil)

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference:      wgpu.PowerPreferenceLowPower,
		ForceFallbackAdapter: forceFallbackAdapter,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("%w: failed to request adapter: %v", common.ErrCapabilityFault, err)
	}

	limits := wgpu.DefaultLimits()
	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Fractal Compute Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("%w: failed to request device: %v", common.ErrCapabilityFault, err)
	}

	return &wgpuComputeBackend{
		mu:       &sync.Mutex{},
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    device.GetQueue(),
		limits: DeviceLimits{
			MaxComputeInvocationsPerWorkgroup: limits.MaxComputeInvocationsPerWorkgroup,
			MaxBufferSize:                     limits.MaxBufferSize,
		},
		bindGroupLayouts: make(map[int]*wgpu.BindGroupLayout),
		bindGroups:       make(map[int]*wgpu.BindGroup),
	}, nil
}

func (b *wgpuComputeBackend) Limits() DeviceLimits {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.limits
}

func (b *wgpuComputeBackend) RegisterKernel(k shader.Shader) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := validateBindingContract(k); err != nil {
		return err
	}

	module, err := b.device.CreateShaderModule(k.Module())
	if err != nil {
		return fmt.Errorf("%w: failed to create shader module %q: %v", common.ErrDeviceFault, k.Key(), err)
	}
	b.module = module

	descriptors := k.BindGroupLayoutDescriptors()
	bindGroupLayouts := make([]*wgpu.BindGroupLayout, len(descriptors))
	for g := range len(descriptors) {
		desc := descriptors[g]
		layout, layoutErr := b.device.CreateBindGroupLayout(&desc)
		if layoutErr != nil {
			return fmt.Errorf("%w: failed to create bind group layout for group %d: %v", common.ErrDeviceFault, g, layoutErr)
		}
		b.bindGroupLayouts[g] = layout
		bindGroupLayouts[g] = layout
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            k.Key(),
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to create pipeline layout: %v", common.ErrDeviceFault, err)
	}

	pipeline, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  k.Key() + " Compute Pipeline",
		Layout: pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: k.EntryPoint(),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: failed to create compute pipeline: %v", common.ErrDeviceFault, err)
	}

	b.kernel = k
	b.pipeline = pipeline
	return nil
}

func (b *wgpuComputeBackend) InitBuffers(uniforms map[int][]byte, sampleBufferSize uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pipeline == nil {
		panic("compute: InitBuffers called before RegisterKernel")
	}

	buffers := NewBufferSet(b.device, b.limits)

	if err := buffers.AllocateOutput(sampleBufferSize); err != nil {
		buffers.Release()
		return err
	}
	if err := buffers.AllocateStaging(sampleBufferSize); err != nil {
		buffers.Release()
		return err
	}
	for _, g := range sortedGroups(uniforms) {
		label := b.kernel.BindGroupVarName(g, 0) + " uniform buffer"
		if err := buffers.AllocateInput(g, label, uniforms[g]); err != nil {
			buffers.Release()
			return err
		}
	}

	// Wire the buffers to the kernel's layouts. The staging buffer is never
	// bound; it only ever receives the device-side copy.
	for g, layout := range b.bindGroupLayouts {
		buf := buffers.Output()
		if g != GroupSamples {
			buf = buffers.Uniform(g)
		}
		if buf == nil {
			buffers.Release()
			return fmt.Errorf("%w: no buffer supplied for bind group %d", common.ErrConfigurationFault, g)
		}
		bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  fmt.Sprintf("%s bind group %d", b.kernel.Key(), g),
			Layout: layout,
			Entries: []wgpu.BindGroupEntry{
				{
					Binding: 0,
					Buffer:  buf,
					Size:    wgpu.WholeSize,
				},
			},
		})
		if err != nil {
			buffers.Release()
			return fmt.Errorf("%w: failed to create bind group %d: %v", common.ErrDeviceFault, g, err)
		}
		b.bindGroups[g] = bindGroup
	}

	b.buffers = buffers
	b.sampleBufferSize = sampleBufferSize
	return nil
}

func (b *wgpuComputeBackend) Submit(geom WorkgroupGeometry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buffers == nil {
		panic("compute: Submit called before InitBuffers")
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create command encoder: %v", common.ErrDeviceFault, err)
	}

	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(b.pipeline)
	for g := range len(b.bindGroups) {
		pass.SetBindGroup(uint32(g), b.bindGroups[g], nil)
	}
	pass.DispatchWorkgroups(geom.GroupsX, geom.GroupsY, 1)
	pass.End()
	pass.Release()

	// The copy is recorded into the same batch as the dispatch, so the
	// device's intra-queue ordering guarantees it observes the kernel's
	// completed writes.
	encoder.CopyBufferToBuffer(b.buffers.Output(), 0, b.buffers.Staging(), 0, b.sampleBufferSize)

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		return fmt.Errorf("%w: failed to finish command encoder: %v", common.ErrDeviceFault, err)
	}

	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	encoder.Release()
	return nil
}

func (b *wgpuComputeBackend) Readback(timeout time.Duration) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buffers == nil || b.buffers.Staging() == nil {
		panic("compute: Readback called before InitBuffers")
	}

	return newReadbackSync(b.device, b.buffers.Staging(), b.sampleBufferSize).read(timeout)
}

func (b *wgpuComputeBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buffers != nil {
		b.buffers.Release()
		b.buffers = nil
	}
	for g, bg := range b.bindGroups {
		bg.Release()
		delete(b.bindGroups, g)
	}
	if b.pipeline != nil {
		b.pipeline.Release()
		b.pipeline = nil
	}
	for g, layout := range b.bindGroupLayouts {
		layout.Release()
		delete(b.bindGroupLayouts, g)
	}
	if b.module != nil {
		b.module.Release()
		b.module = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// validateBindingContract checks the kernel's parsed bind group declarations
// against the wire contract before any GPU object is created: group 0 must be
// a mutable storage buffer, groups 1 and 2 uniform buffers, each at binding 0.
func validateBindingContract(k shader.Shader) error {
	descriptors := k.BindGroupLayoutDescriptors()

	expected := map[int]wgpu.BufferBindingType{
		GroupSamples:   wgpu.BufferBindingTypeStorage,
		GroupImageSize: wgpu.BufferBindingTypeUniform,
		GroupViewport:  wgpu.BufferBindingTypeUniform,
	}
	if len(descriptors) != len(expected) {
		return fmt.Errorf("%w: kernel %q declares %d bind groups, wire contract requires %d",
			common.ErrConfigurationFault, k.Key(), len(descriptors), len(expected))
	}
	for g, bindingType := range expected {
		desc, ok := descriptors[g]
		if !ok || len(desc.Entries) != 1 || desc.Entries[0].Binding != 0 {
			return fmt.Errorf("%w: kernel %q must declare exactly binding 0 in group %d",
				common.ErrConfigurationFault, k.Key(), g)
		}
		if desc.Entries[0].Buffer.Type != bindingType {
			return fmt.Errorf("%w: kernel %q group %d has the wrong buffer binding type",
				common.ErrConfigurationFault, k.Key(), g)
		}
	}
	return nil
}

// sortedGroups returns the uniform map's group indices in ascending order so
// buffer allocation is deterministic.
func sortedGroups(uniforms map[int][]byte) []int {
	groups := make([]int, 0, len(uniforms))
	for g := range uniforms {
		groups = append(groups, g)
	}
	sort.Ints(groups)
	return groups
}
