package compute

import (
	"fmt"

	"github.com/Carmen-Shannon/fractal-go/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// BufferRole classifies a device buffer by its place in the pipeline.
type BufferRole int

const (
	// RoleUniform is a read-only parameter buffer pre-populated at creation.
	RoleUniform BufferRole = iota

	// RoleStorage is the kernel's mutable output write target.
	RoleStorage

	// RoleStaging is a host-mappable copy destination, never bound to the kernel.
	RoleStaging
)

// String returns the human-readable name of the buffer role.
func (r BufferRole) String() string {
	switch r {
	case RoleUniform:
		return "uniform"
	case RoleStorage:
		return "storage"
	case RoleStaging:
		return "staging"
	default:
		return "unknown"
	}
}

// bufferSet is the implementation of the BufferSet interface.
type bufferSet struct {
	device *wgpu.Device
	limits DeviceLimits

	// uniforms holds the GPU uniform buffers created for this set, keyed by bind group index.
	uniforms map[int]*wgpu.Buffer
	// output is the Storage-role buffer the kernel writes samples into, or nil if not allocated.
	output *wgpu.Buffer
	// outputSize is the byte size output was allocated with; the staging buffer
	// must match it exactly.
	outputSize uint64
	// staging is the host-mappable copy destination, or nil if not allocated.
	staging *wgpu.Buffer
}

// BufferSet allocates and owns every device buffer for one image computation.
// Buffers are exclusively owned by this set for the computation's lifetime and
// never shared across concurrent computations; Release frees all of them.
type BufferSet interface {
	// AllocateInput creates a Uniform-role device buffer pre-populated with the
	// given bytes and records it under the given bind group index.
	//
	// Parameters:
	//   - group: the bind group index this buffer will be bound at
	//   - label: a debug label for the buffer
	//   - contents: the bytes to populate the buffer with
	//
	// Returns:
	//   - error: a configuration fault if the size exceeds device limits, or a
	//     device fault if creation is rejected
	AllocateInput(group int, label string, contents []byte) error

	// AllocateOutput creates the zero-initialized Storage-role buffer sized to
	// hold one sample per pixel. This is the kernel's write target.
	//
	// Parameters:
	//   - size: the buffer size in bytes (pixel count × sample size)
	//
	// Returns:
	//   - error: a configuration fault if the size exceeds device limits, or a
	//     device fault if creation is rejected
	AllocateOutput(size uint64) error

	// AllocateStaging creates the host-mappable Staging-role buffer used only as
	// the copy destination for the output buffer. The size must equal the output
	// buffer's size exactly; a mismatch is a programming error and panics.
	//
	// Parameters:
	//   - size: the buffer size in bytes, must equal the output buffer size
	//
	// Returns:
	//   - error: a device fault if creation is rejected
	AllocateStaging(size uint64) error

	// Uniform retrieves the uniform buffer recorded under the given bind group index.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer, or nil if not allocated
	Uniform(group int) *wgpu.Buffer

	// Output returns the Storage-role output buffer, or nil if not allocated.
	Output() *wgpu.Buffer

	// Staging returns the Staging-role buffer, or nil if not allocated.
	Staging() *wgpu.Buffer

	// Release frees every buffer owned by this set. Safe to call more than once.
	Release()
}

var _ BufferSet = &bufferSet{}

// NewBufferSet creates an empty BufferSet allocating against the given device
// and its advertised limits.
//
// Parameters:
//   - device: the device to allocate buffers on (must not be nil)
//   - limits: the device-advertised buffer limits
//
// Returns:
//   - BufferSet: the empty buffer set
func NewBufferSet(device *wgpu.Device, limits DeviceLimits) BufferSet {
	if device == nil {
		panic("compute: NewBufferSet requires a non-nil device")
	}
	return &bufferSet{
		device:   device,
		limits:   limits,
		uniforms: make(map[int]*wgpu.Buffer),
	}
}

func (b *bufferSet) AllocateInput(group int, label string, contents []byte) error {
	if err := b.checkSize(RoleUniform, uint64(len(contents))); err != nil {
		return err
	}
	buf, err := b.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: contents,
		Usage:    wgpu.BufferUsageUniform,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to create %s buffer %q: %v", common.ErrDeviceFault, RoleUniform, label, err)
	}
	b.uniforms[group] = buf
	return nil
}

func (b *bufferSet) AllocateOutput(size uint64) error {
	if err := b.checkSize(RoleStorage, size); err != nil {
		return err
	}
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            "sample output buffer",
		Size:             size,
		Usage:            wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
		MappedAtCreation: false,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to create %s buffer: %v", common.ErrDeviceFault, RoleStorage, err)
	}
	b.output = buf
	b.outputSize = size
	return nil
}

func (b *bufferSet) AllocateStaging(size uint64) error {
	// The staging buffer exists solely to receive the output buffer's contents,
	// so a size disagreement is a broken caller, not a runtime condition.
	if b.output == nil {
		panic("compute: AllocateStaging called before AllocateOutput")
	}
	if size != b.outputSize {
		panic(fmt.Sprintf("compute: staging size %d does not match output size %d", size, b.outputSize))
	}
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            "sample staging buffer",
		Size:             size,
		Usage:            wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to create %s buffer: %v", common.ErrDeviceFault, RoleStaging, err)
	}
	b.staging = buf
	return nil
}

func (b *bufferSet) Uniform(group int) *wgpu.Buffer {
	return b.uniforms[group]
}

func (b *bufferSet) Output() *wgpu.Buffer {
	return b.output
}

func (b *bufferSet) Staging() *wgpu.Buffer {
	return b.staging
}

func (b *bufferSet) Release() {
	for group, buf := range b.uniforms {
		buf.Release()
		delete(b.uniforms, group)
	}
	if b.output != nil {
		b.output.Release()
		b.output = nil
	}
	if b.staging != nil {
		b.staging.Release()
		b.staging = nil
	}
}

// checkSize rejects allocations exceeding the device's advertised buffer limit
// before asking the device for them.
func (b *bufferSet) checkSize(role BufferRole, size uint64) error {
	if size == 0 {
		return fmt.Errorf("%w: %s buffer size must be positive", common.ErrConfigurationFault, role)
	}
	if b.limits.MaxBufferSize > 0 && size > b.limits.MaxBufferSize {
		return fmt.Errorf("%w: %s buffer of %d bytes exceeds device limit %d",
			common.ErrConfigurationFault, role, size, b.limits.MaxBufferSize)
	}
	return nil
}
