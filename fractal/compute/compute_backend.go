// Package compute implements the GPU dispatch pipeline for single-image
// fractal computation: buffer allocation by role, workgroup planning, command
// submission, and the asynchronous staging-buffer readback.
package compute

import (
	"time"

	"github.com/Carmen-Shannon/fractal-go/fractal/shader"
)

// DeviceLimits carries the device-advertised capability limits the pipeline
// plans against. Read once at device acquisition and threaded through as an
// ordinary value; nothing in the pipeline re-queries the device.
type DeviceLimits struct {
	// MaxComputeInvocationsPerWorkgroup bounds the product of the workgroup
	// dimensions the dispatch planner may choose.
	MaxComputeInvocationsPerWorkgroup uint32

	// MaxBufferSize bounds any single buffer allocation in bytes.
	MaxBufferSize uint64
}

// Bind group indices of the kernel wire contract. The numbering is part of
// the contract with the WGSL kernel and must match its @group declarations.
const (
	// GroupSamples is the mutable output storage buffer, one sample per pixel, row-major.
	GroupSamples = 0

	// GroupImageSize is the image dimensions uniform, two unsigned 32-bit integers.
	GroupImageSize = 1

	// GroupViewport is the viewport bounds uniform, two 32-bit floats.
	GroupViewport = 2
)

// SampleByteSize is the wire size of one kernel output sample: a single u32
// per pixel whose low byte carries the luminance value.
const SampleByteSize = 4

// Backend defines the interface for a compute device executing one fractal
// computation. Implementations own every device resource they create and
// release all of them in Release. A Backend serves exactly one computation;
// it is not reused across images.
//
// Call order is RegisterKernel, InitBuffers, Submit, Readback, Release.
type Backend interface {
	// Limits returns the device capability limits read at acquisition time.
	//
	// Returns:
	//   - DeviceLimits: the advertised device limits
	Limits() DeviceLimits

	// RegisterKernel creates the shader module, explicit bind group layouts, and
	// compute pipeline for the given kernel. The kernel's parsed bind group
	// declarations are validated against the wire contract (GroupSamples,
	// GroupImageSize, GroupViewport) before any GPU object is created.
	//
	// Parameters:
	//   - k: the parsed compute kernel to compile
	//
	// Returns:
	//   - error: a configuration fault if the kernel violates the contract, or
	//     a device fault if module or pipeline creation fails
	RegisterKernel(k shader.Shader) error

	// InitBuffers allocates the full buffer set for one computation: one uniform
	// buffer per entry of uniforms (keyed by bind group index, pre-populated with
	// the given bytes), a zero-initialized storage buffer of sampleBufferSize
	// bytes as the kernel's write target, a staging buffer of identical size, and
	// the bind groups wiring them to the registered kernel's layouts.
	//
	// Parameters:
	//   - uniforms: marshaled uniform contents keyed by bind group index
	//   - sampleBufferSize: byte size of the output and staging buffers
	//
	// Returns:
	//   - error: a fault if an allocation exceeds device limits or is rejected
	InitBuffers(uniforms map[int][]byte, sampleBufferSize uint64) error

	// Submit records the complete command sequence — bind, dispatch, copy output
	// to staging — into a single command batch and submits it to the device queue
	// as one atomic unit of work. The copy is ordered after the dispatch by the
	// device's intra-queue ordering.
	//
	// Parameters:
	//   - geom: the workgroup geometry produced by the dispatch planner
	//
	// Returns:
	//   - error: a device fault if command recording or submission fails
	Submit(geom WorkgroupGeometry) error

	// Readback maps the staging buffer for reading, drives device progress until
	// the completion notification arrives (or the timeout expires), copies the
	// mapped bytes into an owned slice, and unmaps the staging buffer. The
	// returned slice is valid after the mapping is released.
	//
	// Parameters:
	//   - timeout: maximum time to wait for the completion notification; <= 0 waits forever
	//
	// Returns:
	//   - []byte: the raw sample bytes, SampleByteSize per pixel, row-major
	//   - error: a device, lost-result, or timeout fault
	Readback(timeout time.Duration) ([]byte, error)

	// Release frees every device resource owned by this backend: buffers, bind
	// groups, pipeline, device, adapter, and instance. Safe to call after a
	// partial setup; only resources actually created are released.
	Release()
}
