package shader

import (
	_ "embed"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// MandelbrotSource is the embedded WGSL source of the Mandelbrot kernel.
// It carries a @fract:workgroup_size annotation that the pre-processor
// replaces with concrete workgroup geometry before compilation.
//
//go:embed assets/mandelbrot.wgsl
var MandelbrotSource string

// MaxIterations is the kernel's escape-time iteration cap. Samples are always
// in [0, MaxIterations], so each one fits a single luminance byte.
const MaxIterations = 255

// shader is the implementation of the Shader interface.
// It holds all of the persistent kernel data required for pipeline creation and buffer binding.
type shader struct {
	key                        string
	source                     string
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	workGroupSize              [3]uint32
	entryPoint                 string
	module                     *wgpu.ShaderModuleDescriptor
}

// Shader defines the interface for a loaded and parsed WGSL compute kernel. It exposes the
// kernel's unique key, source code, entry point, bind group layout descriptors, and workgroup
// size needed for pipeline creation and buffer wiring.
type Shader interface {
	// Key retrieves the unique identifier for this kernel, used for caching and lookups.
	//
	// Returns:
	//   - string: the kernel's unique key
	Key() string

	// Source retrieves the pre-processed WGSL source code.
	//
	// Returns:
	//   - string: the WGSL source code of the kernel
	Source() string

	// BindGroupLayoutDescriptor retrieves the bind group layout descriptor for a specific group index.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the layout descriptor for the group, or an empty descriptor if not declared
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors retrieves all parsed bind group layout descriptors.
	// These are the CPU-side descriptors extracted from the kernel source which the
	// compute backend uses to create the actual wgpu.BindGroupLayout GPU objects.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable name for a given group and binding index, if it exists.
	// This is used for tracking resource usage and debugging.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name associated with the group and binding, or an empty string if not found
	BindGroupVarName(group, binding int) string

	// EntryPoint returns the entry point name for this kernel.
	//
	// Returns:
	//   - string: the entry point name (e.g. "main")
	EntryPoint() string

	// WorkgroupSize returns the workgroup size dimensions parsed from the
	// pre-processed source. [1, 1, 1] when no @workgroup_size is present.
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	WorkgroupSize() [3]uint32

	// Module returns the wgpu.ShaderModuleDescriptor for this kernel, built during construction.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the shader module descriptor containing the WGSL code and label
	Module() *wgpu.ShaderModuleDescriptor
}

var _ Shader = &shader{}

// NewComputeShader creates a new compute Shader from raw WGSL source. The source is run
// through the pre-processor (resolving @fract: annotations against the given workgroup
// edge length), then parsed for its entry point, workgroup size, and bind group layouts.
//
// Panics on empty or malformed source; kernel source is compiled into the binary and a
// parse failure is a programming error, not a runtime condition.
//
// Parameters:
//   - key: a unique identifier for the kernel, used for caching and labels
//   - source: the raw WGSL source, possibly carrying @fract: annotations
//   - workgroupEdge: the square workgroup edge length injected by the pre-processor
//
// Returns:
//   - Shader: a new Shader instance with the parsed configuration
func NewComputeShader(key, source string, workgroupEdge uint32) Shader {
	if source == "" {
		panic(fmt.Sprintf("shader: %s must have non-empty WGSL source", key))
	}
	s := &shader{
		key:                        key,
		bindGroupLayoutDescriptors: make(map[int]wgpu.BindGroupLayoutDescriptor),
		bindingVarNames:            make(map[int]map[int]string),
		workGroupSize:              [3]uint32{0, 0, 0},
	}
	s.parseSource(source, workgroupEdge)
	return s
}

// NewMandelbrotKernel creates the embedded Mandelbrot kernel configured for the
// given workgroup edge length.
//
// Parameters:
//   - workgroupEdge: the square workgroup edge length injected by the pre-processor
//
// Returns:
//   - Shader: the parsed Mandelbrot kernel
func NewMandelbrotKernel(workgroupEdge uint32) Shader {
	return NewComputeShader("mandelbrot", MandelbrotSource, workgroupEdge)
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workGroupSize
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	if s.bindingVarNames[group] == nil {
		return ""
	}
	return s.bindingVarNames[group][binding]
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

// parseSource pre-processes the WGSL source, builds the shader module descriptor,
// parses the entry point name, workgroup size, and bind group layout descriptors.
func (s *shader) parseSource(source string, workgroupEdge uint32) {
	processed, err := NewPreProcessor(workgroupEdge).Process(source)
	if err != nil {
		panic(fmt.Sprintf("shader: failed to pre-process kernel source %q: %v", s.key, err))
	}
	s.source = processed
	s.module = &wgpu.ShaderModuleDescriptor{
		Label: s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.source,
		},
	}
	s.entryPoint = parseEntryPoint(s.source)
	if s.entryPoint == "" {
		panic(fmt.Sprintf("shader: kernel %q has no @compute entry point", s.key))
	}
	s.workGroupSize = parseWorkgroupSize(s.source)
	s.bindGroupLayoutDescriptors, s.bindingVarNames = parseBindGroupLayouts(s.source, wgpu.ShaderStageCompute)
}
