package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgslTypeSizeMap maps the WGSL buffer-bindable scalar/vector types used by
// compute kernels to their byte sizes, so MinBindingSize can be set on buffer
// layout entries. Runtime-sized arrays resolve to 0 (no minimum).
var wgslTypeSizeMap = map[string]uint64{
	"f32":       4,
	"i32":       4,
	"u32":       4,
	"vec2f":     8,
	"vec2<f32>": 8,
	"vec2i":     8,
	"vec2<i32>": 8,
	"vec2u":     8,
	"vec2<u32>": 8,
	"vec3f":     12,
	"vec3<f32>": 12,
	"vec4f":     16,
	"vec4<f32>": 16,
	"vec4u":     16,
	"vec4<u32>": 16,
}

var (
	// computeEntryRegex matches @compute functions and captures the entry point name
	computeEntryRegex = regexp.MustCompile(`(?s)@compute\b.*?\bfn\s+(\w+)`)

	// workgroupSizeRegex captures 1-3 integer dimensions from @workgroup_size(x[, y[, z]])
	workgroupSizeRegex = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*(?:,\s*(\d+)\s*)?)?\)`)

	// bindGroupDeclRegex captures group, binding, address space, variable name, and type
	// from declarations like: @group(0) @binding(0) var<storage, read_write> samples: array<u32>;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)

	// lineCommentRegex matches single-line // comments
	lineCommentRegex = regexp.MustCompile(`//[^\n]*`)

	// blockCommentRegex matches /* */ block comments, non-greedy
	blockCommentRegex = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// stripComments removes both single-line (//) and block (/* */) comments from
// WGSL source so commented-out declarations are not parsed as live bindings.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - string: the source with all comments removed
func stripComments(source string) string {
	return lineCommentRegex.ReplaceAllString(blockCommentRegex.ReplaceAllString(source, ""), "")
}

// parseEntryPoint extracts the @compute entry point function name from WGSL source.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - string: the entry point name, or an empty string if no @compute function exists
func parseEntryPoint(source string) string {
	match := computeEntryRegex.FindStringSubmatch(stripComments(source))
	if match == nil {
		return ""
	}
	return match[1]
}

// parseWorkgroupSize extracts the @workgroup_size(x, y, z) dimensions from WGSL source.
// Omitted dimensions default to 1 per the WGSL specification.
// Returns [1, 1, 1] if no @workgroup_size annotation is found.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - [3]uint32: the workgroup size as [x, y, z]
func parseWorkgroupSize(source string) [3]uint32 {
	cleaned := stripComments(source)
	result := [3]uint32{1, 1, 1}

	match := workgroupSizeRegex.FindStringSubmatch(cleaned)
	if match == nil {
		return result
	}

	for i := range 3 {
		if match[i+1] != "" {
			if v, err := strconv.ParseUint(match[i+1], 10, 32); err == nil {
				result[i] = uint32(v)
			}
		}
	}

	return result
}

// parseBindGroupLayouts extracts all @group(N) @binding(M) buffer declarations from WGSL
// source and returns them as wgpu.BindGroupLayoutDescriptor values grouped by group index.
// Each descriptor's entries are sorted by binding index. The provided visibility flag is
// applied to all entries, corresponding to the shader stage that declared them.
//
// Parameters:
//   - source: the raw WGSL source code string
//   - visibility: the shader stage visibility flag to set on each entry
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: layout descriptors keyed by group index
//   - map[int]map[int]string: variable names keyed by group and binding index for resource tracking
func parseBindGroupLayouts(source string, visibility wgpu.ShaderStage) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string) {
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	varNames := make(map[int]map[int]string)
	cleaned := stripComments(source)

	matches := bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1)
	for _, match := range matches {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		addressSpace := strings.TrimSpace(match[3])
		varName := strings.TrimSpace(match[4])
		typeName := strings.TrimSpace(match[5])

		entry := classifyBuffer(uint32(binding), visibility, addressSpace)

		// Set MinBindingSize by resolving the bound type's size. Runtime-sized
		// arrays have no fixed size and keep the zero (no minimum) value.
		if size, ok := wgslTypeSizeMap[typeName]; ok {
			entry.Buffer.MinBindingSize = size
		}

		groups[group] = append(groups[group], entry)

		if varNames[group] == nil {
			varNames[group] = make(map[int]string)
		}
		varNames[group][binding] = varName
	}

	result := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, entries := range groups {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		result[g] = wgpu.BindGroupLayoutDescriptor{
			Entries: entries,
		}
	}

	return result, varNames
}

// classifyBuffer creates a wgpu.BindGroupLayoutEntry for a buffer declaration from its
// address space qualifier. Compute kernels in this module bind buffers exclusively, so
// texture and sampler classification is not handled here.
//
// Parameters:
//   - binding: the binding index from @binding(N)
//   - visibility: the shader stage visibility flag
//   - addressSpace: the address space qualifier (e.g. "uniform", "storage, read_write")
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: a populated buffer layout entry
func classifyBuffer(binding uint32, visibility wgpu.ShaderStage, addressSpace string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
	}

	switch {
	case addressSpace == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case strings.HasPrefix(addressSpace, "storage"):
		if strings.Contains(addressSpace, "read_write") {
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		} else {
			entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		}
	}

	return entry
}
