package shader

import (
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestNewMandelbrotKernel(t *testing.T) {
	k := NewMandelbrotKernel(8)

	if k.Key() != "mandelbrot" {
		t.Errorf("Key = %q, want %q", k.Key(), "mandelbrot")
	}
	if k.EntryPoint() != "main" {
		t.Errorf("EntryPoint = %q, want %q", k.EntryPoint(), "main")
	}
	if got, want := k.WorkgroupSize(), [3]uint32{8, 8, 1}; got != want {
		t.Errorf("WorkgroupSize = %v, want %v", got, want)
	}
	if strings.Contains(k.Source(), "@fract:") {
		t.Error("pre-processor annotation survived into the processed source")
	}
	if !strings.Contains(k.Source(), "@workgroup_size(8, 8)") {
		t.Error("processed source is missing the injected workgroup size")
	}
	if k.Module() == nil || k.Module().WGSLDescriptor == nil {
		t.Fatal("Module descriptor was not built")
	}
	if k.Module().WGSLDescriptor.Code != k.Source() {
		t.Error("Module code does not match the processed source")
	}
}

func TestMandelbrotKernelBindGroups(t *testing.T) {
	k := NewMandelbrotKernel(4)

	descriptors := k.BindGroupLayoutDescriptors()
	if len(descriptors) != 3 {
		t.Fatalf("kernel declares %d bind groups, want 3", len(descriptors))
	}

	tests := []struct {
		group   int
		varName string
		bufType wgpu.BufferBindingType
		minSize uint64
	}{
		{group: 0, varName: "samples", bufType: wgpu.BufferBindingTypeStorage, minSize: 0},
		{group: 1, varName: "image_size", bufType: wgpu.BufferBindingTypeUniform, minSize: 8},
		{group: 2, varName: "viewport", bufType: wgpu.BufferBindingTypeUniform, minSize: 8},
	}

	for _, tt := range tests {
		desc, ok := descriptors[tt.group]
		if !ok {
			t.Errorf("group %d not declared", tt.group)
			continue
		}
		if len(desc.Entries) != 1 {
			t.Errorf("group %d has %d entries, want 1", tt.group, len(desc.Entries))
			continue
		}
		entry := desc.Entries[0]
		if entry.Binding != 0 {
			t.Errorf("group %d entry binding = %d, want 0", tt.group, entry.Binding)
		}
		if entry.Visibility != wgpu.ShaderStageCompute {
			t.Errorf("group %d visibility = %v, want compute", tt.group, entry.Visibility)
		}
		if entry.Buffer.Type != tt.bufType {
			t.Errorf("group %d buffer type = %v, want %v", tt.group, entry.Buffer.Type, tt.bufType)
		}
		if entry.Buffer.MinBindingSize != tt.minSize {
			t.Errorf("group %d min binding size = %d, want %d", tt.group, entry.Buffer.MinBindingSize, tt.minSize)
		}
		if got := k.BindGroupVarName(tt.group, 0); got != tt.varName {
			t.Errorf("group %d var name = %q, want %q", tt.group, got, tt.varName)
		}
	}
}

func TestNewComputeShaderPanicsOnEmptySource(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewComputeShader accepted empty source")
		}
	}()
	NewComputeShader("empty", "", 8)
}

func TestNewComputeShaderPanicsWithoutEntryPoint(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewComputeShader accepted source without a @compute entry point")
		}
	}()
	NewComputeShader("no-entry", "fn helper() {}", 8)
}
