package shader

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestParseEntryPoint(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "simple entry point",
			source: "@compute @workgroup_size(8, 8)\nfn main() {}",
			want:   "main",
		},
		{
			name:   "custom name",
			source: "@compute @workgroup_size(16)\nfn render_tile() {}",
			want:   "render_tile",
		},
		{
			name:   "commented out entry point is ignored",
			source: "// @compute fn old_main() {}\nfn helper() {}",
			want:   "",
		},
		{
			name:   "no compute stage",
			source: "fn main() {}",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseEntryPoint(tt.source); got != tt.want {
				t.Errorf("parseEntryPoint = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseWorkgroupSize(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   [3]uint32
	}{
		{
			name:   "two dimensions",
			source: "@compute @workgroup_size(8, 8)\nfn main() {}",
			want:   [3]uint32{8, 8, 1},
		},
		{
			name:   "one dimension",
			source: "@compute @workgroup_size(64)\nfn main() {}",
			want:   [3]uint32{64, 1, 1},
		},
		{
			name:   "three dimensions",
			source: "@compute @workgroup_size(4, 2, 2)\nfn main() {}",
			want:   [3]uint32{4, 2, 2},
		},
		{
			name:   "missing annotation defaults to ones",
			source: "@compute\nfn main() {}",
			want:   [3]uint32{1, 1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseWorkgroupSize(tt.source); got != tt.want {
				t.Errorf("parseWorkgroupSize = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseBindGroupLayouts(t *testing.T) {
	source := `
@group(0) @binding(0) var<storage, read_write> out: array<u32>;
@group(0) @binding(1) var<storage> in: array<u32>;
@group(1) @binding(0) var<uniform> dims: vec2<u32>;
// @group(2) @binding(0) var<uniform> unused: vec2<f32>;
`

	descriptors, varNames := parseBindGroupLayouts(source, wgpu.ShaderStageCompute)
	if len(descriptors) != 2 {
		t.Fatalf("parsed %d groups, want 2 (commented declaration must be ignored)", len(descriptors))
	}

	group0 := descriptors[0]
	if len(group0.Entries) != 2 {
		t.Fatalf("group 0 has %d entries, want 2", len(group0.Entries))
	}
	if group0.Entries[0].Buffer.Type != wgpu.BufferBindingTypeStorage {
		t.Errorf("binding 0 type = %v, want read-write storage", group0.Entries[0].Buffer.Type)
	}
	if group0.Entries[1].Buffer.Type != wgpu.BufferBindingTypeReadOnlyStorage {
		t.Errorf("binding 1 type = %v, want read-only storage", group0.Entries[1].Buffer.Type)
	}

	group1 := descriptors[1]
	if len(group1.Entries) != 1 || group1.Entries[0].Buffer.Type != wgpu.BufferBindingTypeUniform {
		t.Errorf("group 1 = %+v, want a single uniform entry", group1.Entries)
	}
	if group1.Entries[0].Buffer.MinBindingSize != 8 {
		t.Errorf("group 1 min binding size = %d, want 8", group1.Entries[0].Buffer.MinBindingSize)
	}

	if varNames[0][0] != "out" || varNames[0][1] != "in" || varNames[1][0] != "dims" {
		t.Errorf("variable names = %v, want out/in/dims", varNames)
	}
}

func TestPreProcessorInjectsWorkgroupSize(t *testing.T) {
	source := "@compute @fract:workgroup_size\nfn main() {}"

	out, err := NewPreProcessor(16).Process(source)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	want := "@compute @workgroup_size(16, 16)\nfn main() {}"
	if out != want {
		t.Errorf("Process = %q, want %q", out, want)
	}
}

func TestPreProcessorRejectsUnknownAnnotation(t *testing.T) {
	_, err := NewPreProcessor(8).Process("@compute @fract:tile_order(z)\nfn main() {}")
	if err == nil {
		t.Error("Process accepted an unknown annotation")
	}
}
