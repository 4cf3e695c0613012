package fractal

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/fractal-go/common"
)

// GPUImageSize is the GPU-aligned representation of the output raster
// dimensions. Matches the WGSL `vec2<u32>` uniform at group 1 binding 0
// exactly. Size: 8 bytes (std140/std430 aligned, no padding required).
type GPUImageSize struct {
	Width  uint32 // offset 0: raster width in pixels (4 bytes)
	Height uint32 // offset 4: raster height in pixels (4 bytes)
}

// NewGPUImageSize validates and builds a GPUImageSize.
//
// Parameters:
//   - width: raster width in pixels, must be positive
//   - height: raster height in pixels, must be positive
//
// Returns:
//   - GPUImageSize: the validated image size block
//   - error: a configuration fault if either dimension is zero
func NewGPUImageSize(width, height uint32) (GPUImageSize, error) {
	if width == 0 || height == 0 {
		return GPUImageSize{}, fmt.Errorf("%w: image dimensions must be positive, got %dx%d", common.ErrConfigurationFault, width, height)
	}
	return GPUImageSize{Width: width, Height: height}, nil
}

// Size returns the size of the GPUImageSize struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUImageSize) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUImageSize struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 8-byte buffer ready for GPU upload.
func (g *GPUImageSize) Marshal() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], g.Width)
	binary.LittleEndian.PutUint32(buf[4:8], g.Height)
	return buf
}

// Pixels returns the total pixel count of the raster.
//
// Returns:
//   - uint64: width × height
func (g *GPUImageSize) Pixels() uint64 {
	return uint64(g.Width) * uint64(g.Height)
}

// GPUViewport is the GPU-aligned representation of the mathematical-plane
// extent mapped onto the raster. Matches the WGSL `vec2<f32>` uniform at
// group 2 binding 0 exactly. Size: 8 bytes (no padding required).
type GPUViewport struct {
	Width  float32 // offset 0: plane extent along the real axis (4 bytes)
	Height float32 // offset 4: plane extent along the imaginary axis (4 bytes)
}

// NewGPUViewport validates and builds a GPUViewport.
//
// Parameters:
//   - width: plane extent along the real axis, must be positive
//   - height: plane extent along the imaginary axis, must be positive
//
// Returns:
//   - GPUViewport: the validated viewport block
//   - error: a configuration fault if either extent is not positive
func NewGPUViewport(width, height float32) (GPUViewport, error) {
	if width <= 0 || height <= 0 {
		return GPUViewport{}, fmt.Errorf("%w: viewport extents must be positive, got %gx%g", common.ErrConfigurationFault, width, height)
	}
	return GPUViewport{Width: width, Height: height}, nil
}

// Size returns the size of the GPUViewport struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUViewport) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUViewport struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 8-byte buffer ready for GPU upload.
func (g *GPUViewport) Marshal() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Width))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Height))
	return buf
}
