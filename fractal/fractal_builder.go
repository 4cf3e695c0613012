package fractal

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/fractal-go/fractal/compute"
)

// RendererBuilderOption is a functional option for configuring a Renderer.
// Use the With* functions to create options.
type RendererBuilderOption func(r *renderer)

// WithImageSize sets the output raster dimensions in pixels.
// Defaults to DefaultImageWidth x DefaultImageHeight.
//
// Parameters:
//   - width: image width in pixels
//   - height: image height in pixels
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithImageSize(width, height uint32) RendererBuilderOption {
	return func(r *renderer) {
		r.rawWidth = width
		r.rawHeight = height
	}
}

// WithViewport sets the extents of the rendered region of the complex plane.
// The region is centered on (-0.75, 0). Defaults to
// DefaultViewportWidth x DefaultViewportHeight.
//
// Parameters:
//   - width: extent along the real axis
//   - height: extent along the imaginary axis
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithViewport(width, height float32) RendererBuilderOption {
	return func(r *renderer) {
		r.rawViewportW = width
		r.rawViewportH = height
	}
}

// WithWorkgroupEdge forces a specific square workgroup edge length instead of
// letting the dispatch planner derive one from the device limits. The edge
// must still satisfy the planner's divisibility and limit checks.
//
// Parameters:
//   - edge: the workgroup edge length, or 0 to restore automatic selection
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithWorkgroupEdge(edge uint32) RendererBuilderOption {
	return func(r *renderer) {
		r.workgroupEdge = edge
	}
}

// WithOutputPath sets the destination file for RenderToFile.
// Defaults to DefaultOutputPath.
//
// Parameters:
//   - path: the output file path
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithOutputPath(path string) RendererBuilderOption {
	return func(r *renderer) {
		if path != "" {
			r.outputPath = path
		}
	}
}

// WithReadbackTimeout bounds how long a render waits for the staging buffer
// mapping. A non-positive value waits indefinitely.
// Defaults to DefaultReadbackTimeout.
//
// Parameters:
//   - timeout: the maximum wait for the device to map the staging buffer
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithReadbackTimeout(timeout time.Duration) RendererBuilderOption {
	return func(r *renderer) {
		r.readbackTimeout = timeout
	}
}

// WithForceSoftwareAdapter forces WGPU to select a software fallback adapter
// instead of hardware acceleration. Useful on headless hosts with working
// software rasterizers.
//
// Parameters:
//   - force: whether to force the fallback adapter
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithForceSoftwareAdapter(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithCPUFallback enables the software render path when no compute device can
// be acquired at all. Only capability faults trigger the fallback; faults from
// an acquired device are reported, not silently retried.
//
// Parameters:
//   - enabled: whether to fall back to the CPU renderer
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithCPUFallback(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.cpuFallback = enabled
	}
}

// WithCPUWorkers sets the worker count for the software render path.
// Defaults to one worker per logical CPU.
//
// Parameters:
//   - n: the number of workers, or <= 0 for the default
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithCPUWorkers(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.cpuWorkers = n
	}
}

// WithBackend supplies an already acquired compute backend instead of letting
// the renderer acquire one. The caller keeps ownership; the renderer will not
// release it.
//
// Parameters:
//   - backend: the compute backend to use
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithBackend(backend compute.Backend) RendererBuilderOption {
	return func(r *renderer) {
		r.backend = backend
	}
}

// WithLogger sets the structured logger used for pipeline progress events.
// Defaults to slog.Default().
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - RendererBuilderOption: option function to apply
func WithLogger(logger *slog.Logger) RendererBuilderOption {
	return func(r *renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}
