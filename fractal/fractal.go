package fractal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/fractal-go/common"
	"github.com/Carmen-Shannon/fractal-go/fractal/compute"
	"github.com/Carmen-Shannon/fractal-go/fractal/cpu"
	"github.com/Carmen-Shannon/fractal-go/fractal/encoder"
	"github.com/Carmen-Shannon/fractal-go/fractal/shader"
)

// Default render parameters. The viewport is centered on (-0.75, 0) on the
// complex plane by the kernel's coordinate mapping.
const (
	DefaultImageWidth     = 4000
	DefaultImageHeight    = 3000
	DefaultViewportWidth  = 3.0
	DefaultViewportHeight = 2.0
	DefaultOutputPath     = "image.pgm"

	// DefaultReadbackTimeout bounds how long a render waits for the staging
	// buffer mapping before giving up on the device.
	DefaultReadbackTimeout = 30 * time.Second
)

// Renderer drives the full render pipeline: plan the dispatch geometry,
// execute the escape-time kernel, read the samples back, and serialize them
// as a binary PGM image.
type Renderer interface {
	// Render executes the pipeline and returns the encoded PGM image.
	//
	// Returns:
	//   - []byte: the complete PGM image, header and pixel payload
	//   - error: the first fault encountered in the pipeline
	Render() ([]byte, error)

	// RenderToFile executes the pipeline and writes the image to the
	// configured output path atomically.
	//
	// Returns:
	//   - error: the first fault encountered in the pipeline or while writing
	RenderToFile() error
}

type renderer struct {
	imageSize GPUImageSize
	viewport  GPUViewport

	// workgroupEdge forces a specific square workgroup edge length when
	// non-zero; zero lets the dispatch planner choose.
	workgroupEdge   uint32
	outputPath      string
	readbackTimeout time.Duration

	forceFallbackAdapter bool
	cpuFallback          bool
	cpuWorkers           int

	// backend overrides device acquisition when set; used by tests and by
	// callers that manage the device themselves.
	backend compute.Backend

	encoder encoder.Encoder
	logger  *slog.Logger

	// raw builder inputs, validated in NewRenderer after options apply.
	rawWidth, rawHeight        uint32
	rawViewportW, rawViewportH float32
}

var _ Renderer = &renderer{}

// NewRenderer creates a renderer with the supplied options applied over the
// defaults.
//
// Parameters:
//   - opts: functional options configuring the renderer
//
// Returns:
//   - Renderer: the configured renderer
//   - error: a configuration fault if image or viewport dimensions are invalid
func NewRenderer(opts ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		outputPath:      DefaultOutputPath,
		readbackTimeout: DefaultReadbackTimeout,
		encoder:         encoder.NewPGMEncoder(),
		logger:          slog.Default(),
		rawWidth:        DefaultImageWidth,
		rawHeight:       DefaultImageHeight,
		rawViewportW:    DefaultViewportWidth,
		rawViewportH:    DefaultViewportHeight,
	}
	for _, opt := range opts {
		opt(r)
	}

	imageSize, err := NewGPUImageSize(r.rawWidth, r.rawHeight)
	if err != nil {
		return nil, err
	}
	viewport, err := NewGPUViewport(r.rawViewportW, r.rawViewportH)
	if err != nil {
		return nil, err
	}
	r.imageSize = imageSize
	r.viewport = viewport
	return r, nil
}

func (r *renderer) Render() ([]byte, error) {
	raw, err := r.computeSamples()
	if err != nil {
		return nil, err
	}

	luminance, err := r.encoder.ExtractLuminance(raw)
	if err != nil {
		return nil, err
	}
	return r.encoder.Encode(luminance, r.imageSize.Width, r.imageSize.Height)
}

func (r *renderer) RenderToFile() error {
	image, err := r.Render()
	if err != nil {
		return err
	}
	if err = r.encoder.WriteFile(r.outputPath, image); err != nil {
		return err
	}
	r.logger.Info("image written", "path", r.outputPath, "bytes", len(image))
	return nil
}

// computeSamples produces the raw sample stream, preferring the GPU path and
// falling back to the software renderer only for capability faults when the
// fallback is enabled. Faults after device acquisition are never retried on
// the CPU; a device that accepted the work but failed it is reported as-is.
func (r *renderer) computeSamples() ([]byte, error) {
	raw, err := r.computeOnDevice()
	if err == nil {
		return raw, nil
	}
	if !r.cpuFallback || !errors.Is(err, common.ErrCapabilityFault) {
		return nil, err
	}

	r.logger.Warn("no compute device available, rendering in software", "error", err)
	return cpu.NewRenderer(r.cpuWorkers).Render(
		r.imageSize.Width, r.imageSize.Height,
		r.viewport.Width, r.viewport.Height,
	)
}

func (r *renderer) computeOnDevice() ([]byte, error) {
	backend := r.backend
	if backend == nil {
		acquired, err := compute.NewWGPUBackend(r.forceFallbackAdapter)
		if err != nil {
			return nil, err
		}
		backend = acquired
		defer backend.Release()
	}

	limits := backend.Limits()
	r.logger.Debug("compute device acquired",
		"maxInvocationsPerWorkgroup", limits.MaxComputeInvocationsPerWorkgroup,
		"maxBufferSize", limits.MaxBufferSize)

	var plannerOpts []compute.DispatchPlannerOption
	if r.workgroupEdge > 0 {
		plannerOpts = append(plannerOpts, compute.WithExplicitEdge(r.workgroupEdge))
	}
	planner := compute.NewDispatchPlanner(limits.MaxComputeInvocationsPerWorkgroup, plannerOpts...)
	geom, err := planner.Plan(r.imageSize.Width, r.imageSize.Height)
	if err != nil {
		return nil, err
	}
	r.logger.Info("dispatch planned",
		"workgroupEdge", geom.EdgeLength,
		"groupsX", geom.GroupsX,
		"groupsY", geom.GroupsY)

	if err = backend.RegisterKernel(shader.NewMandelbrotKernel(geom.EdgeLength)); err != nil {
		return nil, err
	}

	sampleBufferSize := r.imageSize.Pixels() * compute.SampleByteSize
	uniforms := map[int][]byte{
		compute.GroupImageSize: r.imageSize.Marshal(),
		compute.GroupViewport:  r.viewport.Marshal(),
	}
	if err = backend.InitBuffers(uniforms, sampleBufferSize); err != nil {
		return nil, err
	}

	if err = backend.Submit(geom); err != nil {
		return nil, err
	}

	raw, err := backend.Readback(r.readbackTimeout)
	if err != nil {
		return nil, err
	}
	if uint64(len(raw)) != sampleBufferSize {
		return nil, fmt.Errorf("%w: readback returned %d bytes, expected %d",
			common.ErrSizeMismatch, len(raw), sampleBufferSize)
	}
	r.logger.Debug("readback complete", "bytes", len(raw))
	return raw, nil
}
