package cpu

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/fractal-go/common"
	"github.com/chewxy/math32"
)

// maxIterations matches the compute kernel's iteration ceiling so both paths
// produce the same sample range.
const maxIterations = 255

// escapeRadius is the magnitude beyond which an orbit is known to diverge.
const escapeRadius = 2.0

// Renderer is the software fallback for the compute pipeline. It produces the
// same wire format as the GPU staging buffer, one little-endian u32 sample per
// pixel in row-major order, so the downstream encoder does not care which path
// produced the raster.
type Renderer interface {
	// Render computes the escape-time raster on the CPU.
	//
	// Parameters:
	//   - width: image width in pixels
	//   - height: image height in pixels
	//   - viewportWidth: the extent of the complex plane along the real axis
	//   - viewportHeight: the extent of the complex plane along the imaginary axis
	//
	// Returns:
	//   - []byte: width*height little-endian u32 samples, row-major
	//   - error: a configuration fault if any dimension is not positive
	Render(width, height uint32, viewportWidth, viewportHeight float32) ([]byte, error)
}

type renderer struct {
	pool    worker.DynamicWorkerPool
	workers int
}

var _ Renderer = &renderer{}

// NewRenderer creates a software renderer backed by a bounded worker pool.
// Rows are split into one contiguous band per worker.
//
// Parameters:
//   - workers: the number of pool workers, or <= 0 for one per logical CPU
//
// Returns:
//   - Renderer: the new software renderer
func NewRenderer(workers int) Renderer {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &renderer{
		pool:    worker.NewDynamicWorkerPool(workers, 256, 1*time.Second),
		workers: workers,
	}
}

func (r *renderer) Render(width, height uint32, viewportWidth, viewportHeight float32) ([]byte, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: image dimensions %dx%d must be positive", common.ErrConfigurationFault, width, height)
	}
	if viewportWidth <= 0 || viewportHeight <= 0 {
		return nil, fmt.Errorf("%w: viewport extents %gx%g must be positive", common.ErrConfigurationFault, viewportWidth, viewportHeight)
	}

	samples := make([]byte, uint64(width)*uint64(height)*4)

	bands := r.workers
	if uint32(bands) > height {
		bands = int(height)
	}
	rowsPerBand := (height + uint32(bands) - 1) / uint32(bands)

	var wg sync.WaitGroup
	for band := 0; band < bands; band++ {
		startRow := uint32(band) * rowsPerBand
		endRow := min(startRow+rowsPerBand, height)
		if startRow >= endRow {
			continue
		}

		wg.Add(1)
		r.pool.SubmitTask(worker.Task{
			ID: band,
			Do: func() (any, error) {
				defer wg.Done()
				renderBand(samples, width, height, viewportWidth, viewportHeight, startRow, endRow)
				return nil, nil
			},
		})
	}
	wg.Wait()

	return samples, nil
}

// renderBand fills the sample words for rows [startRow, endRow). Bands never
// overlap, so workers write to disjoint slices of samples without locking.
func renderBand(samples []byte, width, height uint32, viewportWidth, viewportHeight float32, startRow, endRow uint32) {
	for y := startRow; y < endRow; y++ {
		ci := (float32(y)/float32(height) - 0.5) * viewportHeight
		for x := uint32(0); x < width; x++ {
			cr := (float32(x)/float32(width) - 0.75) * viewportWidth
			i := escapeTime(cr, ci)
			binary.LittleEndian.PutUint32(samples[(uint64(y)*uint64(width)+uint64(x))*4:], i)
		}
	}
}

// escapeTime iterates z = z^2 + c from zero and returns how many iterations
// the orbit stayed within the escape radius, capped at maxIterations.
func escapeTime(cr, ci float32) uint32 {
	var zr, zi float32
	var i uint32
	for i < maxIterations && math32.Hypot(zr, zi) <= escapeRadius {
		zr, zi = zr*zr-zi*zi+cr, 2*zr*zi+ci
		i++
	}
	return i
}
