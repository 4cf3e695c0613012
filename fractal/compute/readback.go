package compute

import (
	"fmt"
	"time"

	"github.com/Carmen-Shannon/fractal-go/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// readbackSync performs the asynchronous map-for-read of the staging buffer,
// drives device completion, and extracts the mapped bytes before unmapping.
// It is a single-resolution handoff: the device-completion callback is the
// producer, the blocking wait is the consumer, and the buffered channel
// between them delivers exactly one result. Not cancellable — once the map
// request is issued the computation runs to completion or the wait times out.
type readbackSync struct {
	// size is the staging buffer's byte size, fixed at allocation time.
	size uint64

	// status receives the one-shot completion notification from the device
	// callback. Buffered so the callback never blocks inside device polling.
	status chan wgpu.BufferMapAsyncStatus

	// requestMap issues the asynchronous read-mapping of the whole staging
	// buffer, registering the given completion callback.
	requestMap func(callback func(wgpu.BufferMapAsyncStatus)) error

	// pollWait drives device progress, returning once queued work is done.
	pollWait func()

	// mappedRange returns the mapped staging bytes. Only valid between a
	// successful map completion and the unmap call.
	mappedRange func() []byte

	// unmap releases the staging buffer's mapping.
	unmap func()
}

// newReadbackSync builds a readbackSync for the given staging buffer on the
// given device.
func newReadbackSync(device *wgpu.Device, staging *wgpu.Buffer, size uint64) *readbackSync {
	return &readbackSync{
		size:   size,
		status: make(chan wgpu.BufferMapAsyncStatus, 1),
		requestMap: func(callback func(wgpu.BufferMapAsyncStatus)) error {
			return staging.MapAsync(wgpu.MapModeRead, 0, size, callback)
		},
		pollWait: func() {
			device.Poll(true, nil)
		},
		mappedRange: func() []byte {
			return staging.GetMappedRange(0, uint(size))
		},
		unmap: func() { staging.Unmap() },
	}
}

// read maps the staging buffer, waits for the completion notification, copies
// the mapped bytes into an owned slice, and unmaps. The mapping is released
// exactly once on both the success and failure paths; the returned slice
// remains valid after release.
//
// A timeout <= 0 blocks until the device completes. A positive timeout bounds
// the wait and surfaces a timeout fault if the device never signals, leaving
// the mapping unreleased (the run is aborted anyway; the process exit reclaims
// the device).
func (r *readbackSync) read(timeout time.Duration) ([]byte, error) {
	if err := r.requestMap(func(s wgpu.BufferMapAsyncStatus) {
		r.status <- s
	}); err != nil {
		return nil, fmt.Errorf("%w: staging buffer map request rejected: %v", common.ErrDeviceFault, err)
	}

	if timeout <= 0 {
		// Blocking wait mode: the callback fires while the device is polled on
		// this goroutine, so completion is observable immediately afterwards.
		r.pollWait()
		select {
		case s := <-r.status:
			return r.extract(s)
		default:
			return nil, fmt.Errorf("%w: device finished polling without delivering a map result", common.ErrLostResult)
		}
	}

	// Bounded wait: poll on a separate goroutine so a hung device cannot block
	// this path past the deadline.
	polled := make(chan struct{})
	go func() {
		r.pollWait()
		close(polled)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s := <-r.status:
		return r.extract(s)
	case <-polled:
		select {
		case s := <-r.status:
			return r.extract(s)
		default:
			return nil, fmt.Errorf("%w: device finished polling without delivering a map result", common.ErrLostResult)
		}
	case <-timer.C:
		return nil, fmt.Errorf("%w: staging buffer map did not complete within %s", common.ErrTimeout, timeout)
	}
}

// extract turns the delivered map status into owned sample bytes, releasing
// the mapping on every path.
func (r *readbackSync) extract(s wgpu.BufferMapAsyncStatus) ([]byte, error) {
	if s != wgpu.BufferMapAsyncStatusSuccess {
		r.unmap()
		return nil, fmt.Errorf("%w: staging buffer map completed with status %v", common.ErrDeviceFault, s)
	}

	mapped := r.mappedRange()
	if len(mapped) == 0 {
		// Size is fixed at allocation time, so an empty mapping means the
		// device and host disagree about the buffer.
		r.unmap()
		return nil, fmt.Errorf("%w: mapped staging range is empty, expected %d bytes", common.ErrDeviceFault, r.size)
	}

	// The mapped bytes are invalidated by unmap; copy them out first.
	out := make([]byte, len(mapped))
	copy(out, mapped)
	r.unmap()
	return out, nil
}
