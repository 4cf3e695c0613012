package common

import "errors"

// Fault sentinels for the single-shot render pipeline. Every failure the
// pipeline can hit wraps exactly one of these, so callers can classify a
// run's outcome with errors.Is without parsing message text. None of them
// are recoverable at this pipeline's scope: the run either completes with
// one valid image or terminates with one of these.
var (
	// ErrCapabilityFault indicates no suitable compute device was found, or
	// device creation was rejected by the adapter.
	ErrCapabilityFault = errors.New("capability fault")

	// ErrConfigurationFault indicates the requested image dimensions are
	// incompatible with the chosen workgroup geometry, or a parameter value
	// is out of range. Always raised before any device work is submitted.
	ErrConfigurationFault = errors.New("configuration fault")

	// ErrDeviceFault indicates the device rejected a buffer mapping request
	// or delivered an internally inconsistent mapping.
	ErrDeviceFault = errors.New("device fault")

	// ErrLostResult indicates the asynchronous readback completion never
	// resolved to a usable result.
	ErrLostResult = errors.New("lost result")

	// ErrTimeout indicates the readback completion wait expired before the
	// device signalled completion.
	ErrTimeout = errors.New("readback timeout")

	// ErrSizeMismatch indicates the extracted sample count disagrees with
	// the expected pixel count, meaning the host/kernel layout contract was
	// violated somewhere.
	ErrSizeMismatch = errors.New("size mismatch")

	// ErrIOFault indicates the final write of the output artifact failed.
	ErrIOFault = errors.New("io fault")
)
