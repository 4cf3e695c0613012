package cpu

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/Carmen-Shannon/fractal-go/common"
)

func sampleAt(raw []byte, width, x, y uint32) uint32 {
	return binary.LittleEndian.Uint32(raw[(uint64(y)*uint64(width)+uint64(x))*4:])
}

func TestRenderSampleRange(t *testing.T) {
	const width, height = 4, 4
	raw, err := NewRenderer(2).Render(width, height, 3.0, 2.0)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if len(raw) != width*height*4 {
		t.Fatalf("Render produced %d bytes, want %d", len(raw), width*height*4)
	}

	// Pixel (3, 2) maps to the origin of the complex plane, which never
	// escapes, so it must saturate the iteration cap.
	if got := sampleAt(raw, width, 3, 2); got != maxIterations {
		t.Errorf("interior sample = %d, want %d", got, maxIterations)
	}

	// Pixel (0, 0) maps to c = (-2.25, -1), well outside the escape radius,
	// so its orbit diverges after a single iteration.
	if got := sampleAt(raw, width, 0, 0); got != 1 {
		t.Errorf("exterior sample = %d, want 1", got)
	}

	for i := 0; i < len(raw); i += 4 {
		if s := binary.LittleEndian.Uint32(raw[i:]); s > maxIterations {
			t.Fatalf("sample %d = %d exceeds the iteration cap", i/4, s)
		}
	}
}

func TestRenderDeterministicAcrossWorkerCounts(t *testing.T) {
	one, err := NewRenderer(1).Render(16, 12, 3.0, 2.0)
	if err != nil {
		t.Fatalf("Render with one worker returned error: %v", err)
	}
	many, err := NewRenderer(8).Render(16, 12, 3.0, 2.0)
	if err != nil {
		t.Fatalf("Render with eight workers returned error: %v", err)
	}
	if !bytes.Equal(one, many) {
		t.Error("worker count changed the rendered samples")
	}
}

func TestRenderRejectsInvalidParameters(t *testing.T) {
	tests := []struct {
		name                 string
		width, height        uint32
		viewportW, viewportH float32
	}{
		{name: "zero width", width: 0, height: 4, viewportW: 3, viewportH: 2},
		{name: "zero height", width: 4, height: 0, viewportW: 3, viewportH: 2},
		{name: "zero viewport width", width: 4, height: 4, viewportW: 0, viewportH: 2},
		{name: "negative viewport height", width: 4, height: 4, viewportW: 3, viewportH: -2},
	}

	r := NewRenderer(1)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Render(tt.width, tt.height, tt.viewportW, tt.viewportH)
			if !errors.Is(err, common.ErrConfigurationFault) {
				t.Errorf("Render error = %v, want %v", err, common.ErrConfigurationFault)
			}
		})
	}
}

func TestEscapeTime(t *testing.T) {
	if got := escapeTime(0, 0); got != maxIterations {
		t.Errorf("escapeTime(0, 0) = %d, want %d", got, maxIterations)
	}
	if got := escapeTime(-2.25, -1); got != 1 {
		t.Errorf("escapeTime(-2.25, -1) = %d, want 1", got)
	}
	// The orbit starts at zero, so even a far-exterior point runs exactly one
	// iteration before the radius check can fire.
	if got := escapeTime(10, 10); got != 1 {
		t.Errorf("escapeTime(10, 10) = %d, want 1", got)
	}
}
