package encoder

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/fractal-go/common"
)

func TestExtractLuminance(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want []byte
	}{
		{
			name: "low byte of each word",
			raw: []byte{
				0xFF, 0x00, 0x00, 0x00,
				0x10, 0x00, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x00,
			},
			want: []byte{0xFF, 0x10, 0x00},
		},
		{
			name: "high bytes are discarded",
			raw:  []byte{0x2A, 0xDE, 0xAD, 0xBE},
			want: []byte{0x2A},
		},
		{
			name: "empty input",
			raw:  []byte{},
			want: []byte{},
		},
	}

	enc := NewPGMEncoder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := enc.ExtractLuminance(tt.raw)
			if err != nil {
				t.Fatalf("ExtractLuminance returned error: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("ExtractLuminance = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractLuminanceMisaligned(t *testing.T) {
	_, err := NewPGMEncoder().ExtractLuminance(make([]byte, 7))
	if !errors.Is(err, common.ErrSizeMismatch) {
		t.Errorf("ExtractLuminance error = %v, want %v", err, common.ErrSizeMismatch)
	}
}

func TestEncode(t *testing.T) {
	luminance := make([]byte, 64)
	image, err := NewPGMEncoder().Encode(luminance, 8, 8)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}

	wantHeader := []byte("P5\n8 8\n255\n")
	if len(image) != len(wantHeader)+64 {
		t.Fatalf("Encode produced %d bytes, want %d", len(image), len(wantHeader)+64)
	}
	if !bytes.HasPrefix(image, wantHeader) {
		t.Errorf("Encode header = %q, want %q", image[:len(wantHeader)], wantHeader)
	}
	if !bytes.Equal(image[len(wantHeader):], luminance) {
		t.Error("Encode payload does not match the luminance bytes")
	}
}

func TestEncodeIdempotent(t *testing.T) {
	enc := NewPGMEncoder()
	luminance := []byte{0, 1, 2, 3, 4, 5}

	first, err := enc.Encode(luminance, 3, 2)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	second, err := enc.Encode(luminance, 3, 2)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("encoding the same samples twice produced different bytes")
	}
}

func TestEncodeHeaderRoundTrip(t *testing.T) {
	image, err := NewPGMEncoder().Encode(make([]byte, 4000*10), 4000, 10)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}

	var width, height, maxVal int
	if _, err := fmt.Sscanf(string(image[:20]), "P5\n%d %d\n%d\n", &width, &height, &maxVal); err != nil {
		t.Fatalf("parsing header: %v", err)
	}
	if width != 4000 || height != 10 || maxVal != 255 {
		t.Errorf("header declares %dx%d max %d, want 4000x10 max 255", width, height, maxVal)
	}

	headerLen := bytes.Index(image, []byte("255\n")) + 4
	if got := len(image) - headerLen; got != width*height {
		t.Errorf("payload is %d bytes, header declares %d", got, width*height)
	}
}

func TestEncodeSizeMismatch(t *testing.T) {
	_, err := NewPGMEncoder().Encode(make([]byte, 63), 8, 8)
	if !errors.Is(err, common.ErrSizeMismatch) {
		t.Errorf("Encode error = %v, want %v", err, common.ErrSizeMismatch)
	}
}

func TestWriteFile(t *testing.T) {
	enc := NewPGMEncoder()
	luminance := []byte{0, 64, 128, 255}
	image, err := enc.Encode(luminance, 2, 2)
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "out.pgm")
	if err := enc.WriteFile(path, image); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}
	if !bytes.Equal(got, image) {
		t.Error("written file does not match the encoded image")
	}

	// No temporary files may survive the rename.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("listing output directory: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("output directory has %d entries, want only the image", len(entries))
	}
}

func TestWriteFileMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.pgm")
	err := NewPGMEncoder().WriteFile(path, []byte("P5\n1 1\n255\n\x00"))
	if !errors.Is(err, common.ErrIOFault) {
		t.Errorf("WriteFile error = %v, want %v", err, common.ErrIOFault)
	}
}
