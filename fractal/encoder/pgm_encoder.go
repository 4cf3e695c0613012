package encoder

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/fractal-go/common"
)

// maxGray is the maximum luminance value declared in the PGM header. It matches
// the kernel's iteration ceiling so the raster never needs rescaling.
const maxGray = 255

// Encoder serializes raw per-pixel sample words into a binary PGM (P5) image.
type Encoder interface {
	// ExtractLuminance reduces a raw little-endian u32 sample stream to one
	// luminance byte per pixel by taking the low byte of each word.
	//
	// Parameters:
	//   - raw: the raw sample bytes, length must be a multiple of 4
	//
	// Returns:
	//   - []byte: one luminance byte per pixel
	//   - error: a size mismatch fault if the raw length is not word-aligned
	ExtractLuminance(raw []byte) ([]byte, error)

	// Encode builds a complete binary PGM image from per-pixel luminance bytes.
	//
	// Parameters:
	//   - luminance: one byte per pixel, row-major
	//   - width: image width in pixels
	//   - height: image height in pixels
	//
	// Returns:
	//   - []byte: the header followed by the raw pixel payload
	//   - error: a size mismatch fault if len(luminance) != width*height
	Encode(luminance []byte, width, height uint32) ([]byte, error)

	// WriteFile writes an encoded image to disk atomically, using a temporary
	// file in the destination directory and a rename.
	//
	// Parameters:
	//   - path: the destination file path
	//   - image: the encoded image bytes
	//
	// Returns:
	//   - error: an I/O fault if any filesystem step fails
	WriteFile(path string, image []byte) error
}

type pgmEncoder struct{}

var _ Encoder = &pgmEncoder{}

// NewPGMEncoder creates a new binary PGM encoder.
//
// Returns:
//   - Encoder: the new encoder
func NewPGMEncoder() Encoder {
	return &pgmEncoder{}
}

func (e *pgmEncoder) ExtractLuminance(raw []byte) ([]byte, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("%w: raw sample length %d is not a multiple of 4", common.ErrSizeMismatch, len(raw))
	}

	luminance := make([]byte, len(raw)/4)
	for i := range luminance {
		word := binary.LittleEndian.Uint32(raw[i*4:])
		luminance[i] = byte(word)
	}
	return luminance, nil
}

func (e *pgmEncoder) Encode(luminance []byte, width, height uint32) ([]byte, error) {
	pixels := uint64(width) * uint64(height)
	if uint64(len(luminance)) != pixels {
		return nil, fmt.Errorf("%w: have %d luminance bytes, image %dx%d needs %d",
			common.ErrSizeMismatch, len(luminance), width, height, pixels)
	}

	header := fmt.Sprintf("P5\n%d %d\n%d\n", width, height, maxGray)
	image := make([]byte, 0, len(header)+len(luminance))
	image = append(image, header...)
	image = append(image, luminance...)
	return image, nil
}

func (e *pgmEncoder) WriteFile(path string, image []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: failed to create temporary file in %s: %v", common.ErrIOFault, dir, err)
	}

	if _, err = tmp.Write(image); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: failed to write %s: %v", common.ErrIOFault, tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: failed to close %s: %v", common.ErrIOFault, tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: failed to rename %s to %s: %v", common.ErrIOFault, tmp.Name(), path, err)
	}
	return nil
}
