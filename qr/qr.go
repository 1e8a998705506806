// Package qr encodes payloads as QR module matrices and rasterizes them
// into 1-bit bitmaps ready for image embedding.
package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// ModuleScale is the number of pixels rendered per QR module. The
// bitmap is later scaled to the field box, so the factor only needs to
// be large enough for clean interpolation.
const ModuleScale = 8

// PayloadTooLargeError reports a payload that exceeds QR capacity at
// the chosen error-correction level.
type PayloadTooLargeError struct {
	Payload string
	Err     error
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("qr payload of %d bytes cannot be encoded: %v", len(e.Payload), e.Err)
}
func (e *PayloadTooLargeError) Unwrap() error { return e.Err }

// Encode produces the square module matrix for payload using medium
// error correction. true means a dark module. The matrix includes the
// quiet-zone border.
func Encode(payload string) ([][]bool, error) {
	code, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return nil, &PayloadTooLargeError{Payload: payload, Err: err}
	}
	return code.Bitmap(), nil
}

// Bitmap is a 1-bit DeviceGray raster. Rows are packed MSB first and
// padded to a byte boundary. A set bit is white, matching DeviceGray
// where 1 is maximum intensity.
type Bitmap struct {
	Width  int
	Height int
	Data   []byte
}

// Rasterize expands a module matrix into a Bitmap at ModuleScale pixels
// per module.
func Rasterize(matrix [][]bool) *Bitmap {
	size := len(matrix)
	side := size * ModuleScale
	rowBytes := (side + 7) / 8
	data := make([]byte, rowBytes*side)
	for my, row := range matrix {
		for mx, dark := range row {
			if dark {
				continue
			}
			for py := 0; py < ModuleScale; py++ {
				y := my*ModuleScale + py
				base := y * rowBytes
				for px := 0; px < ModuleScale; px++ {
					x := mx*ModuleScale + px
					data[base+x/8] |= 0x80 >> (x % 8)
				}
			}
		}
	}
	return &Bitmap{Width: side, Height: side, Data: data}
}
