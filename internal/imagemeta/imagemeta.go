// Package imagemeta probes image headers for dimensions without decoding
// pixel data. Used to reject non-image uploads before they reach the
// detection service.
package imagemeta

import (
	"bytes"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Probe returns the pixel dimensions and format of the image data.
func Probe(data []byte) (width, height int, format string, err error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "", fmt.Errorf("unrecognized image data: %w", err)
	}
	return cfg.Width, cfg.Height, format, nil
}
