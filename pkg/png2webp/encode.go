package png2webp

import (
	"bytes"
	"fmt"
	"image"
	"os"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/chai2010/webp"
)

// decode loads the pixel data of a source image.
func decode(path string) (image.Image, error) {
	img, err := imgio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("imgio.Open: %w", err)
	}
	return img, nil
}

// encodeWebP re-encodes pixel data as WebP. Quality and the lossless
// flag go to the encoder verbatim; Exact is set in lossless mode so
// pixels round-trip byte-exact. Config.Method is validated and logged
// upstream but never reaches the encoder: chai2010/webp pins libwebp's
// effort setting internally and exposes no knob for it.
func encodeWebP(img image.Image, c *Config) ([]byte, error) {
	opt := &webp.Options{
		Lossless: c.Lossless,
		Quality:  float32(c.Quality),
		Exact:    c.Lossless,
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, opt); err != nil {
		return nil, fmt.Errorf("webp encode: %w", err)
	}

	return buf.Bytes(), nil
}

// writeWebP writes encoded bytes to a collision-free destination next
// to the source and returns the path used.
func writeWebP(src string, data []byte) (string, error) {
	dst := UniquePath(webpPath(src))
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	return dst, nil
}
