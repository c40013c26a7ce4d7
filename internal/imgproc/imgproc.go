// Package imgproc handles the pixel work of the annotation pipeline: decoding
// stored image bytes, drawing fragment outlines, and re-encoding to PNG.
//
// All decoders for the bucket extension allow-list are registered here:
// PNG, JPEG and GIF from the standard library, BMP and WebP from
// golang.org/x/image.
package imgproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/fogleman/gg"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"textboxer/internal/detect"
)

// ErrNotAnImage is returned when the given bytes cannot be decoded as an image.
var ErrNotAnImage = errors.New("content is not a decodable image")

var boxColor = color.RGBA{R: 255, A: 255}

// boxStrokeWidth is the outline width in pixels.
const boxStrokeWidth = 2

// Decode parses encoded image bytes into a pixel buffer.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}
	return img, nil
}

// DrawBoxes decodes the original image bytes, strokes a closed red outline for
// every given fragment, and re-encodes the result as PNG. Fragments with fewer
// than two vertices have no outline to draw and are skipped.
func DrawBoxes(data []byte, boxes []detect.Fragment) ([]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContextForImage(img)
	dc.SetColor(boxColor)
	dc.SetLineWidth(boxStrokeWidth)

	for _, box := range boxes {
		if len(box.Vertices) < 2 {
			continue
		}
		dc.MoveTo(float64(box.Vertices[0].X), float64(box.Vertices[0].Y))
		for _, v := range box.Vertices[1:] {
			dc.LineTo(float64(v.X), float64(v.Y))
		}
		dc.ClosePath()
		dc.Stroke()
	}

	return EncodePNG(dc.Image())
}

// EncodePNG serializes a pixel buffer to PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
