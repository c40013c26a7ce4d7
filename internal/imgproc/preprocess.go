package imgproc

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// contrastBoost is the fixed contrast increase (in percent) applied before
// binarization.
const contrastBoost = 50

// Preprocess applies the fallback pipeline used when a first detection pass
// finds no text: grayscale, mild blur for noise reduction, contrast increase,
// binarization against the image's own mean intensity, then sharpening.
// The result is re-encoded as PNG for resubmission to the detector.
func Preprocess(data []byte) ([]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}

	gray := imaging.Grayscale(img)
	blurred := imaging.Blur(gray, 1.0)
	contrasted := imaging.AdjustContrast(blurred, contrastBoost)
	binarized := threshold(contrasted, meanIntensity(contrasted))
	sharpened := imaging.Sharpen(binarized, 1.0)

	return EncodePNG(sharpened)
}

// meanIntensity computes the average brightness of an already-grayscale image.
// The red channel is a sufficient brightness proxy after imaging.Grayscale.
func meanIntensity(img *image.NRGBA) uint8 {
	bounds := img.Bounds()
	var sum, count uint64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			sum += uint64(img.NRGBAAt(x, y).R)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return uint8(sum / count)
}

// threshold produces a pure black/white image, splitting at the given level.
func threshold(img *image.NRGBA, level uint8) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		if c.R > level {
			return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
		}
		return color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	})
}
