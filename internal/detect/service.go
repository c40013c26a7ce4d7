// Package detect provides text detection for images using Google Cloud Vision API.
//
// Given raw image bytes it returns the whole-image transcription plus one
// bounding polygon per detected text fragment. The first fragment reported by
// the Vision API is the aggregate transcription for the entire image; callers
// that want only the per-fragment boxes should use Detection.Boxes.
//
// Required Environment Variables:
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//
// Cloud Vision API Limitations:
//   - Maximum image size: 20MB for synchronous processing
//   - Supported formats: PNG, JPEG, BMP, GIF, WEBP, TIFF, ICO
package detect

import "context"

// Vertex is a single 2D point of a bounding polygon, in pixel coordinates.
type Vertex struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Fragment is one detected text region with its transcription and outline.
type Fragment struct {
	// Description is the text recognized within the fragment.
	Description string `json:"description"`

	// Vertices is the ordered outline of the fragment. The polygon is closed
	// implicitly; the last vertex connects back to the first.
	Vertices []Vertex `json:"vertices"`
}

// Detection is the parsed result of one text-detection call.
type Detection struct {
	// Text is the whole-image transcription (empty when nothing was detected).
	Text string `json:"text"`

	// Fragments holds the raw annotation list. When non-empty, Fragments[0]
	// is the whole-image aggregate and the rest are individual regions.
	Fragments []Fragment `json:"fragments"`
}

// Empty reports whether the detection found no text at all.
func (d *Detection) Empty() bool {
	return len(d.Fragments) == 0
}

// Boxes returns the per-region fragments, excluding the whole-image aggregate.
func (d *Detection) Boxes() []Fragment {
	if len(d.Fragments) < 2 {
		return nil
	}
	return d.Fragments[1:]
}

// TextDetector defines the interface for text-detection services.
type TextDetector interface {
	// Detect runs text detection on the given encoded image bytes.
	Detect(ctx context.Context, image []byte) (*Detection, error)
}
