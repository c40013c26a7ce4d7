package detect

import (
	"context"
	"fmt"
	"os"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// MaxImageSizeBytes is the maximum image size for synchronous processing (20MB)
const MaxImageSizeBytes = 20 * 1024 * 1024

// GoogleVisionDetector implements TextDetector using Google Cloud Vision API.
type GoogleVisionDetector struct {
	client *vision.ImageAnnotatorClient
}

// NewGoogleVisionDetector creates a new detector with credentials from environment.
// It expects either GOOGLE_APPLICATION_CREDENTIALS path or GOOGLE_CREDENTIALS JSON in env.
func NewGoogleVisionDetector(ctx context.Context) (*GoogleVisionDetector, error) {
	const op = "NewGoogleVisionDetector"

	var client *vision.ImageAnnotatorClient
	var err error

	// Check for inline credentials first
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapDetectError(op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		// Use credentials file
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapDetectError(op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		// Try default credentials as fallback
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapDetectError(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return &GoogleVisionDetector{
		client: client,
	}, nil
}

// NewGoogleVisionDetectorWithClient creates a detector with an explicit client (for testing).
func NewGoogleVisionDetectorWithClient(client *vision.ImageAnnotatorClient) *GoogleVisionDetector {
	return &GoogleVisionDetector{
		client: client,
	}
}

// Detect runs document text detection on the given encoded image bytes.
func (g *GoogleVisionDetector) Detect(ctx context.Context, image []byte) (*Detection, error) {
	const op = "Detect"

	if len(image) == 0 {
		return nil, WrapDetectError(op, ErrEmptyImage, "")
	}
	if len(image) > MaxImageSizeBytes {
		return nil, WrapDetectError(op, ErrImageTooLarge, fmt.Sprintf("image size: %d bytes", len(image)))
	}

	// Prepare the request
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{
					Content: image,
				},
				Features: []*visionpb.Feature{
					{
						Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION,
					},
				},
			},
		},
	}

	// Call the Vision API
	resp, err := g.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, WrapDetectError(op, ErrDetectionFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}

	// Check for API errors
	if len(resp.Responses) == 0 {
		return nil, WrapDetectError(op, ErrDetectionFailed, "no response from Vision API")
	}

	imageResp := resp.Responses[0]
	if imageResp.Error != nil {
		return nil, WrapDetectError(op, ErrDetectionFailed, fmt.Sprintf("Vision API error: %s", imageResp.Error.Message))
	}

	return fromAnnotations(imageResp.TextAnnotations), nil
}

// fromAnnotations converts the Vision API annotation list into the parsed
// Detection structure. The first annotation, when present, is the aggregate
// transcription for the whole image.
func fromAnnotations(annotations []*visionpb.EntityAnnotation) *Detection {
	det := &Detection{}
	if len(annotations) == 0 {
		return det
	}

	det.Text = annotations[0].Description
	det.Fragments = make([]Fragment, 0, len(annotations))
	for _, annotation := range annotations {
		fragment := Fragment{Description: annotation.Description}
		if annotation.BoundingPoly != nil {
			for _, v := range annotation.BoundingPoly.Vertices {
				fragment.Vertices = append(fragment.Vertices, Vertex{X: int(v.X), Y: int(v.Y)})
			}
		}
		det.Fragments = append(det.Fragments, fragment)
	}
	return det
}

// Close closes the underlying Vision client.
func (g *GoogleVisionDetector) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

var _ TextDetector = (*GoogleVisionDetector)(nil)
