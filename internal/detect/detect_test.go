package detect

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
)

func TestFromAnnotations(t *testing.T) {
	annotations := []*visionpb.EntityAnnotation{
		{
			Description: "Hello World",
			BoundingPoly: &visionpb.BoundingPoly{
				Vertices: []*visionpb.Vertex{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 40}, {X: 0, Y: 40}},
			},
		},
		{
			Description: "Hello",
			BoundingPoly: &visionpb.BoundingPoly{
				Vertices: []*visionpb.Vertex{{X: 0, Y: 0}, {X: 45, Y: 0}, {X: 45, Y: 40}, {X: 0, Y: 40}},
			},
		},
		{
			Description: "World",
			BoundingPoly: &visionpb.BoundingPoly{
				Vertices: []*visionpb.Vertex{{X: 50, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 40}, {X: 50, Y: 40}},
			},
		},
	}

	det := fromAnnotations(annotations)

	if det.Text != "Hello World" {
		t.Errorf("Text = %q, want %q", det.Text, "Hello World")
	}
	if len(det.Fragments) != 3 {
		t.Fatalf("len(Fragments) = %d, want 3", len(det.Fragments))
	}
	if det.Empty() {
		t.Error("Empty() = true for a populated detection")
	}

	boxes := det.Boxes()
	if len(boxes) != 2 {
		t.Fatalf("len(Boxes()) = %d, want 2 (aggregate excluded)", len(boxes))
	}
	if boxes[0].Description != "Hello" || boxes[1].Description != "World" {
		t.Errorf("Boxes() descriptions = %q, %q", boxes[0].Description, boxes[1].Description)
	}
	if got := boxes[1].Vertices[0]; got.X != 50 || got.Y != 0 {
		t.Errorf("Boxes()[1].Vertices[0] = %+v, want {50 0}", got)
	}
}

func TestFromAnnotationsEmpty(t *testing.T) {
	det := fromAnnotations(nil)
	if !det.Empty() {
		t.Error("Empty() = false for a nil annotation list")
	}
	if boxes := det.Boxes(); boxes != nil {
		t.Errorf("Boxes() = %v, want nil", boxes)
	}
}

func TestFromAnnotationsMissingPoly(t *testing.T) {
	det := fromAnnotations([]*visionpb.EntityAnnotation{{Description: "only text"}})
	if len(det.Fragments) != 1 {
		t.Fatalf("len(Fragments) = %d, want 1", len(det.Fragments))
	}
	if det.Fragments[0].Vertices != nil {
		t.Errorf("Vertices = %v, want nil for an annotation without a bounding polygon", det.Fragments[0].Vertices)
	}
	if boxes := det.Boxes(); boxes != nil {
		t.Errorf("Boxes() = %v, want nil when only the aggregate exists", boxes)
	}
}

func TestDetectRejectsEmptyImage(t *testing.T) {
	g := &GoogleVisionDetector{}
	if _, err := g.Detect(context.Background(), nil); !errors.Is(err, ErrEmptyImage) {
		t.Fatalf("Detect(nil) error = %v, want ErrEmptyImage", err)
	}
}

func TestDetectRejectsOversizedImage(t *testing.T) {
	g := &GoogleVisionDetector{}
	oversized := make([]byte, MaxImageSizeBytes+1)
	if _, err := g.Detect(context.Background(), oversized); !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("Detect(oversized) error = %v, want ErrImageTooLarge", err)
	}
}

func TestDetectErrorWrapping(t *testing.T) {
	err := WrapDetectError("Detect", ErrDetectionFailed, "Vision API error: boom")

	var detectErr *DetectError
	if !errors.As(err, &detectErr) {
		t.Fatalf("WrapDetectError() returned %T, want *DetectError", err)
	}
	if !errors.Is(err, ErrDetectionFailed) {
		t.Error("wrapped error does not match ErrDetectionFailed")
	}

	// Wrapping an already-wrapped error is a no-op.
	if again := WrapDetectError("Other", err, "outer"); again != err {
		t.Error("double wrapping should return the original error")
	}

	if WrapDetectError("Detect", nil, "") != nil {
		t.Error("wrapping nil should return nil")
	}
}
