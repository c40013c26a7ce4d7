// Package workflow orchestrates the image annotation batch: enumerate the
// bucket, skip inputs that already have an annotated output, and for each
// remaining input run text detection, draw the fragment outlines, and upload
// the annotated PNG.
//
// Error handling follows the per-object/fatal split of the pipeline: download
// and decode failures skip the object and the batch continues; a detection
// service error aborts the whole run. An upload failure also aborts the run.
package workflow

import (
	"context"

	"github.com/rs/zerolog"

	"textboxer/internal/detect"
	"textboxer/internal/imgproc"
	"textboxer/internal/logger"
	"textboxer/internal/storage"
)

// Runner executes one annotation pass over a bucket.
type Runner struct {
	store    storage.ObjectStore
	detector detect.TextDetector
	refresh  bool
	log      zerolog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithRefresh makes the run delete all pre-existing annotated outputs first,
// so every input is re-annotated. The default favors idempotence: inputs with
// an existing output are skipped.
func WithRefresh(refresh bool) Option {
	return func(r *Runner) {
		r.refresh = refresh
	}
}

// New creates a Runner with the given collaborators.
func New(store storage.ObjectStore, detector detect.TextDetector, opts ...Option) *Runner {
	r := &Runner{
		store:    store,
		detector: detector,
		log:      logger.WithComponent("workflow"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes every eligible image in the bucket once and returns the public
// URLs of all annotated outputs: pre-existing outputs first in listing order,
// then newly created outputs in the order their inputs were listed. Inputs for
// which no text is found contribute no URL.
func (r *Runner) Run(ctx context.Context) ([]string, error) {
	names, err := r.store.List(ctx)
	if err != nil {
		return nil, err
	}

	if r.refresh {
		names, err = r.deleteOutputs(ctx, names)
		if err != nil {
			return nil, err
		}
	}

	outputs, candidates := Partition(names)

	r.log.Info().
		Int("objects", len(names)).
		Int("annotated", len(outputs)).
		Int("candidates", len(candidates)).
		Msg("Starting annotation batch")

	urls := make([]string, 0, len(outputs)+len(candidates))
	for _, name := range outputs {
		urls = append(urls, r.store.PublicURL(name))
	}

	for _, name := range candidates {
		url, err := r.processObject(ctx, name)
		if err != nil {
			return nil, err
		}
		if url != "" {
			urls = append(urls, url)
		}
	}

	return urls, nil
}

// processObject annotates a single candidate input. It returns the public URL
// of the uploaded output, or "" when the object was skipped or had no text.
// Only detection and upload errors are returned; download and decode failures
// are logged and swallowed so the batch continues.
func (r *Runner) processObject(ctx context.Context, name string) (string, error) {
	log := r.log.With().Str("object", name).Logger()

	content, err := r.store.Download(ctx, name)
	if err != nil {
		log.Error().Err(err).Msg("Download failed, skipping object")
		return "", nil
	}

	if _, err := imgproc.Decode(content); err != nil {
		log.Warn().Err(err).Msg("Not a decodable image, skipping object")
		return "", nil
	}

	det, err := r.detector.Detect(ctx, content)
	if err != nil {
		return "", err
	}

	if det.Empty() {
		log.Debug().Msg("No text detected, retrying with preprocessed image")
		preprocessed, err := imgproc.Preprocess(content)
		if err != nil {
			return "", err
		}
		det, err = r.detector.Detect(ctx, preprocessed)
		if err != nil {
			return "", err
		}
	}

	if det.Empty() {
		log.Info().Msg("No text found after preprocessing")
		return "", nil
	}

	// Outlines are drawn on the original bytes, never the preprocessed ones.
	annotated, err := imgproc.DrawBoxes(content, det.Boxes())
	if err != nil {
		return "", err
	}

	outputName := OutputName(name)
	if err := r.store.Upload(ctx, outputName, annotated, "image/png"); err != nil {
		return "", err
	}
	if err := r.store.SetPublic(ctx, outputName); err != nil {
		return "", err
	}

	log.Info().
		Str("output", outputName).
		Int("boxes", len(det.Boxes())).
		Int("text_chars", len(det.Text)).
		Msg("Uploaded annotated image")

	return r.store.PublicURL(outputName), nil
}

// deleteOutputs removes every annotated output from the bucket and returns the
// listing with the deleted names filtered out.
func (r *Runner) deleteOutputs(ctx context.Context, names []string) ([]string, error) {
	remaining := make([]string, 0, len(names))
	for _, name := range names {
		if !IsOutput(name) {
			remaining = append(remaining, name)
			continue
		}
		r.log.Info().Str("object", name).Msg("Deleting existing annotated output")
		if err := r.store.Delete(ctx, name); err != nil {
			return nil, err
		}
	}
	return remaining, nil
}
