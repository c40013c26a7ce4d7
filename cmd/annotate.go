package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"textboxer/internal/config"
	"textboxer/internal/detect"
	"textboxer/internal/logger"
	"textboxer/internal/storage"
	"textboxer/internal/workflow"
)

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Run one annotation batch over the bucket",
	Long: `Process the configured bucket once from the command line: every eligible
image without an existing __boxed.png output is sent to the Google Cloud
Vision text-detection API, annotated, and uploaded back to the bucket.

Inputs whose annotated output already exists are skipped. Use --refresh to
delete all existing outputs first and re-annotate everything.

Required environment variables:
  ANNOTATION_BUCKET - Cloud Storage bucket holding the images
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string`,
	Example: `  # Annotate new images and print the public URLs
  textboxer annotate

  # Re-annotate everything from scratch
  textboxer annotate --refresh

  # Output the URL list as JSON with a custom timeout
  textboxer annotate --json --timeout 600`,
	Args: cobra.NoArgs,
	RunE: runAnnotate,
}

// annotateOutput is the JSON output structure when --json flag is used
type annotateOutput struct {
	Bucket      string    `json:"bucket"`
	ImageURLs   []string  `json:"image_urls"`
	ProcessedAt time.Time `json:"processed_at"`
	Duration    string    `json:"duration"`
}

func init() {
	rootCmd.AddCommand(annotateCmd)

	annotateCmd.Flags().Bool("refresh", false, "Delete existing annotated outputs and re-annotate everything")
	annotateCmd.Flags().Bool("json", false, "Output as JSON")
	annotateCmd.Flags().Int("timeout", 300, "Batch timeout in seconds")
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("annotate")

	refresh, _ := cmd.Flags().GetBool("refresh")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("bucket", cfg.Bucket).
		Bool("refresh", refresh || cfg.RefreshOutputs).
		Int("timeout", timeoutSecs).
		Msg("Starting annotation batch")

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	store, err := storage.NewGCSObjectStore(ctx, cfg.Bucket)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create object store")
		return fmt.Errorf("failed to create object store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close object store")
		}
	}()

	detector, err := detect.NewGoogleVisionDetector(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create text detector")
		return fmt.Errorf("failed to create text detector: %w", err)
	}
	defer func() {
		if closeErr := detector.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close text detector")
		}
	}()

	runner := workflow.New(store, detector, workflow.WithRefresh(refresh || cfg.RefreshOutputs))

	startTime := time.Now()
	urls, err := runner.Run(ctx)
	if err != nil {
		return handleAnnotateError(err, log)
	}

	duration := time.Since(startTime)
	log.Info().
		Int("images", len(urls)).
		Dur("duration", duration).
		Msg("Annotation batch completed successfully")

	if jsonOutput {
		output := annotateOutput{
			Bucket:      cfg.Bucket,
			ImageURLs:   urls,
			ProcessedAt: time.Now(),
			Duration:    duration.String(),
		}
		data, err := json.MarshalIndent(output, "", "  ")
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal JSON output")
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	for _, url := range urls {
		fmt.Println(url)
	}
	return nil
}

// createContextWithTimeout creates a context with timeout and signal handling
func createContextWithTimeout(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling annotation batch")
			cancel()
		case <-ctx.Done():
			// Context completed normally
		}
	}()

	return ctx, cancel
}

// handleAnnotateError provides user-friendly error messages for batch failures
func handleAnnotateError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Annotation batch failed")

	errStr := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("annotation batch timed out. Try increasing --timeout or processing fewer images")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("annotation batch was canceled")
	case errors.Is(err, detect.ErrDetectionFailed):
		return fmt.Errorf("the text-detection service reported an error; the batch was aborted: %w", err)
	case errors.Is(err, detect.ErrImageTooLarge):
		return fmt.Errorf("an image exceeds the Vision API size limit (20MB): %w", err)
	case errors.Is(err, storage.ErrMissingCredentials) || errors.Is(err, detect.ErrMissingCredentials):
		return fmt.Errorf("Google Cloud credentials not configured. Please set one of:\n\n"+
			"1. Export GOOGLE_APPLICATION_CREDENTIALS with path to service account JSON:\n"+
			"   export GOOGLE_APPLICATION_CREDENTIALS=/path/to/service-account-key.json\n\n"+
			"2. Export GOOGLE_CREDENTIALS with inline JSON:\n"+
			"   export GOOGLE_CREDENTIALS='{\"type\":\"service_account\",...}'\n\n"+
			"Original error: %w", err)
	case strings.Contains(errStr, "Unauthenticated") ||
		strings.Contains(errStr, "invalid_grant") ||
		strings.Contains(errStr, "auth:"):
		return fmt.Errorf("Google Cloud authentication failed. Please check your credentials. Original error: %v", err)
	case strings.Contains(errStr, "PERMISSION_DENIED") ||
		strings.Contains(errStr, "forbidden"):
		return fmt.Errorf("permission denied. Ensure the service account can read and write the bucket and use the Vision API")
	case strings.Contains(errStr, "QUOTA_EXCEEDED") ||
		strings.Contains(errStr, "quota"):
		return fmt.Errorf("Google Cloud Vision API quota exceeded. Check your project quotas in the Google Cloud Console")
	default:
		return fmt.Errorf("annotation batch failed: %w", err)
	}
}
