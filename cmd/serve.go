package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"textboxer/internal/config"
	"textboxer/internal/detect"
	"textboxer/internal/logger"
	"textboxer/internal/server"
	"textboxer/internal/storage"
	"textboxer/internal/workflow"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP front end for the annotation pipeline",
	Long: `Start the web server. A GET on the root route lists the images in the
configured bucket, annotates any that do not have a __boxed.png output yet,
and renders an HTML gallery of the public URLs of all annotated images.

Required environment variables:
  ANNOTATION_BUCKET - Cloud Storage bucket holding the images
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string`,
	Example: `  # Serve on the port from SERVER_PORT (default 8080)
  textboxer serve

  # Serve on an explicit port
  textboxer serve --port 9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("port", "p", "", "Listen port (overrides SERVER_PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	port, _ := cmd.Flags().GetString("port")
	if port == "" {
		port = cfg.ServerPort
	}

	ctx := context.Background()

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

	runner := workflow.New(store, detector, workflow.WithRefresh(cfg.RefreshOutputs))
	srv := server.New(runner, cfg.ServerMode, cfg.AllowedOrigins)

	httpServer := &http.Server{
		Addr:    ":" + port,
		Handler: srv.Handler(),
	}

	// Shut down cleanly on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", port).
			Str("bucket", cfg.Bucket).
			Bool("refresh", cfg.RefreshOutputs).
			Msg("HTTP server listening")
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received interrupt signal, shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown failed")
			return err
		}
		return nil
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			return err
		}
		return nil
	}
}
