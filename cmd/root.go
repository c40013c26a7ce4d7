package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"textboxer/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "textboxer",
	Short: "Textboxer - draw text bounding boxes on bucket images",
	Long: `Textboxer annotates the images stored in a Cloud Storage bucket: each image
is sent to the Google Cloud Vision text-detection API, the detected text
regions are outlined, and the annotated copy is uploaded back to the bucket
under a __boxed.png name. Inputs that already have an annotated output are
skipped, so repeated runs are idempotent.

Use "serve" to run the web front end, or "annotate" for a one-off batch.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("Textboxer executed")

		fmt.Println("Welcome to Textboxer!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
