// Package cli implements the imgdedup command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "imgdedup",
	Short: "Near-duplicate image detection",
	Long: `imgdedup fingerprints images with a difference hash and finds
near-duplicates by Hamming distance. Collections are persisted to a local
directory, S3, MinIO or Redis.

Opaque assets are indexed by content hash; glTF and GLB models are
indexed by the images they embed.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Config file (env: IMGDEDUP_CONFIG)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(listCmd)
}

// exitError prints an error and exits
func exitError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// exitDuplicate signals a positive check to scripts.
func exitDuplicate() {
	os.Exit(2)
}
