package cmd

import (
	"fmt"
	"os"

	"github.com/Yates-Labs/scribe/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "scribe",
	Short: "Scribe - Chat with a document and download video transcripts",
	Long: `Scribe answers questions about a text document using retrieval-augmented generation,
and downloads caption transcripts for videos as plain text, subtitles or JSON.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

// Execute runs the root command
func Execute() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the --config file and applies --debug on top of it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Debug = true
	}
	return cfg, nil
}
