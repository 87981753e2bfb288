package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"voice-order-service/internal/client"
)

var (
	serverURL string
	timeout   time.Duration
	verbose   bool
	asJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "orderctl",
	Short: "Command line client for the voice order service",
	Long: `orderctl cleans transcripts, extracts structured orders and drives
recording sessions on a running voice order service.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
	With().Timestamp().Logger()

func setupLogging() {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger = logger.Level(level)
}

func newClient() *client.Client {
	logger.Debug().Str("server", serverURL).Msg("Using server")
	return client.New(serverURL)
}

// printResult writes v as indented JSON when --json is set, otherwise
// falls back to text.
func printResult(w io.Writer, v any, text string) error {
	if asJSON || text == "" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", envOr("ORDERCTL_SERVER", client.DefaultBaseURL), "service base URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print raw JSON responses")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
