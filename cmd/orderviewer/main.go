// orderviewer consumes published transcript and order events from Kafka
// and shows them live in a browser.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"voice-order-service/internal/config"
	"voice-order-service/internal/observability/logging"
	"voice-order-service/internal/viewer"
)

var (
	port    string
	brokers string
	topics  []string
	since   time.Duration
)

var rootCmd = &cobra.Command{
	Use:          "orderviewer",
	Short:        "Show published voice order events in a browser",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runViewer,
}

func init() {
	defaults := config.Default()

	rootCmd.Flags().StringVar(&port, "port", "8081", "HTTP server port")
	rootCmd.Flags().StringVar(&brokers, "brokers", strings.Join(defaults.Kafka.Brokers, ","), "Kafka brokers (comma-separated)")
	rootCmd.Flags().StringSliceVar(&topics, "topic", []string{defaults.Kafka.TopicTranscript, defaults.Kafka.TopicOrder}, "topics to consume")
	rootCmd.Flags().DurationVar(&since, "since", time.Hour, "replay messages newer than this")
}

func main() {
	lc := logging.DefaultConfig()
	lc.Format = "console"
	logging.Init(lc)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runViewer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := viewer.NewHub()
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           viewer.NewRouter(hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	for _, topic := range topics {
		reader := viewer.NewReader(gctx, strings.Split(brokers, ","), topic, since)
		g.Go(func() error {
			return viewer.Consume(gctx, topic, reader, hub, time.Second)
		})
	}
	g.Go(func() error {
		log.Info().
			Str("addr", "http://localhost:"+port).
			Str("brokers", brokers).
			Strs("topics", topics).
			Msg("Order viewer starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
