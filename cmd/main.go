package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/percona/linkseq/errors"
	"github.com/percona/linkseq/log"
	"github.com/percona/linkseq/metrics"
)

// Constants for the metrics server.
const (
	ServerReadTimeout       = 30 * time.Second
	ServerReadHeaderTimeout = 3 * time.Second
)

func main() {
	var (
		logLevelFlag string
		logJSON      bool
		logNoColor   bool
	)

	rootCmd := &cobra.Command{
		Use:   "seqstage",
		Short: "Stage documents in linked batches and bulk load them into MongoDB",
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logLevel, err := zerolog.ParseLevel(logLevelFlag)
			if err != nil {
				log.InitGlobals(0, logJSON, true).Fatal().Msg("Unknown log level")
			}

			lg := log.InitGlobals(logLevel, logJSON, logNoColor)
			ctx := lg.WithContext(context.Background())
			cmd.SetContext(ctx)
		},
	}

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "Log level")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Output log in JSON format")
	rootCmd.PersistentFlags().BoolVar(&logNoColor, "no-color", false, "Disable log color")

	rootCmd.AddCommand(newLoadCmd())

	err := rootCmd.Execute()
	if err != nil {
		log.New(zerolog.InfoLevel, logNoColor).Fatal().Err(err).Msg("seqstage")
	}
}

// startMetricsServer serves prometheus metrics on port until ctx is done.
func startMetricsServer(ctx context.Context, port string) error {
	reg := prometheus.NewRegistry()
	metrics.Init(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	lis, err := net.Listen("tcp", net.JoinHostPort("localhost", port))
	if err != nil {
		return errors.Wrap(err, "listen")
	}

	srv := &http.Server{
		Handler:           mux,
		ReadTimeout:       ServerReadTimeout,
		ReadHeaderTimeout: ServerReadHeaderTimeout,
	}

	go func() {
		log.Infof(ctx, "serving metrics at http://%s/metrics", lis.Addr())

		err := srv.Serve(lis)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, err, "metrics server")
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx) //nolint:contextcheck
	}()

	return nil
}

func openInput(path string) (*os.File, error) {
	if path == "" || path == "-" {
		return os.Stdin, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open input")
	}

	return f, nil
}
