package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/neuromesh/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "neuromesh",
		Short: "Neuron activation simulation over a mesh-derived network",
		Long: `neuromesh turns the feature edges of a triangle mesh into a network of
neurons and synapses, runs the activation simulation on a fixed tick and
renders the result headlessly through the two-pass material pipeline.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newRunCmd(),
		newMeshCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func serveMetrics(addr string, handler http.Handler, log logging.Logger) *http.Server {
	if addr == "" || handler == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
