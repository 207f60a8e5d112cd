// Command actorstage-demo spins up a Stage, spawns a counter actor, drives
// it through its Client wrapper, and serves /metrics — a runnable
// end-to-end smoke test of the runtime, in the shape of the teacher's own
// main.go (config load, engine construct, spawn, serve, graceful
// shutdown).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lguibr/actorstage/examples/counter"
	"github.com/lguibr/actorstage/stage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const defaultAddr = ":8080"

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "actorstage-demo",
		Short: "Runs a Stage hosting a counter actor and serves its metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML/TOML/JSON config file (optional)")
	return cmd
}

func run(configPath string) error {
	cfg := stage.DefaultConfig()
	if configPath != "" {
		loaded, err := stage.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("actorstage-demo: %w", err)
		}
		cfg = loaded
	}
	bindEnvOverrides(&cfg)

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("actorstage-demo: building logger: %w", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	s := stage.New(cfg, sugar)
	sugar.Info("stage constructed")

	ref, err := s.ActorFor(counter.Protocol, "")
	if err != nil {
		return fmt.Errorf("actorstage-demo: spawning counter: %w", err)
	}
	client := counter.NewClient(ref)

	ctx := context.Background()
	total, err := client.Increment(ctx, 1)
	if err != nil {
		return fmt.Errorf("actorstage-demo: first increment: %w", err)
	}
	sugar.Infow("counter incremented", "total", total)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	addr := os.Getenv("PORT")
	if addr == "" {
		addr = defaultAddr
	} else {
		addr = ":" + addr
	}

	server := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		sugar.Infow("serving", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			sugar.Errorw("server stopped", "error", err.Error())
		}
	case <-sigCh:
		sugar.Info("signal received, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	_ = s.Close(shutdownCtx)
	sugar.Info("stage shutdown complete")
	return nil
}

// bindEnvOverrides lets the ACTORSTAGE_METRICS_ENABLED environment variable
// override the loaded or default config without a second file round-trip;
// no other setting is read from the environment.
func bindEnvOverrides(cfg *stage.Config) {
	v := viper.New()
	v.SetEnvPrefix("actorstage")
	v.AutomaticEnv()
	if v.IsSet("metrics_enabled") {
		cfg.MetricsEnabled = v.GetBool("metrics_enabled")
	}
}
