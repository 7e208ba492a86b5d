package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Bucknalla/go-vehicle-tracker/internal/config"
	"github.com/Bucknalla/go-vehicle-tracker/internal/logging"
	"github.com/Bucknalla/go-vehicle-tracker/internal/version"
	"github.com/Bucknalla/go-vehicle-tracker/track"
	"github.com/Bucknalla/go-vehicle-tracker/web/server"
	"github.com/rs/zerolog"
)

func main() {
	var configFile string
	var showVersion bool

	flag.StringVar(&configFile, "config", os.Getenv("TRACKER_CONFIG"), "YAML configuration file (optional, environment variables take precedence)")
	flag.BoolVar(&showVersion, "version", false, "Show version information and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nVehicle tracker server\n")
		fmt.Fprintf(os.Stderr, "Serves recorded vehicle routes by date and websocket playback sessions.\n")
		fmt.Fprintf(os.Stderr, "The PORT environment variable is required.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Vehicle tracker server failed")
	}
}

// run serves until ctx is cancelled, then shuts down within cfg.ShutdownTimeout.
func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	store, err := track.LoadStore(cfg.DataFile, logger)
	if err != nil {
		return err
	}

	if cfg.WatchData {
		go func() {
			if err := store.Watch(ctx); err != nil {
				logger.Error().Err(err).Msg("Route file watch stopped")
			}
		}()
	}

	srv := server.New(store, server.Options{
		Addr:            cfg.Addr(),
		StaticDir:       cfg.StaticDir,
		AllowedOrigins:  cfg.AllowedOrigins,
		DefaultInterval: cfg.DefaultInterval,
	}, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info().
		Str("version", version.String()).
		Str("data_file", cfg.DataFile).
		Int("records", store.Len()).
		Msg("Vehicle tracker server ready")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
