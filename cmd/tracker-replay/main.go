package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bucknalla/go-vehicle-tracker/internal/logging"
	"github.com/Bucknalla/go-vehicle-tracker/internal/version"
	"github.com/Bucknalla/go-vehicle-tracker/track"
	"github.com/rs/zerolog"
	"go.bug.st/serial"
)

// Common errors returned by replay configuration and playback
var (
	ErrNoSource        = errors.New("either -date or -gpx must be given")
	ErrInvalidStartAt  = errors.New("start-at must be between 0.0 and 1.0")
	ErrInvalidBaudRate = errors.New("baud rate must be positive")
	ErrEmptyRoute      = errors.New("route has no records")
)

type replayConfig struct {
	ServerURL  string
	Date       string
	GPXFile    string
	Interval   time.Duration
	Loop       bool
	StartAt    float64
	SerialPort string
	BaudRate   int
	Timeout    time.Duration
	LogLevel   string
}

func (c *replayConfig) Validate() error {
	if c.Date == "" && c.GPXFile == "" {
		return ErrNoSource
	}
	if c.StartAt < 0 || c.StartAt > 1 {
		return ErrInvalidStartAt
	}
	if c.BaudRate <= 0 {
		return ErrInvalidBaudRate
	}
	return nil
}

func main() {
	var cfg replayConfig
	var showVersion bool

	flag.BoolVar(&showVersion, "version", false, "Show version information and exit")
	flag.StringVar(&cfg.ServerURL, "server", "http://localhost:8080", "Base URL of the vehicle tracker server")
	flag.StringVar(&cfg.Date, "date", "", "Date of the route to replay (YYYY-MM-DD)")
	flag.StringVar(&cfg.GPXFile, "gpx", "", "GPX file to replay instead of querying the server")
	flag.DurationVar(&cfg.Interval, "interval", track.DefaultInterval, "Time between route records (clamped to 50ms-1m)")
	flag.BoolVar(&cfg.Loop, "loop", false, "Restart from the first record after the last one")
	flag.Float64Var(&cfg.StartAt, "start-at", 0, "Fraction of the route to start from (0.0-1.0)")
	flag.StringVar(&cfg.SerialPort, "serial", "", "Serial port for NMEA output (e.g., /dev/ttyUSB0, COM1)")
	flag.IntVar(&cfg.BaudRate, "baud", 9600, "Serial port baud rate")
	flag.DurationVar(&cfg.Timeout, "timeout", 10*time.Second, "Route query timeout")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nVehicle route replay\n")
		fmt.Fprintf(os.Stderr, "Plays back a recorded vehicle route as NMEA sentences.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Log to stderr so it doesn't interfere with NMEA output
	logger, err := logging.New(os.Stderr, cfg.LogLevel, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid options")
	}

	var nmeaWriter io.Writer = os.Stdout
	if cfg.SerialPort != "" {
		mode := &serial.Mode{
			BaudRate: cfg.BaudRate,
			Parity:   serial.NoParity,
			DataBits: 8,
			StopBits: serial.OneStopBit,
		}
		port, err := serial.Open(cfg.SerialPort, mode)
		if err != nil {
			logger.Fatal().Err(err).Str("port", cfg.SerialPort).Msg("Failed to open serial port")
		}
		defer port.Close()
		nmeaWriter = port
		logger.Info().Str("port", cfg.SerialPort).Int("baud", cfg.BaudRate).Msg("Opened serial port")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, nmeaWriter, nil, logger); err != nil {
		logger.Error().Err(err).Msg("Replay failed")
		stop()
		os.Exit(1)
	}
}

// loadRoute reads the route from the GPX file when one is given, otherwise from the server.
func loadRoute(ctx context.Context, cfg replayConfig) (track.Route, error) {
	if cfg.GPXFile != "" {
		return track.ReadGPXFile(cfg.GPXFile)
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	return track.NewClient(cfg.ServerURL, cfg.Timeout).FetchRoute(ctx, cfg.Date)
}

// run replays the route, writing every newly reached record to out as NMEA.
// It returns when the route ends (unless looping) or ctx is cancelled.
func run(ctx context.Context, cfg replayConfig, out io.Writer, clock track.Clock, logger zerolog.Logger) error {
	route, err := loadRoute(ctx, cfg)
	if err != nil {
		return err
	}
	if len(route) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyRoute, cfg.Date)
	}

	player := track.NewPlayer(clock, cfg.Interval, logger)
	defer player.Close()

	frames := make(chan track.Frame, 16)
	stopped := make(chan struct{})
	defer close(stopped)
	if err := player.AddCallback(func(f track.Frame) {
		select {
		case frames <- f:
		case <-stopped:
		}
	}); err != nil {
		return err
	}

	start := func() error {
		if _, err := player.Load(route); err != nil {
			return err
		}
		if cfg.StartAt > 0 {
			_, err := player.Seek(cfg.StartAt)
			return err
		}
		_, err := player.Toggle()
		return err
	}

	if err := start(); err != nil {
		return err
	}
	logger.Info().
		Int("records", len(route)).
		Dur("interval", track.ClampInterval(cfg.Interval)).
		Bool("loop", cfg.Loop).
		Msg("Starting route replay")

	nmea := track.NewNMEAWriter(out)
	lastIndex := -1
	started := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-frames:
			if f.Running {
				started = true
			}
			if started && f.Current != nil && f.Index != lastIndex {
				if err := nmea.WriteFrame(f); err != nil {
					return err
				}
				lastIndex = f.Index
				logger.Debug().
					Int("index", f.Index).
					Int("total", f.Total).
					Str("location", f.Current.Location).
					Msg("Position")
			}

			if !started || f.Running || f.Index != f.Total-1 {
				continue
			}
			if !cfg.Loop {
				logger.Info().Msg("Route replay complete")
				return nil
			}
			logger.Info().Msg("Route replay complete, restarting")
			started = false
			lastIndex = -1
			if err := start(); err != nil {
				return err
			}
		}
	}
}
