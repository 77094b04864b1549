// Command pdfarena serves the comparative PDF generation API over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/corvand/pdfarena"
	"github.com/corvand/pdfarena/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

const shutdownGrace = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()
	if *showVersion {
		fmt.Println("pdfarena", Version)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		return err
	}

	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		logger.Debug().Msgf(format, args...)
	}))

	svc, err := pdfarena.New(
		pdfarena.WithTimeout(cfg.Render.Timeout),
		pdfarena.WithEngineBin(cfg.Render.EngineBin),
		pdfarena.WithPoolSize(cfg.Render.PoolSize),
		pdfarena.WithAssetsDir(cfg.Render.AssetsDir),
		pdfarena.WithFontPath(cfg.Render.FontPath),
		pdfarena.WithTemplate(cfg.Render.Template),
		pdfarena.WithPageSettings(&pdfarena.PageSettings{
			Size:        cfg.Render.PageSize,
			Orientation: cfg.Render.Orientation,
			Margin:      cfg.Render.Margin,
		}),
		pdfarena.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil {
			logger.Error().Err(cerr).Msg("service close")
		}
	}()

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      pdfarena.NewServer(svc, logger).Handler(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("version", Version).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func buildLogger(cfg config.LoggingConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parse log level: %w", err)
	}

	var logger zerolog.Logger
	if strings.EqualFold(cfg.Format, "console") {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger(), nil
}
