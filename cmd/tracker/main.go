package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"icarry-tracker/internal/app"
	"icarry-tracker/internal/core/config"
	"icarry-tracker/internal/core/logger"
	"icarry-tracker/internal/features/tracking/domain"
	"icarry-tracker/internal/features/tracking/report"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("tracker", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	cfg, err := config.Load(".", fs)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return exitUsage
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel, cfg.Debug); err != nil {
		log.Printf("Failed to init logger: %v", err)
		return exitUsage
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Tracker starting",
		zap.String("environment", cfg.Environment),
		zap.String("retry_mode", cfg.Retry.Mode),
		zap.Strings("strategies", cfg.Retry.Strategies),
		zap.Bool("debug", cfg.Debug),
	)

	format, err := report.ParseFormat(cfg.OutputFormat)
	if err != nil {
		l.Error("Invalid output format", zap.Error(err))
		return exitUsage
	}

	query, err := domain.NewTrackingQuery(cfg.Tracking.Number, cfg.Tracking.URLTemplate)
	if err != nil {
		l.Error("Invalid tracking query", zap.Error(err))
		return exitUsage
	}

	trackingSvc, err := app.NewTrackingService(cfg)
	if err != nil {
		l.Error("Failed to assemble tracking pipeline", zap.Error(err))
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer := report.NewPrinter(os.Stdout, format)

	outcome, err := trackingSvc.Track(ctx, query)
	if err != nil {
		if perr := printer.PrintFailure(err); perr != nil {
			l.Error("Failed to print failure", zap.Error(perr))
		}
		return exitFailure
	}

	if err := printer.PrintOutcome(outcome); err != nil {
		l.Error("Failed to print report", zap.Error(err))
		return exitFailure
	}
	return exitOK
}
