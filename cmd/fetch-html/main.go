// Command fetch-html acquires the tracking page once with a single strategy and
// dumps the raw HTML, for re-deriving landmarks when the site changes. Pages
// failing validation are still dumped, with a warning.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"icarry-tracker/internal/app"
	"icarry-tracker/internal/core/config"
	"icarry-tracker/internal/core/logger"
	"icarry-tracker/internal/features/tracking/domain"

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
	fs := pflag.NewFlagSet("fetch-html", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	strategyName := fs.String("strategy", string(domain.MethodBrowser), "acquisition method: browser or direct_http")
	outPath := fs.StringP("out", "o", "", "write the HTML to this file instead of stdout")
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

	method, err := domain.ParseMethod(*strategyName)
	if err != nil {
		l.Error("Invalid strategy", zap.Error(err))
		return exitUsage
	}

	query, err := domain.NewTrackingQuery(cfg.Tracking.Number, cfg.Tracking.URLTemplate)
	if err != nil {
		l.Error("Invalid tracking query", zap.Error(err))
		return exitUsage
	}

	detector := app.NewDetector(cfg)
	strategy, err := app.NewStrategy(method, cfg, detector)
	if err != nil {
		l.Error("Failed to build strategy", zap.Error(err))
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l.Info("Fetching page", zap.String("url", query.URL()), zap.String("method", string(method)))
	result := strategy.Acquire(ctx, query.URL())
	if !result.OK() {
		l.Error("Acquisition failed", zap.Error(result.Err))
		return exitFailure
	}

	switch {
	case detector.IsChallengeActive(result.HTML):
		l.Warn("Page still shows a challenge")
	case !strings.Contains(result.HTML, cfg.Tracking.ValidationMarker):
		l.Warn("Page lacks the validation marker", zap.String("marker", cfg.Tracking.ValidationMarker))
	}

	if *outPath == "" {
		fmt.Fprint(os.Stdout, result.HTML)
		return exitOK
	}
	if err := os.WriteFile(*outPath, []byte(result.HTML), 0o644); err != nil {
		l.Error("Failed to write HTML", zap.String("path", *outPath), zap.Error(err))
		return exitFailure
	}
	l.Info("HTML written", zap.String("path", *outPath), zap.Int("bytes", len(result.HTML)))
	return exitOK
}
