package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"icarry-tracker/internal/core/logger"
	"icarry-tracker/internal/core/wait"
	"icarry-tracker/internal/features/tracking/domain"
	"icarry-tracker/internal/features/tracking/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoStrategies is returned when the service was built without any acquisition strategy.
var ErrNoStrategies = errors.New("no acquisition strategy configured")

// Mode selects how failed attempts are followed up.
type Mode string

const (
	// ModeRetrySame re-invokes the first strategy up to Policy.MaxAttempts times.
	ModeRetrySame Mode = "retry_same"
	// ModeFanOut invokes each strategy once, in order.
	ModeFanOut Mode = "fan_out"
)

// ParseMode converts a configuration value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeRetrySame, ModeFanOut:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown retry mode: %q", s)
	}
}

// Policy bounds the attempts of one query.
type Policy struct {
	Mode        Mode
	MaxAttempts int
	// Backoff is the fixed delay between two attempts.
	Backoff time.Duration
}

// DefaultPolicy is three attempts of the first strategy, five seconds apart.
func DefaultPolicy() Policy {
	return Policy{Mode: ModeRetrySame, MaxAttempts: 3, Backoff: 5 * time.Second}
}

// TrackingOutcome is a successful query.
type TrackingOutcome struct {
	// RunID correlates the outcome with its log lines.
	RunID  string
	Query  domain.TrackingQuery
	Record domain.TrackingRecord
	// Method is the strategy that produced Record.
	Method domain.Method
	// Attempts counts every attempt made, the successful one included.
	Attempts int
	// Failures holds the attempts that failed before the success.
	Failures []domain.AttemptFailure
}

// TrackingService runs acquisition strategies under a retry policy, validates
// what they return and extracts the tracking record.
type TrackingService struct {
	strategies []ports.ContentStrategy
	extractor  ports.RecordExtractor
	detector   ports.ChallengeDetector
	policy     Policy
	marker     string
	sleep      func(ctx context.Context, d time.Duration) error
	logger     *zap.Logger
}

// NewTrackingService creates a TrackingService. Strategies are tried in the given order;
// marker must be present in any page accepted as tracking content.
func NewTrackingService(
	strategies []ports.ContentStrategy,
	extractor ports.RecordExtractor,
	detector ports.ChallengeDetector,
	policy Policy,
	marker string,
) *TrackingService {
	return &TrackingService{
		strategies: strategies,
		extractor:  extractor,
		detector:   detector,
		policy:     policy,
		marker:     marker,
		sleep:      wait.Sleep,
		logger:     logger.Get(),
	}
}

// plan lists the strategy of every attempt the policy allows, in order.
func (s *TrackingService) plan() []ports.ContentStrategy {
	if s.policy.Mode == ModeFanOut {
		return s.strategies
	}

	attempts := s.policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	plan := make([]ports.ContentStrategy, attempts)
	for i := range plan {
		plan[i] = s.strategies[0]
	}
	return plan
}

// Track acquires and extracts the tracking record for query. The only error
// returned after attempts were made is *domain.ExhaustedRetriesError, unless
// ctx is cancelled first.
func (s *TrackingService) Track(ctx context.Context, query domain.TrackingQuery) (*TrackingOutcome, error) {
	if len(s.strategies) == 0 {
		return nil, ErrNoStrategies
	}

	runID := uuid.NewString()
	log := s.logger.With(
		zap.String("run_id", runID),
		zap.String("tracking_number", query.Number()),
	)

	plan := s.plan()
	log.Info("Tracking started",
		zap.String("url", query.URL()),
		zap.String("mode", string(s.policy.Mode)),
		zap.Int("max_attempts", len(plan)),
	)

	var failures []domain.AttemptFailure
	for i, strategy := range plan {
		attempt := i + 1

		if i > 0 {
			log.Debug("Backing off", zap.Duration("delay", s.policy.Backoff))
			if err := s.sleep(ctx, s.policy.Backoff); err != nil {
				return nil, fmt.Errorf("tracking aborted after %d attempts: %w", i, err)
			}
		}

		start := time.Now()
		record, err := s.attempt(ctx, strategy, query)
		if err == nil {
			log.Info("Tracking succeeded",
				zap.Int("attempt", attempt),
				zap.String("method", string(strategy.Method())),
				zap.Duration("duration", time.Since(start)),
			)
			return &TrackingOutcome{
				RunID:    runID,
				Query:    query,
				Record:   record,
				Method:   strategy.Method(),
				Attempts: attempt,
				Failures: failures,
			}, nil
		}

		failures = append(failures, domain.AttemptFailure{
			Attempt: attempt,
			Method:  strategy.Method(),
			Err:     err,
		})
		log.Warn("Attempt failed",
			zap.Int("attempt", attempt),
			zap.String("method", string(strategy.Method())),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("tracking aborted after %d attempts: %w", attempt, ctxErr)
		}
	}

	exhausted := &domain.ExhaustedRetriesError{Failures: failures}
	log.Error("Tracking failed", zap.Error(exhausted))
	return nil, exhausted
}

// attempt runs one strategy and turns its content into a record.
func (s *TrackingService) attempt(ctx context.Context, strategy ports.ContentStrategy, query domain.TrackingQuery) (domain.TrackingRecord, error) {
	result := strategy.Acquire(ctx, query.URL())
	if !result.OK() {
		return domain.TrackingRecord{}, result.Err
	}

	// A challenge page never carries the marker; name it before the generic check.
	if s.detector.IsChallengeActive(result.HTML) {
		return domain.TrackingRecord{}, fmt.Errorf("%w: challenge page returned", domain.ErrValidation)
	}
	if !strings.Contains(result.HTML, s.marker) {
		return domain.TrackingRecord{}, fmt.Errorf("%w: marker %q not found", domain.ErrValidation, s.marker)
	}

	record := s.extractor.Extract(result.HTML)
	if !record.HasAnyField() {
		return domain.TrackingRecord{}, domain.ErrNoTrackingData
	}
	return record, nil
}
