package job

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tickerpulse/internal/cache"
	"tickerpulse/internal/domain"
	"tickerpulse/pkg/logger"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type SearchRunner interface {
	RunSearch(ctx context.Context, symbol, window string, sources []string) (domain.Outcome, error)
}

type SnapshotConfig struct {
	Symbols      []string
	Sources      []string
	Window       domain.Window
	PollInterval time.Duration
}

// SnapshotJob refreshes a cached search outcome for every watchlist
// symbol on a fixed interval.
type SnapshotJob struct {
	tracer trace.Tracer
	runner SearchRunner
	store  cache.Store
	cfg    SnapshotConfig
}

func NewSnapshotJob(tracer trace.Tracer, runner SearchRunner, store cache.Store, cfg SnapshotConfig) *SnapshotJob {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Minute
	}
	if cfg.Window == "" {
		cfg.Window = domain.WindowDay
	}
	return &SnapshotJob{tracer: tracer, runner: runner, store: store, cfg: cfg}
}

func snapshotKey(symbol string) string {
	return "snapshot:" + strings.ToUpper(strings.TrimSpace(symbol))
}

func (j *SnapshotJob) Start(ctx context.Context) {
	if j.runner == nil || j.store == nil || len(j.cfg.Symbols) == 0 {
		logger.Info("snapshot job disabled: no watchlist or cache")
		<-ctx.Done()
		return
	}

	j.runOnce(ctx)
	ticker := time.NewTicker(j.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *SnapshotJob) runOnce(ctx context.Context) {
	ctx, span := j.tracer.Start(ctx, "snapshot-job.run-once")
	defer span.End()

	stored := 0
	for _, symbol := range j.cfg.Symbols {
		if ctx.Err() != nil {
			return
		}
		if err := j.refresh(ctx, symbol); err != nil {
			logger.Warn("snapshot refresh failed", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		stored++
	}
	span.SetAttributes(attribute.Int("stored", stored))
	logger.Info("snapshot cycle complete",
		zap.Int("symbols", len(j.cfg.Symbols)),
		zap.Int("stored", stored),
	)
}

func (j *SnapshotJob) refresh(ctx context.Context, symbol string) error {
	outcome, err := j.runner.RunSearch(ctx, symbol, string(j.cfg.Window), j.cfg.Sources)
	if err != nil {
		return err
	}
	switch outcome.Kind {
	case domain.OutcomeOK, domain.OutcomeEmpty:
	default:
		return fmt.Errorf("%s: %s", outcome.Kind, outcome.Message)
	}
	// Keep a snapshot readable across a couple of missed cycles.
	return cache.SetJSON(ctx, j.store, snapshotKey(symbol), outcome, 3*j.cfg.PollInterval)
}

// Snapshot returns the most recent stored outcome for symbol.
func (j *SnapshotJob) Snapshot(ctx context.Context, symbol string) (domain.Outcome, bool, error) {
	var outcome domain.Outcome
	if j.store == nil {
		return outcome, false, nil
	}
	found, err := cache.GetJSON(ctx, j.store, snapshotKey(symbol), &outcome)
	return outcome, found, err
}
