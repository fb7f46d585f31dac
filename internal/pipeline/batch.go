package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/xcbat/binskim/internal/model"
	"golang.org/x/sync/errgroup"
)

// BatchProcessor handles concurrent analysis of multiple artifacts.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding
// batch functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-artifact execution
// 2. It allows different batch strategies (e.g., rate limiting)
// 3. It provides cleaner separation of concerns
//
// No ordering is required between rules on the same artifact, and rules
// hold no mutable state, so the only coordination needed is the bounded
// goroutine count and the results slice.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each artifact.
	// We use a factory to ensure each scan gets a fresh pipeline instance.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent scans.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed scan reports.
	// Access is synchronized via mutex.
	results []*model.BinaryScanReport
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent scans.
// Default is 10 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each artifact to create a
// fresh pipeline instance. This ensures that pipeline state doesn't leak
// between scans.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     10,
		results:         make([]*model.BinaryScanReport, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch analyzes multiple artifacts concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a hand-rolled
// worker pool because it's simpler and errgroup handles the concurrency
// correctly. Each artifact gets its own goroutine, but only 'concurrency'
// goroutines run simultaneously.
//
// Returns all reports collected, even for artifacts that failed to load.
// The error return indicates if the batch was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, artifacts []string) ([]*model.BinaryScanReport, error) {
	bp.logger.Info("starting batch scan",
		"total_artifacts", len(artifacts),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain input order.
	bp.results = make([]*model.BinaryScanReport, len(artifacts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, artifact := range artifacts {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Debug("scanning artifact",
				"artifact", artifact,
				"index", i+1,
				"total", len(artifacts),
			)

			report := model.NewBinaryScanReport(artifact)

			p := bp.pipelineFactory()
			err := p.Execute(ctx, report)

			// Store result regardless of error; the report carries the
			// error information if loading failed.
			bp.mu.Lock()
			bp.results[i] = report
			bp.mu.Unlock()

			if err != nil {
				bp.logger.Warn("scan failed",
					"artifact", artifact,
					"error", err,
				)
				// Don't return the error to errgroup - the remaining
				// artifacts should still be scanned.
				return nil
			}

			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch scan complete",
		"total_artifacts", len(artifacts),
		"elapsed", time.Since(startTime),
	)

	return bp.results, err
}

// ProcessBatchWithCallback analyzes multiple artifacts and calls a callback
// for each completed scan. This is useful for streaming results.
//
// The callback receives the report and the index of the artifact in the
// original slice. The callback is called from the goroutine that completed
// the scan, so it should be thread-safe if it accesses shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	artifacts []string,
	callback func(report *model.BinaryScanReport, index int),
) error {
	bp.logger.Info("starting batch scan with callback",
		"total_artifacts", len(artifacts),
		"concurrency", bp.concurrency,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, artifact := range artifacts {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			report := model.NewBinaryScanReport(artifact)
			p := bp.pipelineFactory()
			_ = p.Execute(ctx, report) //nolint:errcheck // Error is stored in report

			callback(report, i)

			return nil
		})
	}

	return g.Wait()
}
