// Package syncrunner periodically pushes the offline cache to the server.
package syncrunner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"certflow/internal/localstore/sync"
)

// Runner drives the syncer on a fixed interval while the device has work.
type Runner struct {
	syncer   *sync.Syncer
	interval time.Duration
	log      *zap.Logger
}

func New(syncer *sync.Syncer, interval time.Duration, log *zap.Logger) *Runner {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{syncer: syncer, interval: interval, log: log}
}

// Run loops until the context is cancelled. A failed pass is logged and
// retried on the next tick; dirty items survive in the cache either way.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := r.syncer.SyncAll(ctx)
			if err != nil {
				r.log.Warn("sync pass failed", zap.Error(err))
				continue
			}
			if report.Pushed > 0 || report.Skipped > 0 || report.Failed > 0 {
				r.log.Info("sync pass finished",
					zap.Int("pushed", report.Pushed),
					zap.Int("skipped", report.Skipped),
					zap.Int("failed", report.Failed))
			}
		}
	}
}
