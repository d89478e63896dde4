// Package sync pushes dirty checklist responses from the local cache to the
// server and reconciles the cache with server truth afterwards.
package sync

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"certflow/internal/apperr"
	"certflow/internal/domain"
)

// Pusher submits one checklist response to the server. Applied is false when
// the server already holds a newer copy; the local write is then stale and
// must not be retried.
type Pusher interface {
	Push(ctx context.Context, item domain.ChecklistItem) (applied bool, err error)
	Fetch(ctx context.Context, auditID string) ([]domain.ChecklistItem, error)
}

// Cache is the slice of the local store the syncer needs.
type Cache interface {
	DirtyItems(ctx context.Context, auditID string) ([]domain.ChecklistItem, error)
	DirtyAuditIDs(ctx context.Context) ([]string, error)
	MarkClean(ctx context.Context, id string) error
	ReplaceFromServer(ctx context.Context, auditID string, items []domain.ChecklistItem) error
}

// Report summarizes one sync pass.
type Report struct {
	Pushed  int // accepted by the server
	Skipped int // server copy was newer, local write dropped
	Failed  int // push failed after retries, still dirty
}

type Syncer struct {
	cache   Cache
	pusher  Pusher
	log     *zap.Logger
	backoff time.Duration
}

func New(cache Cache, pusher Pusher, log *zap.Logger) *Syncer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Syncer{cache: cache, pusher: pusher, log: log, backoff: 500 * time.Millisecond}
}

// Sync pushes the dirty items of one audit oldest first, then refreshes the
// cache from the server. A stale item clears its dirty flag too; the server
// decided, and holding the flag would re-push a losing write forever.
func (s *Syncer) Sync(ctx context.Context, auditID string) (Report, error) {
	var report Report

	items, err := s.cache.DirtyItems(ctx, auditID)
	if err != nil {
		return report, err
	}

	for _, item := range items {
		applied, err := s.pushWithRetry(ctx, item)
		if err != nil {
			report.Failed++
			s.log.Warn("push failed, item stays dirty",
				zap.String("item_id", item.ID),
				zap.String("audit_id", auditID),
				zap.Error(err))
			continue
		}
		if applied {
			report.Pushed++
		} else {
			report.Skipped++
			s.log.Info("local write superseded by server",
				zap.String("item_id", item.ID),
				zap.String("audit_id", auditID))
		}
		if err := s.cache.MarkClean(ctx, item.ID); err != nil {
			return report, err
		}
	}

	serverItems, err := s.pusher.Fetch(ctx, auditID)
	if err != nil {
		return report, err
	}
	if err := s.cache.ReplaceFromServer(ctx, auditID, serverItems); err != nil {
		return report, err
	}
	return report, nil
}

// SyncAll runs Sync for every audit with dirty items.
func (s *Syncer) SyncAll(ctx context.Context) (Report, error) {
	var total Report
	auditIDs, err := s.cache.DirtyAuditIDs(ctx)
	if err != nil {
		return total, err
	}
	for _, auditID := range auditIDs {
		report, err := s.Sync(ctx, auditID)
		total.Pushed += report.Pushed
		total.Skipped += report.Skipped
		total.Failed += report.Failed
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// pushWithRetry retries transient failures with fibonacci backoff. Taxonomy
// errors other than remote failures are terminal; retrying a forbidden or
// validation response cannot succeed.
func (s *Syncer) pushWithRetry(ctx context.Context, item domain.ChecklistItem) (bool, error) {
	var applied bool
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(s.backoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		applied, err = s.pusher.Push(ctx, item)
		if err == nil {
			return nil
		}
		switch apperr.CodeOf(err) {
		case apperr.CodeRemote, apperr.CodeUnknown:
			return retry.RetryableError(err)
		default:
			return err
		}
	})
	return applied, err
}
