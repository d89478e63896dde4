package sync

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"certflow/internal/apperr"
	"certflow/internal/domain"
	"certflow/internal/localstore"
)

type fakePusher struct {
	applied   map[string]bool // item id -> server accepts
	pushErr   map[string]error
	server    map[string]domain.ChecklistItem
	pushCalls map[string]int
}

func newFakePusher() *fakePusher {
	return &fakePusher{
		applied:   map[string]bool{},
		pushErr:   map[string]error{},
		server:    map[string]domain.ChecklistItem{},
		pushCalls: map[string]int{},
	}
}

func (f *fakePusher) Push(_ context.Context, item domain.ChecklistItem) (bool, error) {
	f.pushCalls[item.ID]++
	if err := f.pushErr[item.ID]; err != nil {
		return false, err
	}
	applied, ok := f.applied[item.ID]
	if !ok {
		applied = true
	}
	if applied {
		item.Dirty = false
		f.server[item.ID] = item
	}
	return applied, nil
}

func (f *fakePusher) Fetch(_ context.Context, auditID string) ([]domain.ChecklistItem, error) {
	var items []domain.ChecklistItem
	for _, item := range f.server {
		if item.AuditID == auditID {
			items = append(items, item)
		}
	}
	return items, nil
}

func openStore(t *testing.T) *localstore.Store {
	t.Helper()
	store, err := localstore.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func record(t *testing.T, store *localstore.Store, id, auditID string, at time.Time) {
	t.Helper()
	require.NoError(t, store.RecordResponse(context.Background(), domain.ChecklistItem{
		ID:          id,
		AuditID:     auditID,
		Section:     "7.1",
		Requirement: "Calibration records are current",
		Status:      domain.ChecklistPass,
		RecordedBy:  "auditor-1",
		UpdatedAt:   at,
	}))
}

func newSyncer(store *localstore.Store, pusher Pusher) *Syncer {
	s := New(store, pusher, zap.NewNop())
	s.backoff = time.Millisecond
	return s
}

func TestSyncPushesDirtyAndClearsFlags(t *testing.T) {
	store := openStore(t)
	pusher := newFakePusher()
	ctx := context.Background()
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	record(t, store, "item-1", "aud-1", at)
	record(t, store, "item-2", "aud-1", at.Add(time.Minute))

	report, err := newSyncer(store, pusher).Sync(ctx, "aud-1")
	require.NoError(t, err)
	assert.Equal(t, Report{Pushed: 2}, report)

	dirty, err := store.DirtyItems(ctx, "aud-1")
	require.NoError(t, err)
	assert.Empty(t, dirty)
	assert.Len(t, pusher.server, 2)
}

func TestSyncStaleWriteClearsDirtyWithoutPush(t *testing.T) {
	store := openStore(t)
	pusher := newFakePusher()
	pusher.applied["item-1"] = false // server copy is newer
	ctx := context.Background()

	record(t, store, "item-1", "aud-1", time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	report, err := newSyncer(store, pusher).Sync(ctx, "aud-1")
	require.NoError(t, err)
	assert.Equal(t, Report{Skipped: 1}, report)

	// the losing write must not stay queued for the next pass
	dirty, err := store.DirtyItems(ctx, "aud-1")
	require.NoError(t, err)
	assert.Empty(t, dirty)
}

func TestSyncRetriesTransientFailures(t *testing.T) {
	store := openStore(t)
	pusher := newFakePusher()
	pusher.pushErr["item-1"] = apperr.Remote("push checklist item", assert.AnError)
	ctx := context.Background()

	record(t, store, "item-1", "aud-1", time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	report, err := newSyncer(store, pusher).Sync(ctx, "aud-1")
	require.NoError(t, err)
	assert.Equal(t, Report{Failed: 1}, report)
	assert.Equal(t, 4, pusher.pushCalls["item-1"], "initial attempt plus three retries")

	// the item survives for the next sync pass
	dirty, err := store.DirtyItems(ctx, "aud-1")
	require.NoError(t, err)
	require.Len(t, dirty, 1)
	assert.Equal(t, "item-1", dirty[0].ID)
}

func TestSyncDoesNotRetryTerminalErrors(t *testing.T) {
	store := openStore(t)
	pusher := newFakePusher()
	pusher.pushErr["item-1"] = apperr.Forbidden("client", "record findings")
	ctx := context.Background()

	record(t, store, "item-1", "aud-1", time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	report, err := newSyncer(store, pusher).Sync(ctx, "aud-1")
	require.NoError(t, err)
	assert.Equal(t, Report{Failed: 1}, report)
	assert.Equal(t, 1, pusher.pushCalls["item-1"])
}

func TestSyncRefreshesCacheFromServer(t *testing.T) {
	store := openStore(t)
	pusher := newFakePusher()
	ctx := context.Background()
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	// another auditor's response exists only on the server
	pusher.server["item-9"] = domain.ChecklistItem{
		ID: "item-9", AuditID: "aud-1", Section: "8.2",
		Requirement: "Records retained", Status: domain.ChecklistPass,
		RecordedBy: "auditor-2", UpdatedAt: at,
	}
	record(t, store, "item-1", "aud-1", at)

	_, err := newSyncer(store, pusher).Sync(ctx, "aud-1")
	require.NoError(t, err)

	items, err := store.ListByAudit(ctx, "aud-1")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestSyncAllCoversEveryDirtyAudit(t *testing.T) {
	store := openStore(t)
	pusher := newFakePusher()
	ctx := context.Background()
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	record(t, store, "item-1", "aud-1", at)
	record(t, store, "item-2", "aud-2", at)

	report, err := newSyncer(store, pusher).SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Pushed: 2}, report)

	ids, err := store.DirtyAuditIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
