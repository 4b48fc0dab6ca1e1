package checkpoint

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillmail/syncengine/dto"
	"github.com/quillmail/syncengine/internal/enum"
	er "github.com/quillmail/syncengine/internal/errors"
	"github.com/quillmail/syncengine/internal/logger"
	"github.com/quillmail/syncengine/internal/models"
	"github.com/quillmail/syncengine/internal/utils"
)

// fakeCheckpointRepo is an in-memory stand-in for the postgres repository.
// It tracks Save calls so tests can assert the batching commit policy.
type fakeCheckpointRepo struct {
	mu        sync.Mutex
	latest    map[string]*models.SyncCheckpoint
	saveCalls int
	saveErr   error
}

func newFakeCheckpointRepo() *fakeCheckpointRepo {
	return &fakeCheckpointRepo{latest: make(map[string]*models.SyncCheckpoint)}
}

func (f *fakeCheckpointRepo) key(accountID, folderID string) string {
	return accountID + "/" + folderID
}

func (f *fakeCheckpointRepo) GetLatest(ctx context.Context, accountID, folderID string) (*models.SyncCheckpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp, ok := f.latest[f.key(accountID, folderID)]
	if !ok {
		return nil, nil
	}
	clone := *cp
	return &clone, nil
}

func (f *fakeCheckpointRepo) Save(ctx context.Context, checkpoint *models.SyncCheckpoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	if f.saveErr != nil {
		return f.saveErr
	}
	clone := *checkpoint
	f.latest[f.key(checkpoint.AccountID, checkpoint.FolderID)] = &clone
	return nil
}

func (f *fakeCheckpointRepo) DeleteForAccount(ctx context.Context, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key := range f.latest {
		if len(key) >= len(accountID)+1 && key[:len(accountID)+1] == accountID+"/" {
			delete(f.latest, key)
		}
	}
	return nil
}

func (f *fakeCheckpointRepo) GetHistory(ctx context.Context, accountID, folderID string, limit int) ([]*models.SyncCheckpoint, error) {
	cp, _ := f.GetLatest(ctx, accountID, folderID)
	if cp == nil {
		return nil, nil
	}
	return []*models.SyncCheckpoint{cp}, nil
}

func (f *fakeCheckpointRepo) GetLiveOlderThan(ctx context.Context, cutoff time.Time) ([]*models.SyncCheckpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var stale []*models.SyncCheckpoint
	for _, cp := range f.latest {
		if cp.Status.IsLive() && cp.LastCheckpointAt.Before(cutoff) {
			clone := *cp
			stale = append(stale, &clone)
		}
	}
	return stale, nil
}

func (f *fakeCheckpointRepo) saves() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveCalls
}

func testLogger() logger.Logger {
	log := logger.NewAppLogger(&logger.Config{LogLevel: "error", Encoder: "console"})
	log.InitLogger()
	return log
}

func newTestService(repo *fakeCheckpointRepo, opts *Options) *CheckpointService {
	return NewCheckpointService(repo, nil, testLogger(), opts).(*CheckpointService)
}

func TestCreateCheckpoint_ClaimsKey(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCheckpointRepo()
	svc := newTestService(repo, nil)

	cp, err := svc.CreateCheckpoint(ctx, "acct_1", enum.SyncTypeInitial, 100, "inbox")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, enum.SyncStatusInProgress, cp.Status)
	assert.Equal(t, int64(0), cp.MessagesProcessed)
	assert.Equal(t, int64(100), cp.TotalMessages)

	// second claim on the same key is refused while the first is live
	_, err = svc.CreateCheckpoint(ctx, "acct_1", enum.SyncTypeInitial, 100, "inbox")
	assert.ErrorIs(t, err, er.ErrCheckpointExists)

	// a different folder is a different key
	_, err = svc.CreateCheckpoint(ctx, "acct_1", enum.SyncTypeInitial, 50, "archive")
	assert.NoError(t, err)
}

func TestCreateCheckpoint_RetiresStaleLiveCheckpoint(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCheckpointRepo()
	repo.latest["acct_1/inbox"] = &models.SyncCheckpoint{
		ID:               "ckpt_old",
		AccountID:        "acct_1",
		FolderID:         "inbox",
		Status:           enum.SyncStatusInProgress,
		LastCheckpointAt: utils.Now().Add(-25 * time.Hour),
	}
	svc := newTestService(repo, nil)

	cp, err := svc.CreateCheckpoint(ctx, "acct_1", enum.SyncTypeManual, 10, "inbox")
	require.NoError(t, err)
	assert.Equal(t, enum.SyncStatusInProgress, cp.Status)
}

func TestUpdateCheckpoint_MonotonicProgress(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCheckpointRepo()
	svc := newTestService(repo, nil)

	_, err := svc.CreateCheckpoint(ctx, "acct_1", enum.SyncTypeInitial, 100, "inbox")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateCheckpoint(ctx, "acct_1", dto.CheckpointUpdate{MessagesProcessed: utils.Ptr(int64(40))}, "inbox"))
	// stale out-of-order update must not move progress backwards
	require.NoError(t, svc.UpdateCheckpoint(ctx, "acct_1", dto.CheckpointUpdate{MessagesProcessed: utils.Ptr(int64(25))}, "inbox"))

	cp, err := svc.GetCheckpoint(ctx, "acct_1", "inbox")
	require.NoError(t, err)
	assert.Equal(t, int64(40), cp.MessagesProcessed)
}

func TestUpdateCheckpoint_PersistsOncePerBatch(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCheckpointRepo()
	svc := newTestService(repo, nil)

	_, err := svc.CreateCheckpoint(ctx, "acct_1", enum.SyncTypeInitial, 100, "inbox")
	require.NoError(t, err)
	savesAfterCreate := repo.saves()

	// ten single-message increments cross the batch boundary exactly once
	for i := int64(1); i <= 10; i++ {
		require.NoError(t, svc.UpdateCheckpoint(ctx, "acct_1", dto.CheckpointUpdate{MessagesProcessed: utils.Ptr(i)}, "inbox"))
	}

	assert.Equal(t, savesAfterCreate+1, repo.saves())

	cp, err := svc.GetCheckpoint(ctx, "acct_1", "inbox")
	require.NoError(t, err)
	assert.Equal(t, int64(10), cp.MessagesProcessed)
}

func TestUpdateCheckpoint_CursorChangePersistsImmediately(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCheckpointRepo()
	svc := newTestService(repo, nil)

	_, err := svc.CreateCheckpoint(ctx, "acct_1", enum.SyncTypeInitial, 100, "inbox")
	require.NoError(t, err)
	savesAfterCreate := repo.saves()

	err = svc.UpdateCheckpoint(ctx, "acct_1", dto.CheckpointUpdate{
		MessagesProcessed: utils.Ptr(int64(3)),
		CurrentPageToken:  utils.Ptr("page-2"),
	}, "inbox")
	require.NoError(t, err)

	// a new continuation token is never allowed to wait for the batch
	assert.Equal(t, savesAfterCreate+1, repo.saves())
	assert.Equal(t, "page-2", repo.latest["acct_1/inbox"].CurrentPageToken)
}

func TestUpdateCheckpoint_NoLiveCheckpointIsNoop(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCheckpointRepo()
	svc := newTestService(repo, nil)

	err := svc.UpdateCheckpoint(ctx, "acct_1", dto.CheckpointUpdate{MessagesProcessed: utils.Ptr(int64(5))}, "inbox")
	assert.NoError(t, err)
	assert.Equal(t, 0, repo.saves())
}

func TestPauseResume_PreservesPosition(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCheckpointRepo()
	svc := newTestService(repo, nil)

	_, err := svc.CreateCheckpoint(ctx, "acct_1", enum.SyncTypeInitial, 100, "inbox")
	require.NoError(t, err)

	err = svc.UpdateCheckpoint(ctx, "acct_1", dto.CheckpointUpdate{
		MessagesProcessed: utils.Ptr(int64(42)),
		CurrentCursor:     utils.Ptr("cursor-42"),
		CurrentBatch:      utils.Ptr(4),
	}, "inbox")
	require.NoError(t, err)

	require.NoError(t, svc.PauseCheckpoint(ctx, "acct_1", "inbox"))

	paused, err := svc.GetCheckpoint(ctx, "acct_1", "inbox")
	require.NoError(t, err)
	assert.Equal(t, enum.SyncStatusPaused, paused.Status)

	resumed, err := svc.ResumeCheckpoint(ctx, "acct_1", "inbox")
	require.NoError(t, err)
	assert.Equal(t, enum.SyncStatusInProgress, resumed.Status)
	assert.Equal(t, int64(42), resumed.MessagesProcessed)
	assert.Equal(t, "cursor-42", resumed.CurrentCursor)
	assert.Equal(t, 4, resumed.CurrentBatch)
}

func TestResumeCheckpoint_RequiresPausedState(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCheckpointRepo()
	svc := newTestService(repo, nil)

	_, err := svc.CreateCheckpoint(ctx, "acct_1", enum.SyncTypeInitial, 100, "inbox")
	require.NoError(t, err)

	_, err = svc.ResumeCheckpoint(ctx, "acct_1", "inbox")
	assert.ErrorIs(t, err, er.ErrInvalidTransition)

	_, err = svc.ResumeCheckpoint(ctx, "acct_other", "inbox")
	assert.ErrorIs(t, err, er.ErrCheckpointNotFound)
}

func TestCompleteCheckpoint_DurableAfterEviction(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCheckpointRepo()
	svc := newTestService(repo, &Options{EvictionGrace: 10 * time.Millisecond})

	_, err := svc.CreateCheckpoint(ctx, "acct_1", enum.SyncTypeInitial, 5, "inbox")
	require.NoError(t, err)
	require.NoError(t, svc.UpdateCheckpoint(ctx, "acct_1", dto.CheckpointUpdate{MessagesProcessed: utils.Ptr(int64(5))}, "inbox"))
	require.NoError(t, svc.CompleteCheckpoint(ctx, "acct_1", "inbox"))

	// completing twice is an invalid transition
	assert.Error(t, svc.CompleteCheckpoint(ctx, "acct_1", "inbox"))

	// after the cache entry is evicted, reads still answer from the durable store
	time.Sleep(50 * time.Millisecond)
	cp, err := svc.GetCheckpoint(ctx, "acct_1", "inbox")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, enum.SyncStatusCompleted, cp.Status)
	assert.Equal(t, int64(5), cp.MessagesProcessed)

	// the completed run no longer blocks a fresh claim on the key
	_, err = svc.CreateCheckpoint(ctx, "acct_1", enum.SyncTypeAuto, 7, "inbox")
	assert.NoError(t, err)
}

func TestFailCheckpoint_PersistsImmediately(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCheckpointRepo()
	svc := newTestService(repo, nil)

	_, err := svc.CreateCheckpoint(ctx, "acct_1", enum.SyncTypeInitial, 100, "inbox")
	require.NoError(t, err)
	savesAfterCreate := repo.saves()

	require.NoError(t, svc.FailCheckpoint(ctx, "acct_1", "provider token revoked", "inbox"))
	assert.Equal(t, savesAfterCreate+1, repo.saves())

	cp, err := svc.GetCheckpoint(ctx, "acct_1", "inbox")
	require.NoError(t, err)
	assert.Equal(t, enum.SyncStatusFailed, cp.Status)
	assert.Equal(t, "provider token revoked", cp.ErrorMessage)
}

func TestCanResumeSync_StalenessWindow(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCheckpointRepo()
	repo.latest["acct_fresh/"] = &models.SyncCheckpoint{
		ID:               "ckpt_fresh",
		AccountID:        "acct_fresh",
		Status:           enum.SyncStatusInProgress,
		LastCheckpointAt: utils.Now().Add(-1 * time.Hour),
	}
	repo.latest["acct_stale/"] = &models.SyncCheckpoint{
		ID:               "ckpt_stale",
		AccountID:        "acct_stale",
		Status:           enum.SyncStatusInProgress,
		LastCheckpointAt: utils.Now().Add(-25 * time.Hour),
	}
	repo.latest["acct_done/"] = &models.SyncCheckpoint{
		ID:               "ckpt_done",
		AccountID:        "acct_done",
		Status:           enum.SyncStatusCompleted,
		LastCheckpointAt: utils.Now(),
	}
	svc := newTestService(repo, nil)

	assert.True(t, svc.CanResumeSync(ctx, "acct_fresh", ""))
	assert.False(t, svc.CanResumeSync(ctx, "acct_stale", ""))
	assert.False(t, svc.CanResumeSync(ctx, "acct_done", ""))
	assert.False(t, svc.CanResumeSync(ctx, "acct_none", ""))
}

func TestClearCheckpoints_DropsAllStateForAccount(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCheckpointRepo()
	svc := newTestService(repo, nil)

	_, err := svc.CreateCheckpoint(ctx, "acct_1", enum.SyncTypeInitial, 10, "inbox")
	require.NoError(t, err)
	_, err = svc.CreateCheckpoint(ctx, "acct_1", enum.SyncTypeInitial, 10, "archive")
	require.NoError(t, err)
	_, err = svc.CreateCheckpoint(ctx, "acct_2", enum.SyncTypeInitial, 10, "inbox")
	require.NoError(t, err)

	require.NoError(t, svc.ClearCheckpoints(ctx, "acct_1"))

	cp, err := svc.GetCheckpoint(ctx, "acct_1", "inbox")
	require.NoError(t, err)
	assert.Nil(t, cp)

	// the other account is untouched
	cp, err = svc.GetCheckpoint(ctx, "acct_2", "inbox")
	require.NoError(t, err)
	require.NotNil(t, cp)
}

func TestGetProgress(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCheckpointRepo()
	svc := newTestService(repo, nil)

	_, err := svc.CreateCheckpoint(ctx, "acct_1", enum.SyncTypeInitial, 200, "inbox")
	require.NoError(t, err)
	require.NoError(t, svc.UpdateCheckpoint(ctx, "acct_1", dto.CheckpointUpdate{MessagesProcessed: utils.Ptr(int64(50))}, "inbox"))

	assert.InDelta(t, 25.0, svc.GetProgress(ctx, "acct_1", "inbox"), 0.001)
	assert.Equal(t, 0.0, svc.GetProgress(ctx, "acct_none", "inbox"))
}

func TestFailFastPolicy_SurfacesPersistErrors(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCheckpointRepo()
	svc := newTestService(repo, &Options{Policy: NewFailFastPolicy()})

	_, err := svc.CreateCheckpoint(ctx, "acct_1", enum.SyncTypeInitial, 100, "inbox")
	require.NoError(t, err)

	repo.mu.Lock()
	repo.saveErr = assert.AnError
	repo.mu.Unlock()

	err = svc.UpdateCheckpoint(ctx, "acct_1", dto.CheckpointUpdate{CurrentCursor: utils.Ptr("c1")}, "inbox")
	assert.Error(t, err)
}

func TestBestEffortPolicy_SwallowsPersistErrors(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCheckpointRepo()
	svc := newTestService(repo, nil)

	_, err := svc.CreateCheckpoint(ctx, "acct_1", enum.SyncTypeInitial, 100, "inbox")
	require.NoError(t, err)

	repo.mu.Lock()
	repo.saveErr = assert.AnError
	repo.mu.Unlock()

	err = svc.UpdateCheckpoint(ctx, "acct_1", dto.CheckpointUpdate{CurrentCursor: utils.Ptr("c1")}, "inbox")
	assert.NoError(t, err)

	// progress survives in memory even though the write was lost
	cp, err := svc.GetCheckpoint(ctx, "acct_1", "inbox")
	require.NoError(t, err)
	assert.Equal(t, "c1", cp.CurrentCursor)
}
