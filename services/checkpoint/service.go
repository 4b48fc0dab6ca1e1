package checkpoint

import (
	"context"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"

	"github.com/quillmail/syncengine/dto"
	"github.com/quillmail/syncengine/interfaces"
	"github.com/quillmail/syncengine/internal/enum"
	er "github.com/quillmail/syncengine/internal/errors"
	"github.com/quillmail/syncengine/internal/logger"
	"github.com/quillmail/syncengine/internal/models"
	"github.com/quillmail/syncengine/internal/tracing"
	"github.com/quillmail/syncengine/internal/utils"
)

const (
	// PersistBatchSize bounds write amplification: routine progress updates
	// are committed durably only when messagesProcessed crosses a multiple
	// of this size, so a crash re-processes at most one batch.
	PersistBatchSize = 10

	// StalenessWindow bounds resumability. Provider continuation tokens can
	// expire server-side after long gaps, so a checkpoint older than this is
	// refused for resume and callers must start a fresh run.
	StalenessWindow = 24 * time.Hour

	// EvictionGrace is how long a completed checkpoint stays in the
	// in-memory cache before cleanup. The durable record is retained.
	EvictionGrace = 30 * time.Second
)

type Options struct {
	PersistBatchSize int
	StalenessWindow  time.Duration
	EvictionGrace    time.Duration
	Policy           PersistencePolicy
}

type CheckpointService struct {
	repo      interfaces.CheckpointRepository
	publisher interfaces.EventPublisher
	log       logger.Logger
	opts      Options

	mu        sync.Mutex
	live      map[string]*models.SyncCheckpoint
	evictions map[string]*time.Timer
}

func NewCheckpointService(repo interfaces.CheckpointRepository, publisher interfaces.EventPublisher, log logger.Logger, opts *Options) interfaces.CheckpointStore {
	resolved := Options{
		PersistBatchSize: PersistBatchSize,
		StalenessWindow:  StalenessWindow,
		EvictionGrace:    EvictionGrace,
	}
	if opts != nil {
		if opts.PersistBatchSize > 0 {
			resolved.PersistBatchSize = opts.PersistBatchSize
		}
		if opts.StalenessWindow > 0 {
			resolved.StalenessWindow = opts.StalenessWindow
		}
		if opts.EvictionGrace > 0 {
			resolved.EvictionGrace = opts.EvictionGrace
		}
		resolved.Policy = opts.Policy
	}
	if resolved.Policy == nil {
		resolved.Policy = NewBestEffortPolicy(log)
	}

	return &CheckpointService{
		repo:      repo,
		publisher: publisher,
		log:       log,
		opts:      resolved,
		live:      make(map[string]*models.SyncCheckpoint),
		evictions: make(map[string]*time.Timer),
	}
}

func checkpointKey(accountID, folderID string) string {
	return accountID + "/" + folderID
}

func (s *CheckpointService) CreateCheckpoint(ctx context.Context, accountID string, syncType enum.SyncType, totalMessages int64, folderID string) (*models.SyncCheckpoint, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "CheckpointService.CreateCheckpoint")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagAccount(span, accountID)
	span.LogFields(tracingLog.String("sync_type", syncType.String()), tracingLog.String("folder", folderID))

	key := checkpointKey(accountID, folderID)

	// The check and the insert happen under one lock so the claim on the
	// (account, folder) key is atomic within the process.
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.resolveLiveLocked(ctx, key, accountID, folderID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if existing != nil {
		if utils.Now().Sub(existing.LastCheckpointAt) <= s.opts.StalenessWindow {
			tracing.TraceErr(span, er.ErrCheckpointExists)
			return nil, er.ErrCheckpointExists
		}
		// A live checkpoint past the staleness window can never be resumed;
		// retire it so a fresh run can claim the key.
		existing.Status = enum.SyncStatusFailed
		existing.ErrorMessage = "abandoned: checkpoint went stale"
		existing.LastCheckpointAt = utils.Now()
		if persistErr := s.repo.Save(ctx, existing); persistErr != nil {
			s.log.Warnf("failed to retire stale checkpoint %s: %v", key, persistErr)
		}
		delete(s.live, key)
	}

	now := utils.Now()
	cp := &models.SyncCheckpoint{
		AccountID:         accountID,
		FolderID:          folderID,
		SyncType:          syncType,
		Status:            enum.SyncStatusInProgress,
		MessagesProcessed: 0,
		TotalMessages:     totalMessages,
		CurrentBatch:      0,
		Metadata:          models.JSONMap{},
		StartedAt:         now,
		LastCheckpointAt:  now,
	}

	if err := s.repo.Save(ctx, cp); err != nil {
		tracing.TraceErr(span, err)
		if policyErr := s.opts.Policy.HandlePersistError(key, err); policyErr != nil {
			return nil, policyErr
		}
	}

	s.live[key] = cp
	s.cancelEvictionLocked(key)

	s.log.Infof("checkpoint created for %s (%s sync, %d total)", key, syncType, totalMessages)
	return cloneCheckpoint(cp), nil
}

func (s *CheckpointService) UpdateCheckpoint(ctx context.Context, accountID string, updates dto.CheckpointUpdate, folderID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "CheckpointService.UpdateCheckpoint")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagAccount(span, accountID)

	key := checkpointKey(accountID, folderID)

	s.mu.Lock()
	defer s.mu.Unlock()

	cp, err := s.resolveLiveLocked(ctx, key, accountID, folderID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if cp == nil {
		// Ingestion may call update after a race-lost pause; recoverable.
		s.log.Warnf("update for %s ignored: no live checkpoint", key)
		return nil
	}

	prevProcessed := cp.MessagesProcessed
	tokenChanged := false

	if updates.MessagesProcessed != nil && *updates.MessagesProcessed > cp.MessagesProcessed {
		cp.MessagesProcessed = *updates.MessagesProcessed
		if cp.TotalMessages > 0 && cp.MessagesProcessed > cp.TotalMessages {
			cp.MessagesProcessed = cp.TotalMessages
		}
	}
	if updates.CurrentCursor != nil && *updates.CurrentCursor != cp.CurrentCursor {
		cp.CurrentCursor = *updates.CurrentCursor
		tokenChanged = true
	}
	if updates.CurrentPageToken != nil && *updates.CurrentPageToken != cp.CurrentPageToken {
		cp.CurrentPageToken = *updates.CurrentPageToken
		tokenChanged = true
	}
	if updates.CurrentBatch != nil {
		cp.CurrentBatch = *updates.CurrentBatch
	}
	if len(updates.Metadata) > 0 {
		if cp.Metadata == nil {
			cp.Metadata = models.JSONMap{}
		}
		for k, v := range updates.Metadata {
			cp.Metadata[k] = v
		}
	}
	cp.LastCheckpointAt = utils.Now()

	batchSize := int64(s.opts.PersistBatchSize)
	crossedBatch := cp.MessagesProcessed/batchSize > prevProcessed/batchSize

	if !crossedBatch && !tokenChanged {
		return nil
	}

	span.LogFields(tracingLog.Int64("messages_processed", cp.MessagesProcessed), tracingLog.Bool("token_changed", tokenChanged))

	if err := s.repo.Save(ctx, cp); err != nil {
		tracing.TraceErr(span, err)
		return s.opts.Policy.HandlePersistError(key, err)
	}

	return nil
}

func (s *CheckpointService) CompleteCheckpoint(ctx context.Context, accountID, folderID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "CheckpointService.CompleteCheckpoint")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagAccount(span, accountID)

	key := checkpointKey(accountID, folderID)

	s.mu.Lock()
	defer s.mu.Unlock()

	cp, err := s.resolveLiveLocked(ctx, key, accountID, folderID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if cp == nil {
		tracing.TraceErr(span, er.ErrCheckpointNotFound)
		return er.ErrCheckpointNotFound
	}
	if cp.Status != enum.SyncStatusInProgress {
		tracing.TraceErr(span, er.ErrInvalidTransition)
		return er.ErrInvalidTransition
	}

	cp.Status = enum.SyncStatusCompleted
	cp.LastCheckpointAt = utils.Now()

	if err := s.repo.Save(ctx, cp); err != nil {
		tracing.TraceErr(span, err)
		if policyErr := s.opts.Policy.HandlePersistError(key, err); policyErr != nil {
			return policyErr
		}
	}

	// Keep the cached entry around briefly so late progress reads still see
	// the completed state, then clean up. The durable record stays.
	s.scheduleEvictionLocked(key)

	if s.publisher != nil {
		if pubErr := s.publisher.PublishSyncCompleted(ctx, cloneCheckpoint(cp)); pubErr != nil {
			s.log.Warnf("failed to publish sync completed event for %s: %v", key, pubErr)
		}
	}

	s.log.Infof("checkpoint completed for %s (%d messages)", key, cp.MessagesProcessed)
	return nil
}

func (s *CheckpointService) FailCheckpoint(ctx context.Context, accountID, errorMessage, folderID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "CheckpointService.FailCheckpoint")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagAccount(span, accountID)
	span.LogFields(tracingLog.String("error_message", errorMessage))

	key := checkpointKey(accountID, folderID)

	s.mu.Lock()
	defer s.mu.Unlock()

	cp, err := s.resolveLiveLocked(ctx, key, accountID, folderID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if cp == nil {
		tracing.TraceErr(span, er.ErrCheckpointNotFound)
		return er.ErrCheckpointNotFound
	}
	if cp.Status != enum.SyncStatusInProgress {
		tracing.TraceErr(span, er.ErrInvalidTransition)
		return er.ErrInvalidTransition
	}

	cp.Status = enum.SyncStatusFailed
	cp.ErrorMessage = errorMessage
	cp.LastCheckpointAt = utils.Now()

	// Failures must never be lost to batching: persist now, once, no retry.
	if err := s.repo.Save(ctx, cp); err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("failed to persist failed checkpoint %s: %v", key, err)
	}

	delete(s.live, key)
	s.cancelEvictionLocked(key)

	s.log.Warnf("checkpoint failed for %s: %s", key, errorMessage)
	return nil
}

func (s *CheckpointService) GetCheckpoint(ctx context.Context, accountID, folderID string) (*models.SyncCheckpoint, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "CheckpointService.GetCheckpoint")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagAccount(span, accountID)

	key := checkpointKey(accountID, folderID)

	s.mu.Lock()
	if cp, ok := s.live[key]; ok {
		clone := cloneCheckpoint(cp)
		s.mu.Unlock()
		return clone, nil
	}
	s.mu.Unlock()

	cp, err := s.repo.GetLatest(ctx, accountID, folderID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if cp == nil {
		return nil, nil
	}
	return cloneCheckpoint(cp), nil
}

func (s *CheckpointService) CanResumeSync(ctx context.Context, accountID, folderID string) bool {
	span, ctx := opentracing.StartSpanFromContext(ctx, "CheckpointService.CanResumeSync")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagAccount(span, accountID)

	cp, err := s.GetCheckpoint(ctx, accountID, folderID)
	if err != nil || cp == nil {
		return false
	}
	if !cp.Status.IsLive() {
		return false
	}
	return utils.Now().Sub(cp.LastCheckpointAt) <= s.opts.StalenessWindow
}

func (s *CheckpointService) PauseCheckpoint(ctx context.Context, accountID, folderID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "CheckpointService.PauseCheckpoint")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagAccount(span, accountID)

	key := checkpointKey(accountID, folderID)

	s.mu.Lock()
	defer s.mu.Unlock()

	cp, err := s.resolveLiveLocked(ctx, key, accountID, folderID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if cp == nil {
		tracing.TraceErr(span, er.ErrCheckpointNotFound)
		return er.ErrCheckpointNotFound
	}
	if cp.Status != enum.SyncStatusInProgress {
		tracing.TraceErr(span, er.ErrInvalidTransition)
		return er.ErrInvalidTransition
	}

	cp.Status = enum.SyncStatusPaused
	cp.LastCheckpointAt = utils.Now()

	// Persisted so the pause survives a restart.
	if err := s.repo.Save(ctx, cp); err != nil {
		tracing.TraceErr(span, err)
		if policyErr := s.opts.Policy.HandlePersistError(key, err); policyErr != nil {
			return policyErr
		}
	}

	s.log.Infof("checkpoint paused for %s", key)
	return nil
}

func (s *CheckpointService) ResumeCheckpoint(ctx context.Context, accountID, folderID string) (*models.SyncCheckpoint, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "CheckpointService.ResumeCheckpoint")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagAccount(span, accountID)

	key := checkpointKey(accountID, folderID)

	s.mu.Lock()
	defer s.mu.Unlock()

	cp, err := s.resolveLiveLocked(ctx, key, accountID, folderID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if cp == nil {
		tracing.TraceErr(span, er.ErrCheckpointNotFound)
		return nil, er.ErrCheckpointNotFound
	}
	if cp.Status != enum.SyncStatusPaused {
		tracing.TraceErr(span, er.ErrInvalidTransition)
		return nil, er.ErrInvalidTransition
	}

	cp.Status = enum.SyncStatusInProgress
	cp.LastCheckpointAt = utils.Now()

	if err := s.repo.Save(ctx, cp); err != nil {
		tracing.TraceErr(span, err)
		if policyErr := s.opts.Policy.HandlePersistError(key, err); policyErr != nil {
			return nil, policyErr
		}
	}

	s.log.Infof("checkpoint resumed for %s at batch %d", key, cp.CurrentBatch)
	return cloneCheckpoint(cp), nil
}

func (s *CheckpointService) ClearCheckpoints(ctx context.Context, accountID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "CheckpointService.ClearCheckpoints")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagAccount(span, accountID)

	s.mu.Lock()
	prefix := accountID + "/"
	for key := range s.live {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(s.live, key)
			s.cancelEvictionLocked(key)
		}
	}
	s.mu.Unlock()

	if err := s.repo.DeleteForAccount(ctx, accountID); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	s.log.Infof("checkpoints cleared for account %s", accountID)
	return nil
}

func (s *CheckpointService) GetProgress(ctx context.Context, accountID, folderID string) float64 {
	cp, err := s.GetCheckpoint(ctx, accountID, folderID)
	if err != nil || cp == nil {
		return 0
	}
	return cp.Progress()
}

// resolveLiveLocked finds the live checkpoint for the key: the in-memory
// entry if present, otherwise the latest durable record when it is still
// live (covers resuming after a process restart). Caller must hold s.mu.
func (s *CheckpointService) resolveLiveLocked(ctx context.Context, key, accountID, folderID string) (*models.SyncCheckpoint, error) {
	if cp, ok := s.live[key]; ok {
		// Completed entries linger in the cache for the eviction grace
		// period; they no longer own the key.
		if !cp.Status.IsLive() {
			return nil, nil
		}
		return cp, nil
	}

	cp, err := s.repo.GetLatest(ctx, accountID, folderID)
	if err != nil {
		return nil, err
	}
	if cp == nil || !cp.Status.IsLive() {
		return nil, nil
	}

	s.live[key] = cp
	return cp, nil
}

func (s *CheckpointService) scheduleEvictionLocked(key string) {
	s.cancelEvictionLocked(key)
	s.evictions[key] = time.AfterFunc(s.opts.EvictionGrace, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.live, key)
		delete(s.evictions, key)
	})
}

func (s *CheckpointService) cancelEvictionLocked(key string) {
	if timer, ok := s.evictions[key]; ok {
		timer.Stop()
		delete(s.evictions, key)
	}
}

func cloneCheckpoint(cp *models.SyncCheckpoint) *models.SyncCheckpoint {
	clone := *cp
	if cp.Metadata != nil {
		clone.Metadata = make(models.JSONMap, len(cp.Metadata))
		for k, v := range cp.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}
