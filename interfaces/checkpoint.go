package interfaces

import (
	"context"

	"github.com/quillmail/syncengine/dto"
	"github.com/quillmail/syncengine/internal/enum"
	"github.com/quillmail/syncengine/internal/models"
)

// CheckpointStore is the single source of truth for how far an ingestion
// run got and whether it can be resumed. FolderID may be empty for
// whole-account scope.
type CheckpointStore interface {
	// CreateCheckpoint starts a new run. Fails with ErrCheckpointExists when
	// a live checkpoint already owns the key; callers are expected to check
	// CanResumeSync first.
	CreateCheckpoint(ctx context.Context, accountID string, syncType enum.SyncType, totalMessages int64, folderID string) (*models.SyncCheckpoint, error)
	// UpdateCheckpoint merges a partial update into the live checkpoint.
	// A missing live checkpoint is a warning, not an error.
	UpdateCheckpoint(ctx context.Context, accountID string, updates dto.CheckpointUpdate, folderID string) error
	CompleteCheckpoint(ctx context.Context, accountID, folderID string) error
	FailCheckpoint(ctx context.Context, accountID, errorMessage, folderID string) error
	GetCheckpoint(ctx context.Context, accountID, folderID string) (*models.SyncCheckpoint, error)
	// CanResumeSync reports whether a live checkpoint exists whose last
	// progress update is within the staleness window.
	CanResumeSync(ctx context.Context, accountID, folderID string) bool
	PauseCheckpoint(ctx context.Context, accountID, folderID string) error
	// ResumeCheckpoint returns the refreshed checkpoint so the caller can
	// re-enter ingestion at the stored cursor/page token/batch.
	ResumeCheckpoint(ctx context.Context, accountID, folderID string) (*models.SyncCheckpoint, error)
	// ClearCheckpoints drops all checkpoint state for an account, live and
	// durable, across every folder. Used on account disconnect.
	ClearCheckpoints(ctx context.Context, accountID string) error
	// GetProgress returns the processed percentage for display purposes.
	GetProgress(ctx context.Context, accountID, folderID string) float64
}
