package interfaces

import (
	"context"
	"time"

	"github.com/quillmail/syncengine/internal/models"
)

type CheckpointRepository interface {
	// GetLatest returns the most recent checkpoint for the key, or nil when
	// none was ever created.
	GetLatest(ctx context.Context, accountID, folderID string) (*models.SyncCheckpoint, error)
	Save(ctx context.Context, checkpoint *models.SyncCheckpoint) error
	DeleteForAccount(ctx context.Context, accountID string) error
	GetHistory(ctx context.Context, accountID, folderID string, limit int) ([]*models.SyncCheckpoint, error)
	// GetLiveOlderThan returns live checkpoints whose last progress update
	// predates the cutoff; used by the abandoned-checkpoint reaper.
	GetLiveOlderThan(ctx context.Context, cutoff time.Time) ([]*models.SyncCheckpoint, error)
}
