package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/quillmail/syncengine/interfaces"
	"github.com/quillmail/syncengine/internal/models"
	"github.com/quillmail/syncengine/internal/tracing"
	"github.com/quillmail/syncengine/internal/utils"
)

type checkpointRepository struct {
	db *gorm.DB
}

func NewCheckpointRepository(db *gorm.DB) interfaces.CheckpointRepository {
	return &checkpointRepository{db: db}
}

// GetLatest retrieves the most recent checkpoint for an account folder
func (r *checkpointRepository) GetLatest(ctx context.Context, accountID, folderID string) (*models.SyncCheckpoint, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "checkpointRepository.GetLatest")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagAccount(span, accountID)

	var checkpoint models.SyncCheckpoint
	result := r.db.WithContext(ctx).
		Where("account_id = ? AND folder_id = ?", accountID, folderID).
		Order("started_at DESC").
		First(&checkpoint)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil // No checkpoint yet
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get checkpoint: %w", result.Error)
	}

	return &checkpoint, nil
}

// Save upserts a checkpoint by ID
func (r *checkpointRepository) Save(ctx context.Context, checkpoint *models.SyncCheckpoint) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "checkpointRepository.Save")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagAccount(span, checkpoint.AccountID)

	checkpoint.UpdatedAt = utils.Now()

	result := r.db.WithContext(ctx).
		Model(&models.SyncCheckpoint{}).
		Where("id = ?", checkpoint.ID).
		Updates(map[string]interface{}{
			"status":             checkpoint.Status,
			"error_message":      checkpoint.ErrorMessage,
			"messages_processed": checkpoint.MessagesProcessed,
			"total_messages":     checkpoint.TotalMessages,
			"current_batch":      checkpoint.CurrentBatch,
			"current_cursor":     checkpoint.CurrentCursor,
			"current_page_token": checkpoint.CurrentPageToken,
			"metadata":           checkpoint.Metadata,
			"last_checkpoint_at": checkpoint.LastCheckpointAt,
			"updated_at":         checkpoint.UpdatedAt,
		})

	// If no record was updated, create a new one
	if result.Error == nil && result.RowsAffected == 0 {
		result = r.db.WithContext(ctx).Create(checkpoint)
	}

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to save checkpoint: %w", result.Error)
	}

	return nil
}

// DeleteForAccount removes all checkpoints for an account, every folder
func (r *checkpointRepository) DeleteForAccount(ctx context.Context, accountID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "checkpointRepository.DeleteForAccount")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagAccount(span, accountID)

	result := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Delete(&models.SyncCheckpoint{})

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to delete checkpoints: %w", result.Error)
	}

	return nil
}

// GetHistory returns past checkpoints for a key, newest first
func (r *checkpointRepository) GetHistory(ctx context.Context, accountID, folderID string, limit int) ([]*models.SyncCheckpoint, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "checkpointRepository.GetHistory")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagAccount(span, accountID)

	var checkpoints []*models.SyncCheckpoint
	result := r.db.WithContext(ctx).
		Where("account_id = ? AND folder_id = ?", accountID, folderID).
		Order("started_at DESC").
		Limit(limit).
		Find(&checkpoints)

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get checkpoint history: %w", result.Error)
	}

	return checkpoints, nil
}

// GetLiveOlderThan returns live checkpoints abandoned before the cutoff
func (r *checkpointRepository) GetLiveOlderThan(ctx context.Context, cutoff time.Time) ([]*models.SyncCheckpoint, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "checkpointRepository.GetLiveOlderThan")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var checkpoints []*models.SyncCheckpoint
	result := r.db.WithContext(ctx).
		Where("status IN ? AND last_checkpoint_at < ?", []string{"in_progress", "paused"}, cutoff).
		Find(&checkpoints)

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get stale checkpoints: %w", result.Error)
	}

	return checkpoints, nil
}
