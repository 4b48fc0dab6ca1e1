package interfaces

import (
	"context"

	"github.com/quillmail/syncengine/dto"
	"github.com/quillmail/syncengine/internal/enum"
	"github.com/quillmail/syncengine/internal/models"
)

// EventPublisher notifies the rest of the product about engine activity.
// Publishing is best effort; the engine never blocks user actions on the bus.
type EventPublisher interface {
	PublishActionApplied(ctx context.Context, accountID string, action enum.MailAction, result dto.ActionResult) error
	PublishSyncCompleted(ctx context.Context, checkpoint *models.SyncCheckpoint) error
	Close() error
}
