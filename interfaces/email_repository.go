package interfaces

import (
	"context"

	"github.com/quillmail/syncengine/internal/models"
)

type EmailRepository interface {
	GetEmail(ctx context.Context, id string) (*models.Email, error)
}
