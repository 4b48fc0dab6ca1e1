package interfaces

import (
	"context"

	"github.com/quillmail/syncengine/internal/models"
)

type AccountRepository interface {
	GetAccounts(ctx context.Context) ([]*models.MailAccount, error)
	GetAccount(ctx context.Context, id string) (*models.MailAccount, error)
	SaveAccount(ctx context.Context, account *models.MailAccount) error
	DeleteAccount(ctx context.Context, id string) error
}
