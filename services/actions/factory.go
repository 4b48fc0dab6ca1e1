package actions

import (
	"context"

	"github.com/pkg/errors"

	"github.com/quillmail/syncengine/interfaces"
	"github.com/quillmail/syncengine/internal/enum"
	er "github.com/quillmail/syncengine/internal/errors"
	"github.com/quillmail/syncengine/internal/logger"
	"github.com/quillmail/syncengine/internal/models"
	"github.com/quillmail/syncengine/services/actions/gmail"
	"github.com/quillmail/syncengine/services/actions/imapcli"
	"github.com/quillmail/syncengine/services/actions/outlook"
)

// NewProviderClientFactory returns the default factory mapping an account's
// provider family onto its action client.
func NewProviderClientFactory(log logger.Logger) interfaces.ProviderClientFactory {
	return func(ctx context.Context, account *models.MailAccount) (interfaces.ProviderActionClient, error) {
		switch account.Provider {
		case enum.ProviderGoogle:
			return gmail.NewClient(ctx, account)
		case enum.ProviderOutlook:
			return outlook.NewClient(account)
		case enum.ProviderIMAP:
			return imapcli.NewClient(account, log), nil
		default:
			return nil, errors.Wrapf(er.ErrUnsupportedProvider, "%s", account.Provider)
		}
	}
}
