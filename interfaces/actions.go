package interfaces

import (
	"context"

	"github.com/quillmail/syncengine/dto"
	"github.com/quillmail/syncengine/internal/models"
)

// ActionService pushes user-initiated mailbox actions back to the mail
// provider so the remote mailbox and the local mirror stay consistent.
// Failures are returned as data inside the result, never as errors, so
// batch aggregation can proceed past individual failures.
type ActionService interface {
	ApplyAction(ctx context.Context, request dto.ActionRequest) dto.ActionResult
	ApplyBatchAction(ctx context.Context, requests []dto.ActionRequest) dto.BatchActionResult
}

// ProviderActionClient is the capability surface each provider family
// implements. The account is bound at construction time by the factory.
type ProviderActionClient interface {
	ApplyDelete(ctx context.Context, email *models.Email) error
	ApplyMove(ctx context.Context, email *models.Email, targetFolder string) error
	ApplyMarkRead(ctx context.Context, email *models.Email, read bool) error
	ApplyFlag(ctx context.Context, email *models.Email, flagged bool) error
}

// ProviderClientFactory builds the client for an account's provider family.
type ProviderClientFactory func(ctx context.Context, account *models.MailAccount) (ProviderActionClient, error)
