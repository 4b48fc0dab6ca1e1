package repository

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/quillmail/syncengine/interfaces"
	"github.com/quillmail/syncengine/internal/models"
	"github.com/quillmail/syncengine/internal/tracing"
)

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) interfaces.AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) GetAccounts(ctx context.Context) ([]*models.MailAccount, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountRepository.GetAccounts")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var accounts []*models.MailAccount
	if err := r.db.WithContext(ctx).Find(&accounts).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}

	return accounts, nil
}

func (r *accountRepository) GetAccount(ctx context.Context, id string) (*models.MailAccount, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountRepository.GetAccount")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagAccount(span, id)

	var account models.MailAccount
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&account)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get account: %w", result.Error)
	}

	return &account, nil
}

func (r *accountRepository) SaveAccount(ctx context.Context, account *models.MailAccount) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountRepository.SaveAccount")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if err := r.db.WithContext(ctx).Save(account).Error; err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to save account: %w", err)
	}

	return nil
}

func (r *accountRepository) DeleteAccount(ctx context.Context, id string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "accountRepository.DeleteAccount")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagAccount(span, id)

	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.MailAccount{}).Error; err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to delete account: %w", err)
	}

	return nil
}
