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

type emailRepository struct {
	db *gorm.DB
}

func NewEmailRepository(db *gorm.DB) interfaces.EmailRepository {
	return &emailRepository{db: db}
}

func (r *emailRepository) GetEmail(ctx context.Context, id string) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.GetEmail")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var email models.Email
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&email)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get email: %w", result.Error)
	}

	return &email, nil
}
