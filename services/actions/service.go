package actions

import (
	"context"
	"sync"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"

	"github.com/quillmail/syncengine/dto"
	"github.com/quillmail/syncengine/interfaces"
	"github.com/quillmail/syncengine/internal/enum"
	er "github.com/quillmail/syncengine/internal/errors"
	"github.com/quillmail/syncengine/internal/logger"
	"github.com/quillmail/syncengine/internal/tracing"
)

// BatchConcurrency bounds the fan-out of a batch so a large bulk operation
// does not trip provider rate limits.
const BatchConcurrency = 4

type ActionsService struct {
	accounts         interfaces.AccountRepository
	emails           interfaces.EmailRepository
	clientFactory    interfaces.ProviderClientFactory
	publisher        interfaces.EventPublisher
	log              logger.Logger
	batchConcurrency int
}

func NewActionsService(
	accounts interfaces.AccountRepository,
	emails interfaces.EmailRepository,
	clientFactory interfaces.ProviderClientFactory,
	publisher interfaces.EventPublisher,
	log logger.Logger,
) interfaces.ActionService {
	return &ActionsService{
		accounts:         accounts,
		emails:           emails,
		clientFactory:    clientFactory,
		publisher:        publisher,
		log:              log,
		batchConcurrency: BatchConcurrency,
	}
}

// ApplyAction pushes one action to the owning provider. Validation happens
// before any account/provider work so an invalid request never reaches the
// network.
func (s *ActionsService) ApplyAction(ctx context.Context, request dto.ActionRequest) dto.ActionResult {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ActionsService.ApplyAction")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.LogFields(tracingLog.String("action", request.Action.String()), tracingLog.String("email_id", request.EmailID))

	if !request.Action.IsValid() {
		return s.failure(span, request, er.ErrUnknownAction.Error())
	}
	if request.Action == enum.ActionMove && request.TargetFolder == "" {
		return s.failure(span, request, er.ErrTargetFolderEmpty.Error())
	}

	email, err := s.emails.GetEmail(ctx, request.EmailID)
	if err != nil {
		return s.failure(span, request, err.Error())
	}
	if email == nil {
		return s.failure(span, request, er.ErrEmailNotFound.Error())
	}

	account, err := s.accounts.GetAccount(ctx, email.AccountID)
	if err != nil {
		return s.failure(span, request, err.Error())
	}
	if account == nil {
		return s.failure(span, request, er.ErrAccountNotFound.Error())
	}
	tracing.TagAccount(span, account.ID)

	client, err := s.clientFactory(ctx, account)
	if err != nil {
		return s.failure(span, request, err.Error())
	}

	switch request.Action {
	case enum.ActionDelete:
		err = client.ApplyDelete(ctx, email)
	case enum.ActionMove:
		err = client.ApplyMove(ctx, email, request.TargetFolder)
	case enum.ActionMarkRead:
		err = client.ApplyMarkRead(ctx, email, true)
	case enum.ActionMarkUnread:
		err = client.ApplyMarkRead(ctx, email, false)
	case enum.ActionFlag:
		err = client.ApplyFlag(ctx, email, true)
	case enum.ActionUnflag:
		err = client.ApplyFlag(ctx, email, false)
	}
	if err != nil {
		// Remote failures are data, not errors: the caller gets the
		// provider's message and the batch keeps going.
		return s.failure(span, request, err.Error())
	}

	result := dto.ActionResult{EmailID: request.EmailID, Success: true}
	s.publishResult(ctx, account.ID, request.Action, result)
	return result
}

// ApplyBatchAction fans requests out over a bounded worker pool, waits for
// every result and reports them in input order. Partial failure is a
// first-class outcome.
func (s *ActionsService) ApplyBatchAction(ctx context.Context, requests []dto.ActionRequest) dto.BatchActionResult {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ActionsService.ApplyBatchAction")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.LogFields(tracingLog.Int("request_count", len(requests)))

	results := make([]dto.ActionResult, len(requests))
	sem := make(chan struct{}, s.batchConcurrency)
	var wg sync.WaitGroup

	for i, request := range requests {
		wg.Add(1)
		go func(idx int, req dto.ActionRequest) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx] = s.ApplyAction(ctx, req)
		}(i, request)
	}
	wg.Wait()

	overall := true
	for _, result := range results {
		if !result.Success {
			overall = false
			break
		}
	}

	span.LogFields(tracingLog.Bool("overall_success", overall))
	return dto.BatchActionResult{OverallSuccess: overall, Results: results}
}

func (s *ActionsService) failure(span opentracing.Span, request dto.ActionRequest, message string) dto.ActionResult {
	span.LogFields(tracingLog.String("failure", message))
	s.log.Warnf("action %s on %s failed: %s", request.Action, request.EmailID, message)
	return dto.ActionResult{EmailID: request.EmailID, Success: false, Error: message}
}

func (s *ActionsService) publishResult(ctx context.Context, accountID string, action enum.MailAction, result dto.ActionResult) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishActionApplied(ctx, accountID, action, result); err != nil {
		s.log.Warnf("failed to publish action event for %s: %v", result.EmailID, err)
	}
}
