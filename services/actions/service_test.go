package actions

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/quillmail/syncengine/dto"
	"github.com/quillmail/syncengine/interfaces"
	"github.com/quillmail/syncengine/internal/enum"
	"github.com/quillmail/syncengine/internal/logger"
	"github.com/quillmail/syncengine/internal/models"
)

type mockProviderClient struct {
	mock.Mock
}

func (m *mockProviderClient) ApplyDelete(ctx context.Context, email *models.Email) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *mockProviderClient) ApplyMove(ctx context.Context, email *models.Email, targetFolder string) error {
	args := m.Called(ctx, email, targetFolder)
	return args.Error(0)
}

func (m *mockProviderClient) ApplyMarkRead(ctx context.Context, email *models.Email, read bool) error {
	args := m.Called(ctx, email, read)
	return args.Error(0)
}

func (m *mockProviderClient) ApplyFlag(ctx context.Context, email *models.Email, flagged bool) error {
	args := m.Called(ctx, email, flagged)
	return args.Error(0)
}

type fakeAccountRepo struct {
	accounts map[string]*models.MailAccount
}

func (f *fakeAccountRepo) GetAccounts(ctx context.Context) ([]*models.MailAccount, error) {
	return nil, nil
}

func (f *fakeAccountRepo) GetAccount(ctx context.Context, id string) (*models.MailAccount, error) {
	return f.accounts[id], nil
}

func (f *fakeAccountRepo) SaveAccount(ctx context.Context, account *models.MailAccount) error {
	return nil
}

func (f *fakeAccountRepo) DeleteAccount(ctx context.Context, id string) error {
	return nil
}

type fakeEmailRepo struct {
	emails map[string]*models.Email
}

func (f *fakeEmailRepo) GetEmail(ctx context.Context, id string) (*models.Email, error) {
	return f.emails[id], nil
}

type actionsFixture struct {
	service      interfaces.ActionService
	client       *mockProviderClient
	factoryCalls int
	mu           sync.Mutex
}

func newActionsFixture(t *testing.T) *actionsFixture {
	t.Helper()

	log := logger.NewAppLogger(&logger.Config{LogLevel: "error", Encoder: "console"})
	log.InitLogger()

	fixture := &actionsFixture{client: &mockProviderClient{}}

	accounts := &fakeAccountRepo{accounts: map[string]*models.MailAccount{
		"acct_1": {ID: "acct_1", Provider: enum.ProviderGoogle, EmailAddress: "user@example.com"},
	}}
	emails := &fakeEmailRepo{emails: map[string]*models.Email{
		"email_1": {ID: "email_1", AccountID: "acct_1", ProviderMessageID: "msg-1", Folder: "inbox"},
		"email_2": {ID: "email_2", AccountID: "acct_1", ProviderMessageID: "msg-2", Folder: "inbox"},
		"email_3": {ID: "email_3", AccountID: "acct_1", ProviderMessageID: "msg-3", Folder: "inbox"},
	}}

	factory := func(ctx context.Context, account *models.MailAccount) (interfaces.ProviderActionClient, error) {
		fixture.mu.Lock()
		fixture.factoryCalls++
		fixture.mu.Unlock()
		return fixture.client, nil
	}

	fixture.service = NewActionsService(accounts, emails, factory, nil, log)
	return fixture
}

func TestApplyAction_Delete(t *testing.T) {
	fixture := newActionsFixture(t)
	fixture.client.On("ApplyDelete", mock.Anything, mock.Anything).Return(nil)

	result := fixture.service.ApplyAction(context.Background(), dto.ActionRequest{
		EmailID: "email_1",
		Action:  enum.ActionDelete,
	})

	assert.True(t, result.Success)
	assert.Equal(t, "email_1", result.EmailID)
	fixture.client.AssertExpectations(t)
}

func TestApplyAction_MarkUnreadMapsToReadFalse(t *testing.T) {
	fixture := newActionsFixture(t)
	fixture.client.On("ApplyMarkRead", mock.Anything, mock.Anything, false).Return(nil)

	result := fixture.service.ApplyAction(context.Background(), dto.ActionRequest{
		EmailID: "email_1",
		Action:  enum.ActionMarkUnread,
	})

	assert.True(t, result.Success)
	fixture.client.AssertExpectations(t)
}

func TestApplyAction_MoveWithoutTargetFolder(t *testing.T) {
	fixture := newActionsFixture(t)

	result := fixture.service.ApplyAction(context.Background(), dto.ActionRequest{
		EmailID: "email_1",
		Action:  enum.ActionMove,
	})

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	// validation rejects before any account or provider work happens
	assert.Equal(t, 0, fixture.factoryCalls)
	fixture.client.AssertNotCalled(t, "ApplyMove")
}

func TestApplyAction_UnknownAction(t *testing.T) {
	fixture := newActionsFixture(t)

	result := fixture.service.ApplyAction(context.Background(), dto.ActionRequest{
		EmailID: "email_1",
		Action:  enum.MailAction("archive"),
	})

	assert.False(t, result.Success)
	assert.Equal(t, 0, fixture.factoryCalls)
}

func TestApplyAction_EmailNotFound(t *testing.T) {
	fixture := newActionsFixture(t)

	result := fixture.service.ApplyAction(context.Background(), dto.ActionRequest{
		EmailID: "email_missing",
		Action:  enum.ActionDelete,
	})

	assert.False(t, result.Success)
	assert.Equal(t, "email_missing", result.EmailID)
}

func TestApplyAction_ProviderFailureIsData(t *testing.T) {
	fixture := newActionsFixture(t)
	fixture.client.On("ApplyFlag", mock.Anything, mock.Anything, true).
		Return(errors.New("rate limited"))

	result := fixture.service.ApplyAction(context.Background(), dto.ActionRequest{
		EmailID: "email_1",
		Action:  enum.ActionFlag,
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "rate limited")
}

func TestApplyBatchAction_PartialFailurePreservesOrder(t *testing.T) {
	fixture := newActionsFixture(t)
	fixture.client.On("ApplyMarkRead", mock.Anything, mock.MatchedBy(func(e *models.Email) bool {
		return e.ID == "email_2"
	}), true).Return(errors.New("message gone"))
	fixture.client.On("ApplyMarkRead", mock.Anything, mock.Anything, true).Return(nil)

	requests := []dto.ActionRequest{
		{EmailID: "email_1", Action: enum.ActionMarkRead},
		{EmailID: "email_2", Action: enum.ActionMarkRead},
		{EmailID: "email_3", Action: enum.ActionMarkRead},
	}

	batch := fixture.service.ApplyBatchAction(context.Background(), requests)

	assert.False(t, batch.OverallSuccess)
	require.Len(t, batch.Results, 3)
	assert.Equal(t, "email_1", batch.Results[0].EmailID)
	assert.Equal(t, "email_2", batch.Results[1].EmailID)
	assert.Equal(t, "email_3", batch.Results[2].EmailID)
	assert.True(t, batch.Results[0].Success)
	assert.False(t, batch.Results[1].Success)
	assert.True(t, batch.Results[2].Success)
}

func TestApplyBatchAction_AllSucceed(t *testing.T) {
	fixture := newActionsFixture(t)
	fixture.client.On("ApplyDelete", mock.Anything, mock.Anything).Return(nil)

	requests := []dto.ActionRequest{
		{EmailID: "email_1", Action: enum.ActionDelete},
		{EmailID: "email_2", Action: enum.ActionDelete},
	}

	batch := fixture.service.ApplyBatchAction(context.Background(), requests)

	assert.True(t, batch.OverallSuccess)
	require.Len(t, batch.Results, 2)
}

func TestApplyBatchAction_Empty(t *testing.T) {
	fixture := newActionsFixture(t)

	batch := fixture.service.ApplyBatchAction(context.Background(), nil)

	assert.True(t, batch.OverallSuccess)
	assert.Empty(t, batch.Results)
}
