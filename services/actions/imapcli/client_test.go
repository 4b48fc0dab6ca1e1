package imapcli

import (
	"context"
	"testing"

	"github.com/emersion/go-imap"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillmail/syncengine/internal/logger"
	"github.com/quillmail/syncengine/internal/models"
)

// fakeSession records protocol commands so tests can assert session
// open/close parity and command order.
type fakeSession struct {
	selected   []string
	storeItems []imap.StoreItem
	copies     []string
	expunges   int
	logouts    int

	selectErr error
	storeErr  error
	copyErr   error
}

func (f *fakeSession) Select(name string, readOnly bool) (*imap.MailboxStatus, error) {
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	f.selected = append(f.selected, name)
	return &imap.MailboxStatus{Name: name}, nil
}

func (f *fakeSession) UidStore(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	f.storeItems = append(f.storeItems, item)
	return nil
}

func (f *fakeSession) UidCopy(seqset *imap.SeqSet, dest string) error {
	if f.copyErr != nil {
		return f.copyErr
	}
	f.copies = append(f.copies, dest)
	return nil
}

func (f *fakeSession) Expunge(ch chan uint32) error {
	f.expunges++
	return nil
}

func (f *fakeSession) Logout() error {
	f.logouts++
	return nil
}

type imapFixture struct {
	client  *Client
	session *fakeSession
	dials   int
	dialErr error
}

func newImapFixture(t *testing.T) *imapFixture {
	t.Helper()

	log := logger.NewAppLogger(&logger.Config{LogLevel: "error", Encoder: "console"})
	log.InitLogger()

	fixture := &imapFixture{session: &fakeSession{}}
	account := &models.MailAccount{ID: "acct_imap", ImapServer: "mail.example.com", ImapPort: 993}

	dialer := func(account *models.MailAccount) (Session, error) {
		fixture.dials++
		if fixture.dialErr != nil {
			return nil, fixture.dialErr
		}
		return fixture.session, nil
	}

	fixture.client = NewClientWithDialer(account, dialer, log)
	return fixture
}

func testEmail() *models.Email {
	return &models.Email{ID: "email_1", AccountID: "acct_imap", Folder: "INBOX", ImapUID: 42}
}

func TestApplyMarkRead_SessionParity(t *testing.T) {
	fixture := newImapFixture(t)

	err := fixture.client.ApplyMarkRead(context.Background(), testEmail(), true)
	require.NoError(t, err)

	// one session per command: one dial, one logout
	assert.Equal(t, 1, fixture.dials)
	assert.Equal(t, 1, fixture.session.logouts)
	assert.Equal(t, []string{"INBOX"}, fixture.session.selected)
	assert.Len(t, fixture.session.storeItems, 1)
}

func TestApplyDelete_StoresAndExpunges(t *testing.T) {
	fixture := newImapFixture(t)

	err := fixture.client.ApplyDelete(context.Background(), testEmail())
	require.NoError(t, err)

	assert.Len(t, fixture.session.storeItems, 1)
	assert.Equal(t, 1, fixture.session.expunges)
	assert.Equal(t, 1, fixture.session.logouts)
}

func TestApplyMove_CopyThenDeleteThenExpunge(t *testing.T) {
	fixture := newImapFixture(t)

	err := fixture.client.ApplyMove(context.Background(), testEmail(), "Archive")
	require.NoError(t, err)

	assert.Equal(t, []string{"Archive"}, fixture.session.copies)
	assert.Len(t, fixture.session.storeItems, 1)
	assert.Equal(t, 1, fixture.session.expunges)
	assert.Equal(t, 1, fixture.session.logouts)
}

func TestSelectFailure_StillEndsSession(t *testing.T) {
	fixture := newImapFixture(t)
	fixture.session.selectErr = errors.New("no such mailbox")

	err := fixture.client.ApplyMarkRead(context.Background(), testEmail(), true)
	require.Error(t, err)

	assert.Equal(t, 1, fixture.dials)
	assert.Equal(t, 1, fixture.session.logouts)
	assert.Empty(t, fixture.session.storeItems)
}

func TestStoreFailure_StillEndsSession(t *testing.T) {
	fixture := newImapFixture(t)
	fixture.session.storeErr = errors.New("store rejected")

	err := fixture.client.ApplyFlag(context.Background(), testEmail(), true)
	require.Error(t, err)

	assert.Equal(t, 1, fixture.dials)
	assert.Equal(t, 1, fixture.session.logouts)
}

func TestDialFailure_SurfacesError(t *testing.T) {
	fixture := newImapFixture(t)
	fixture.dialErr = errors.New("connection refused")

	err := fixture.client.ApplyDelete(context.Background(), testEmail())
	require.Error(t, err)
	assert.Equal(t, 1, fixture.dials)
}

func TestMissingUIDOrFolder_NeverDials(t *testing.T) {
	fixture := newImapFixture(t)

	noUID := testEmail()
	noUID.ImapUID = 0
	assert.Error(t, fixture.client.ApplyDelete(context.Background(), noUID))

	noFolder := testEmail()
	noFolder.Folder = ""
	assert.Error(t, fixture.client.ApplyDelete(context.Background(), noFolder))

	assert.Equal(t, 0, fixture.dials)
}
