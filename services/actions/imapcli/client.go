package imapcli

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/pkg/errors"

	"github.com/quillmail/syncengine/internal/enum"
	"github.com/quillmail/syncengine/internal/logger"
	"github.com/quillmail/syncengine/internal/models"
)

// Session is the slice of the IMAP protocol the action client needs. The
// production implementation is *client.Client; tests substitute a double to
// assert open/close parity.
type Session interface {
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	UidStore(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error
	UidCopy(seqset *imap.SeqSet, dest string) error
	Expunge(ch chan uint32) error
	Logout() error
}

// Dialer opens an authenticated session against the account's IMAP server.
type Dialer func(account *models.MailAccount) (Session, error)

// Client applies mailbox actions over a stateful IMAP session. Every call
// opens the target mailbox, issues its commands and ends the session on all
// exit paths; IMAP servers enforce small per-user connection limits, so a
// leaked session is a correctness problem, not just untidiness.
type Client struct {
	account *models.MailAccount
	dial    Dialer
	log     logger.Logger
}

func NewClient(account *models.MailAccount, log logger.Logger) *Client {
	return &Client{account: account, dial: dialAndLogin, log: log}
}

// NewClientWithDialer injects a custom dialer; used by tests.
func NewClientWithDialer(account *models.MailAccount, dial Dialer, log logger.Logger) *Client {
	return &Client{account: account, dial: dial, log: log}
}

func dialAndLogin(account *models.MailAccount) (Session, error) {
	serverAddr := fmt.Sprintf("%s:%d", account.ImapServer, account.ImapPort)

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	var c *client.Client
	var err error

	switch account.ImapSecurity {
	case enum.ConnectionSecurityTLS, enum.ConnectionSecuritySSL:
		tlsConfig := &tls.Config{ServerName: account.ImapServer}
		c, err = client.DialWithDialerTLS(dialer, serverAddr, tlsConfig)
	default:
		c, err = client.DialWithDialer(dialer, serverAddr)
	}
	if err != nil {
		return nil, errors.Wrap(err, "connection error")
	}

	if err := c.Login(account.ImapUsername, account.ImapPassword); err != nil {
		c.Logout()
		return nil, errors.Wrap(err, "login error")
	}

	return c, nil
}

func (c *Client) ApplyDelete(ctx context.Context, email *models.Email) error {
	return c.withMessage(email, func(session Session, seqSet *imap.SeqSet) error {
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := session.UidStore(seqSet, item, []interface{}{imap.DeletedFlag}, nil); err != nil {
			return errors.Wrap(err, "failed to mark message deleted")
		}
		if err := session.Expunge(nil); err != nil {
			return errors.Wrap(err, "failed to expunge")
		}
		return nil
	})
}

// ApplyMove copies to the destination mailbox and expunges the original;
// plain IMAP has no move, MOVE is an extension not every server offers.
func (c *Client) ApplyMove(ctx context.Context, email *models.Email, targetFolder string) error {
	return c.withMessage(email, func(session Session, seqSet *imap.SeqSet) error {
		if err := session.UidCopy(seqSet, targetFolder); err != nil {
			return errors.Wrap(err, "failed to copy message")
		}
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := session.UidStore(seqSet, item, []interface{}{imap.DeletedFlag}, nil); err != nil {
			return errors.Wrap(err, "failed to mark original deleted")
		}
		if err := session.Expunge(nil); err != nil {
			return errors.Wrap(err, "failed to expunge")
		}
		return nil
	})
}

func (c *Client) ApplyMarkRead(ctx context.Context, email *models.Email, read bool) error {
	return c.storeFlag(email, imap.SeenFlag, read)
}

func (c *Client) ApplyFlag(ctx context.Context, email *models.Email, flagged bool) error {
	return c.storeFlag(email, imap.FlaggedFlag, flagged)
}

func (c *Client) storeFlag(email *models.Email, flag string, add bool) error {
	return c.withMessage(email, func(session Session, seqSet *imap.SeqSet) error {
		op := imap.FlagsOp(imap.RemoveFlags)
		if add {
			op = imap.AddFlags
		}
		item := imap.FormatFlagsOp(op, true)
		if err := session.UidStore(seqSet, item, []interface{}{flag}, nil); err != nil {
			return errors.Wrap(err, "failed to store flags")
		}
		return nil
	})
}

// withMessage opens a session, selects the message's mailbox and runs fn
// against its UID. The deferred logout guarantees exactly one session end
// per call, whatever path the command takes.
func (c *Client) withMessage(email *models.Email, fn func(session Session, seqSet *imap.SeqSet) error) error {
	if email.ImapUID == 0 {
		return errors.New("message has no IMAP UID")
	}
	if email.Folder == "" {
		return errors.New("message has no folder context")
	}

	session, err := c.dial(c.account)
	if err != nil {
		return err
	}
	defer func() {
		if logoutErr := session.Logout(); logoutErr != nil {
			c.log.Warnf("imap logout failed for %s: %v", c.account.ID, logoutErr)
		}
	}()

	if _, err := session.Select(email.Folder, false); err != nil {
		return errors.Wrap(err, "failed to select folder")
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(email.ImapUID)

	return fn(session, seqSet)
}
