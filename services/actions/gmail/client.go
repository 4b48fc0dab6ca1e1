package gmail

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/quillmail/syncengine/internal/models"
)

// Client applies mailbox actions through the Gmail REST API. Gmail has no
// dedicated read/starred fields or folders: everything is expressed as
// adding and removing labels on the message.
type Client struct {
	svc    *gmail.Service
	userID string
}

func NewClient(ctx context.Context, account *models.MailAccount) (*Client, error) {
	oauth2Token := &oauth2.Token{
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
	}
	if account.TokenExpiry != nil {
		oauth2Token.Expiry = *account.TokenExpiry
	}

	config := &oauth2.Config{
		Scopes: []string{gmail.GmailModifyScope},
	}

	// The oauth2 client refreshes the access token transparently when it
	// expires, so expired credentials surface as auth failures only when
	// the refresh token itself is no longer valid.
	httpClient := config.Client(ctx, oauth2Token)

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Gmail service")
	}

	return &Client{svc: svc, userID: "me"}, nil
}

func (c *Client) ApplyDelete(ctx context.Context, email *models.Email) error {
	_, err := c.svc.Users.Messages.Trash(c.userID, email.ProviderMessageID).Context(ctx).Do()
	if err != nil {
		return errors.Wrap(err, "failed to trash message")
	}
	return nil
}

func (c *Client) ApplyMove(ctx context.Context, email *models.Email, targetFolder string) error {
	modify := &gmail.ModifyMessageRequest{
		AddLabelIds: []string{folderToLabelID(targetFolder)},
	}
	if email.Folder != "" {
		modify.RemoveLabelIds = []string{folderToLabelID(email.Folder)}
	}

	_, err := c.svc.Users.Messages.Modify(c.userID, email.ProviderMessageID, modify).Context(ctx).Do()
	if err != nil {
		return errors.Wrap(err, "failed to move message")
	}
	return nil
}

func (c *Client) ApplyMarkRead(ctx context.Context, email *models.Email, read bool) error {
	modify := &gmail.ModifyMessageRequest{}
	if read {
		modify.RemoveLabelIds = []string{labelUnread}
	} else {
		modify.AddLabelIds = []string{labelUnread}
	}

	_, err := c.svc.Users.Messages.Modify(c.userID, email.ProviderMessageID, modify).Context(ctx).Do()
	if err != nil {
		return errors.Wrap(err, "failed to update read state")
	}
	return nil
}

func (c *Client) ApplyFlag(ctx context.Context, email *models.Email, flagged bool) error {
	modify := &gmail.ModifyMessageRequest{}
	if flagged {
		modify.AddLabelIds = []string{labelStarred}
	} else {
		modify.RemoveLabelIds = []string{labelStarred}
	}

	_, err := c.svc.Users.Messages.Modify(c.userID, email.ProviderMessageID, modify).Context(ctx).Do()
	if err != nil {
		return errors.Wrap(err, "failed to update starred state")
	}
	return nil
}
