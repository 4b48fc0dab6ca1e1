package outlook

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	graphmodels "github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/users"
	"github.com/pkg/errors"

	"github.com/quillmail/syncengine/internal/models"
	"github.com/quillmail/syncengine/internal/utils"
)

const deletedItemsFolder = "deleteditems"

// Client applies mailbox actions through Microsoft Graph, one bearer-token
// request per action. Delete is Graph's soft delete: a move into the
// Deleted Items well-known folder.
type Client struct {
	client *msgraphsdk.GraphServiceClient
	userID string
}

func NewClient(account *models.MailAccount) (*Client, error) {
	cred := &staticTokenCredential{token: account.AccessToken}

	client, err := msgraphsdk.NewGraphServiceClientWithCredentials(cred, []string{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Graph client")
	}

	return &Client{
		client: client,
		userID: account.ProviderUserID,
	}, nil
}

func (c *Client) ApplyDelete(ctx context.Context, email *models.Email) error {
	return c.moveTo(ctx, email, deletedItemsFolder)
}

func (c *Client) ApplyMove(ctx context.Context, email *models.Email, targetFolder string) error {
	return c.moveTo(ctx, email, targetFolder)
}

func (c *Client) moveTo(ctx context.Context, email *models.Email, destination string) error {
	body := users.NewItemMessagesItemMovePostRequestBody()
	body.SetDestinationId(utils.Ptr(destination))

	_, err := c.client.Users().
		ByUserId(c.userID).
		Messages().
		ByMessageId(email.ProviderMessageID).
		Move().
		Post(ctx, body, nil)
	if err != nil {
		return errors.Wrap(err, "failed to move message")
	}
	return nil
}

func (c *Client) ApplyMarkRead(ctx context.Context, email *models.Email, read bool) error {
	message := graphmodels.NewMessage()
	message.SetIsRead(utils.Ptr(read))

	_, err := c.client.Users().
		ByUserId(c.userID).
		Messages().
		ByMessageId(email.ProviderMessageID).
		Patch(ctx, message, nil)
	if err != nil {
		return errors.Wrap(err, "failed to update read state")
	}
	return nil
}

func (c *Client) ApplyFlag(ctx context.Context, email *models.Email, flagged bool) error {
	status := graphmodels.NOTFLAGGED_FOLLOWUPFLAGSTATUS
	if flagged {
		status = graphmodels.FLAGGED_FOLLOWUPFLAGSTATUS
	}

	followupFlag := graphmodels.NewFollowupFlag()
	followupFlag.SetFlagStatus(&status)

	message := graphmodels.NewMessage()
	message.SetFlag(followupFlag)

	_, err := c.client.Users().
		ByUserId(c.userID).
		Messages().
		ByMessageId(email.ProviderMessageID).
		Patch(ctx, message, nil)
	if err != nil {
		return errors.Wrap(err, "failed to update flag state")
	}
	return nil
}

// staticTokenCredential adapts the stored access token to the Azure
// credential interface; refresh is the auth flow's responsibility, so an
// expired token surfaces as a remote auth failure.
type staticTokenCredential struct {
	token string
}

func (c *staticTokenCredential) GetToken(ctx context.Context, options policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{
		Token:     c.token,
		ExpiresOn: time.Now().Add(1 * time.Hour),
	}, nil
}
