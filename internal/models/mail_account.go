package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/quillmail/syncengine/internal/enum"
	"github.com/quillmail/syncengine/internal/utils"
)

// MailAccount holds the provider identity and credentials for one connected
// mailbox. The action adapter reads this record but never mutates it; token
// rotation belongs to the auth flow.
type MailAccount struct {
	ID           string            `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	Provider     enum.ProviderKind `gorm:"column:provider;type:varchar(20);index;not null" json:"provider"`
	EmailAddress string            `gorm:"column:email_address;type:varchar(255);index;not null" json:"emailAddress"`
	DisplayName  string            `gorm:"column:display_name;type:varchar(255)" json:"displayName"`

	// OAuth credentials (google, outlook)
	ProviderUserID string     `gorm:"column:provider_user_id;type:varchar(255)" json:"providerUserId"`
	AccessToken    string     `gorm:"column:access_token;type:text" json:"-"`
	RefreshToken   string     `gorm:"column:refresh_token;type:text" json:"-"`
	TokenExpiry    *time.Time `gorm:"column:token_expiry;type:timestamp" json:"tokenExpiry,omitempty"`

	// IMAP connection parameters
	ImapServer   string                  `gorm:"column:imap_server;type:varchar(255)" json:"imapServer"`
	ImapPort     int                     `gorm:"column:imap_port" json:"imapPort"`
	ImapUsername string                  `gorm:"column:imap_username;type:varchar(255)" json:"imapUsername"`
	ImapPassword string                  `gorm:"column:imap_password;type:varchar(255)" json:"-"`
	ImapSecurity enum.ConnectionSecurity `gorm:"column:imap_security;type:varchar(20);default:'tls'" json:"imapSecurity"`

	SyncFolders pq.StringArray `gorm:"column:sync_folders;type:text[]" json:"syncFolders"`

	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (MailAccount) TableName() string {
	return "mail_accounts"
}

func (a *MailAccount) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = utils.GenerateIDWithPrefix("acct", 16)
	}
	return nil
}
