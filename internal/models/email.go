package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/quillmail/syncengine/internal/utils"
)

// Email is the local mirror record of one ingested message, holding just
// enough context to route an action back to its provider: owning account,
// provider-native id and current folder/label placement.
type Email struct {
	ID        string `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	AccountID string `gorm:"column:account_id;type:varchar(50);index;not null" json:"accountId"`

	ProviderMessageID string `gorm:"column:provider_message_id;type:varchar(255);index;not null" json:"providerMessageId"`
	ProviderThreadID  string `gorm:"column:provider_thread_id;type:varchar(255)" json:"providerThreadId"`
	Folder            string `gorm:"column:folder;type:varchar(100);index" json:"folder"`

	// IMAP addressing; zero for REST providers
	ImapUID uint32 `gorm:"column:imap_uid" json:"imapUid,omitempty"`

	Subject    string     `gorm:"column:subject;type:text" json:"subject"`
	FromEmail  string     `gorm:"column:from_email;type:varchar(255)" json:"fromEmail"`
	IsRead     bool       `gorm:"column:is_read;not null;default:false" json:"isRead"`
	IsFlagged  bool       `gorm:"column:is_flagged;not null;default:false" json:"isFlagged"`
	ReceivedAt *time.Time `gorm:"column:received_at;type:timestamp" json:"receivedAt,omitempty"`

	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (Email) TableName() string {
	return "emails"
}

func (e *Email) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = utils.GenerateIDWithPrefix("email", 16)
	}
	return nil
}
