package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/quillmail/syncengine/internal/enum"
	"github.com/quillmail/syncengine/internal/utils"
)

// SyncCheckpoint records the resumable progress of a single ingestion run
// for one account folder. At most one checkpoint per (account, folder) key
// is live at any time; completed and failed checkpoints are kept for history.
type SyncCheckpoint struct {
	ID        string        `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	AccountID string        `gorm:"column:account_id;type:varchar(50);index:idx_checkpoint_key;not null" json:"accountId"`
	FolderID  string        `gorm:"column:folder_id;type:varchar(100);index:idx_checkpoint_key" json:"folderId"`
	SyncType  enum.SyncType `gorm:"column:sync_type;type:varchar(20);not null" json:"syncType"`

	Status       enum.SyncStatus `gorm:"column:status;type:varchar(20);index;not null" json:"status"`
	ErrorMessage string          `gorm:"column:error_message;type:text" json:"errorMessage,omitempty"`

	MessagesProcessed int64 `gorm:"column:messages_processed;not null" json:"messagesProcessed"`
	TotalMessages     int64 `gorm:"column:total_messages;not null" json:"totalMessages"`
	CurrentBatch      int   `gorm:"column:current_batch;not null" json:"currentBatch"`

	// Opaque provider continuation markers; which one is populated depends
	// on the provider family.
	CurrentCursor    string `gorm:"column:current_cursor;type:text" json:"currentCursor,omitempty"`
	CurrentPageToken string `gorm:"column:current_page_token;type:text" json:"currentPageToken,omitempty"`

	Metadata JSONMap `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`

	StartedAt        time.Time `gorm:"column:started_at;type:timestamp;not null" json:"startedAt"`
	LastCheckpointAt time.Time `gorm:"column:last_checkpoint_at;type:timestamp;not null" json:"lastCheckpointAt"`
	CreatedAt        time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt        time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
}

func (SyncCheckpoint) TableName() string {
	return "sync_checkpoints"
}

func (c *SyncCheckpoint) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = utils.GenerateIDWithPrefix("ckpt", 16)
	}
	return nil
}

// Progress returns the processed fraction as a percentage. Zero when the
// total is unknown. Display only, never a correctness signal.
func (c *SyncCheckpoint) Progress() float64 {
	if c.TotalMessages <= 0 {
		return 0
	}
	return float64(c.MessagesProcessed) / float64(c.TotalMessages) * 100
}
