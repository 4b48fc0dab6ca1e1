package dto

import (
	"github.com/quillmail/syncengine/internal/enum"
)

// CheckpointUpdate carries a partial progress update from the ingestion
// process. Nil fields are left untouched on the live checkpoint.
type CheckpointUpdate struct {
	MessagesProcessed *int64                 `json:"messagesProcessed,omitempty"`
	CurrentCursor     *string                `json:"currentCursor,omitempty"`
	CurrentPageToken  *string                `json:"currentPageToken,omitempty"`
	CurrentBatch      *int                   `json:"currentBatch,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
}

type CreateCheckpointRequest struct {
	SyncType      enum.SyncType `json:"syncType" binding:"required"`
	TotalMessages int64         `json:"totalMessages,omitempty"`
	FolderID      string        `json:"folderId,omitempty"`
}

type SyncProgressResponse struct {
	AccountID         string          `json:"accountId"`
	FolderID          string          `json:"folderId,omitempty"`
	Status            enum.SyncStatus `json:"status"`
	MessagesProcessed int64           `json:"messagesProcessed"`
	TotalMessages     int64           `json:"totalMessages"`
	Progress          float64         `json:"progress"`
	CanResume         bool            `json:"canResume"`
}
