package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/quillmail/syncengine/dto"
	"github.com/quillmail/syncengine/interfaces"
	er "github.com/quillmail/syncengine/internal/errors"
)

const defaultHistoryLimit = 20

// CreateCheckpoint starts a new ingestion run for an account folder.
func CreateCheckpoint(store interfaces.CheckpointStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.Param("accountId")

		var request dto.CreateCheckpointRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		checkpoint, err := store.CreateCheckpoint(c.Request.Context(), accountID, request.SyncType, request.TotalMessages, request.FolderID)
		if err != nil {
			if errors.Is(err, er.ErrCheckpointExists) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, checkpoint)
	}
}

// UpdateCheckpoint merges a partial progress update into the live checkpoint.
func UpdateCheckpoint(store interfaces.CheckpointStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.Param("accountId")

		var updates dto.CheckpointUpdate
		if err := c.ShouldBindJSON(&updates); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := store.UpdateCheckpoint(c.Request.Context(), accountID, updates, c.Query("folderId")); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// CompleteCheckpoint marks the live checkpoint as done.
func CompleteCheckpoint(store interfaces.CheckpointStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.Param("accountId")

		if err := store.CompleteCheckpoint(c.Request.Context(), accountID, c.Query("folderId")); err != nil {
			writeCheckpointError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type failCheckpointRequest struct {
	ErrorMessage string `json:"errorMessage" binding:"required"`
}

// FailCheckpoint marks the live checkpoint as failed with a reason.
func FailCheckpoint(store interfaces.CheckpointStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.Param("accountId")

		var request failCheckpointRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := store.FailCheckpoint(c.Request.Context(), accountID, request.ErrorMessage, c.Query("folderId")); err != nil {
			writeCheckpointError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// GetCheckpoint returns the latest checkpoint for the key.
func GetCheckpoint(store interfaces.CheckpointStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.Param("accountId")

		checkpoint, err := store.GetCheckpoint(c.Request.Context(), accountID, c.Query("folderId"))
		if err != nil {
			writeCheckpointError(c, err)
			return
		}
		if checkpoint == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": er.ErrCheckpointNotFound.Error()})
			return
		}
		c.JSON(http.StatusOK, checkpoint)
	}
}

// GetProgress reports display progress plus resumability for the key.
func GetProgress(store interfaces.CheckpointStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.Param("accountId")
		folderID := c.Query("folderId")
		ctx := c.Request.Context()

		response := dto.SyncProgressResponse{
			AccountID: accountID,
			FolderID:  folderID,
			Progress:  store.GetProgress(ctx, accountID, folderID),
			CanResume: store.CanResumeSync(ctx, accountID, folderID),
		}

		if checkpoint, err := store.GetCheckpoint(ctx, accountID, folderID); err == nil && checkpoint != nil {
			response.Status = checkpoint.Status
			response.MessagesProcessed = checkpoint.MessagesProcessed
			response.TotalMessages = checkpoint.TotalMessages
		}

		c.JSON(http.StatusOK, response)
	}
}

// GetHistory lists past checkpoints for the key, most recent first.
func GetHistory(repo interfaces.CheckpointRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.Param("accountId")

		limit := defaultHistoryLimit
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
				return
			}
			limit = parsed
		}

		history, err := repo.GetHistory(c.Request.Context(), accountID, c.Query("folderId"), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"checkpoints": history})
	}
}

// PauseCheckpoint suspends the live checkpoint without losing its position.
func PauseCheckpoint(store interfaces.CheckpointStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.Param("accountId")

		if err := store.PauseCheckpoint(c.Request.Context(), accountID, c.Query("folderId")); err != nil {
			writeCheckpointError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// ResumeCheckpoint reactivates a paused checkpoint and returns it so the
// caller can re-enter ingestion at the stored position.
func ResumeCheckpoint(store interfaces.CheckpointStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.Param("accountId")

		checkpoint, err := store.ResumeCheckpoint(c.Request.Context(), accountID, c.Query("folderId"))
		if err != nil {
			writeCheckpointError(c, err)
			return
		}
		c.JSON(http.StatusOK, checkpoint)
	}
}

// ClearCheckpoints drops all checkpoint state for an account.
func ClearCheckpoints(store interfaces.CheckpointStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.Param("accountId")

		if err := store.ClearCheckpoints(c.Request.Context(), accountID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func writeCheckpointError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, er.ErrCheckpointNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, er.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
