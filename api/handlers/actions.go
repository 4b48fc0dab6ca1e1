package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quillmail/syncengine/dto"
	"github.com/quillmail/syncengine/interfaces"
)

type batchActionRequest struct {
	Requests []dto.ActionRequest `json:"requests" binding:"required,min=1"`
}

// ApplyAction pushes a single mailbox action back to the provider.
func ApplyAction(actionService interfaces.ActionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request dto.ActionRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result := actionService.ApplyAction(c.Request.Context(), request)
		if !result.Success {
			c.JSON(http.StatusUnprocessableEntity, result)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// ApplyBatchAction fans a list of actions out to the provider and reports
// per-request outcomes in input order.
func ApplyBatchAction(actionService interfaces.ActionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request batchActionRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result := actionService.ApplyBatchAction(c.Request.Context(), request.Requests)
		if !result.OverallSuccess {
			c.JSON(http.StatusMultiStatus, result)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
