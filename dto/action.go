package dto

import (
	"github.com/quillmail/syncengine/internal/enum"
)

// ActionRequest is one user-initiated mailbox mutation to push back to the
// provider. TargetFolder is only meaningful for move.
type ActionRequest struct {
	EmailID      string          `json:"emailId" binding:"required"`
	Action       enum.MailAction `json:"action" binding:"required"`
	TargetFolder string          `json:"targetFolder,omitempty"`
}

// ActionResult is the outcome for one request. Remote and validation
// failures are carried here as data, never as errors across the adapter
// boundary.
type ActionResult struct {
	EmailID string `json:"emailId"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BatchActionResult aggregates a fan-out of action requests. Results keeps
// one entry per input request, in input order. OverallSuccess is true only
// when every entry succeeded.
type BatchActionResult struct {
	OverallSuccess bool           `json:"overallSuccess"`
	Results        []ActionResult `json:"results"`
}
