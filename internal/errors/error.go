package errors

import "github.com/pkg/errors"

var (
	// checkpoint errors
	ErrCheckpointExists   = errors.New("a live checkpoint already exists for this account and folder")
	ErrCheckpointNotFound = errors.New("checkpoint not found")
	ErrInvalidTransition  = errors.New("invalid checkpoint status transition")

	// action errors
	ErrAccountNotFound     = errors.New("mail account not found")
	ErrEmailNotFound       = errors.New("email not found")
	ErrUnknownAction       = errors.New("unknown mail action")
	ErrTargetFolderEmpty   = errors.New("move requires a target folder")
	ErrUnsupportedProvider = errors.New("unsupported mail provider")
)
