package checkpoint

import (
	"github.com/quillmail/syncengine/internal/logger"
)

// PersistencePolicy decides what happens when a durable checkpoint write
// fails. The default is best effort: losing one write costs at most one
// batch of re-processed messages on resume, which ingestion already
// tolerates through idempotent upserts.
type PersistencePolicy interface {
	HandlePersistError(key string, err error) error
}

type bestEffortPolicy struct {
	log logger.Logger
}

// NewBestEffortPolicy logs persistence failures and swallows them.
func NewBestEffortPolicy(log logger.Logger) PersistencePolicy {
	return &bestEffortPolicy{log: log}
}

func (p *bestEffortPolicy) HandlePersistError(key string, err error) error {
	p.log.Warnf("checkpoint persist failed for %s: %v", key, err)
	return nil
}

type failFastPolicy struct{}

// NewFailFastPolicy surfaces persistence failures to the caller, for
// deployments that cannot tolerate losing checkpoint writes.
func NewFailFastPolicy() PersistencePolicy {
	return &failFastPolicy{}
}

func (p *failFastPolicy) HandlePersistError(key string, err error) error {
	return err
}
