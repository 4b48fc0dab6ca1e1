package enum

type SyncType string

const (
	SyncTypeInitial SyncType = "initial"
	SyncTypeManual  SyncType = "manual"
	SyncTypeAuto    SyncType = "auto"
)

func (t SyncType) String() string {
	return string(t)
}

type SyncStatus string

const (
	SyncStatusInProgress SyncStatus = "in_progress"
	SyncStatusPaused     SyncStatus = "paused"
	SyncStatusCompleted  SyncStatus = "completed"
	SyncStatusFailed     SyncStatus = "failed"
)

func (t SyncStatus) String() string {
	return string(t)
}

// IsLive reports whether a checkpoint in this status still owns the
// (account, folder) key. Completed and failed checkpoints are terminal.
func (t SyncStatus) IsLive() bool {
	return t == SyncStatusInProgress || t == SyncStatusPaused
}
