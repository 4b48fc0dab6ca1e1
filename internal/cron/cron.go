package cron

import (
	"context"
	"time"

	tracingLog "github.com/opentracing/opentracing-go/log"
	cronv3 "github.com/robfig/cron/v3"

	"github.com/quillmail/syncengine/config"
	"github.com/quillmail/syncengine/internal/enum"
	"github.com/quillmail/syncengine/internal/logger"
	"github.com/quillmail/syncengine/internal/repository"
	"github.com/quillmail/syncengine/internal/tracing"
	"github.com/quillmail/syncengine/internal/utils"
)

// CronManager runs the engine's periodic maintenance. Today that is one
// job: retiring live checkpoints that stopped making progress, so the
// one-live-per-key invariant does not rot when an ingestion worker dies
// without failing its checkpoint.
type CronManager struct {
	cfg    *config.Config
	log    logger.Logger
	repos  *repository.Repositories
	cron   *cronv3.Cron
	jobIDs map[string]cronv3.EntryID
}

func NewCronManager(cfg *config.Config, log logger.Logger, repos *repository.Repositories) *CronManager {
	return &CronManager{
		cfg:    cfg,
		log:    log,
		repos:  repos,
		cron:   cronv3.New(),
		jobIDs: make(map[string]cronv3.EntryID),
	}
}

func (cm *CronManager) StartCron() error {
	id, err := cm.cron.AddFunc(cm.cfg.SyncConfig.ReaperSchedule, func() {
		cm.reapAbandonedCheckpoints(context.Background())
	})
	if err != nil {
		return err
	}
	cm.jobIDs["reap_abandoned_checkpoints"] = id

	cm.cron.Start()
	cm.log.Infof("cron started, reaper schedule %s", cm.cfg.SyncConfig.ReaperSchedule)
	return nil
}

func (cm *CronManager) StopCron() {
	ctx := cm.cron.Stop()
	<-ctx.Done()
	cm.log.Info("cron stopped")
}

func (cm *CronManager) reapAbandonedCheckpoints(ctx context.Context) {
	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.reapAbandonedCheckpoints")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	window := time.Duration(cm.cfg.SyncConfig.StalenessWindowHours) * time.Hour
	cutoff := utils.Now().Add(-window)

	stale, err := cm.repos.CheckpointRepository.GetLiveOlderThan(ctx, cutoff)
	if err != nil {
		tracing.TraceErr(span, err)
		cm.log.Errorf("failed to list abandoned checkpoints: %v", err)
		return
	}

	reaped := 0
	for _, checkpoint := range stale {
		checkpoint.Status = enum.SyncStatusFailed
		checkpoint.ErrorMessage = "abandoned: no progress within staleness window"
		checkpoint.LastCheckpointAt = utils.Now()

		if err := cm.repos.CheckpointRepository.Save(ctx, checkpoint); err != nil {
			tracing.TraceErr(span, err)
			cm.log.Warnf("failed to retire checkpoint %s: %v", checkpoint.ID, err)
			continue
		}
		reaped++
	}

	span.LogFields(tracingLog.Int("stale_count", len(stale)), tracingLog.Int("reaped", reaped))
	if reaped > 0 {
		cm.log.Infof("retired %d abandoned checkpoint(s)", reaped)
	}
}
