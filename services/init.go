package services

import (
	"time"

	"github.com/quillmail/syncengine/config"
	"github.com/quillmail/syncengine/interfaces"
	"github.com/quillmail/syncengine/internal/logger"
	"github.com/quillmail/syncengine/internal/repository"
	"github.com/quillmail/syncengine/services/actions"
	"github.com/quillmail/syncengine/services/checkpoint"
	"github.com/quillmail/syncengine/services/events"
)

type Services struct {
	EventPublisher  interfaces.EventPublisher
	CheckpointStore interfaces.CheckpointStore
	ActionService   interfaces.ActionService
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	// events are optional; the engine runs without a bus in local setups
	var publisher interfaces.EventPublisher
	if cfg.AppConfig.RabbitMQURL != "" {
		p, err := events.NewRabbitMQPublisher(cfg.AppConfig.RabbitMQURL, log)
		if err != nil {
			return nil, err
		}
		publisher = p
	}

	var policy checkpoint.PersistencePolicy
	if cfg.SyncConfig.FailFastPersistence {
		policy = checkpoint.NewFailFastPolicy()
	}

	checkpointStore := checkpoint.NewCheckpointService(repos.CheckpointRepository, publisher, log, &checkpoint.Options{
		PersistBatchSize: cfg.SyncConfig.PersistBatchSize,
		StalenessWindow:  time.Duration(cfg.SyncConfig.StalenessWindowHours) * time.Hour,
		EvictionGrace:    time.Duration(cfg.SyncConfig.EvictionGraceSeconds) * time.Second,
		Policy:           policy,
	})

	actionService := actions.NewActionsService(
		repos.AccountRepository,
		repos.EmailRepository,
		actions.NewProviderClientFactory(log),
		publisher,
		log,
	)

	return &Services{
		EventPublisher:  publisher,
		CheckpointStore: checkpointStore,
		ActionService:   actionService,
	}, nil
}
