package repository

import (
	"gorm.io/gorm"

	"github.com/quillmail/syncengine/interfaces"
	"github.com/quillmail/syncengine/internal/models"
)

type Repositories struct {
	AccountRepository    interfaces.AccountRepository
	EmailRepository      interfaces.EmailRepository
	CheckpointRepository interfaces.CheckpointRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		AccountRepository:    NewAccountRepository(db),
		EmailRepository:      NewEmailRepository(db),
		CheckpointRepository: NewCheckpointRepository(db),
	}
}

func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.MailAccount{},
		&models.Email{},
		&models.SyncCheckpoint{},
	)
}
