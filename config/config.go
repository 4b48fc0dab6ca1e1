package config

import (
	"github.com/quillmail/syncengine/internal/logger"
	"github.com/quillmail/syncengine/internal/tracing"
)

type AppConfig struct {
	APIPort     string `env:"PORT" envDefault:"11000"`
	APIKey      string `env:"API_KEY,required"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
}

type DatabaseConfig struct {
	Host            string `env:"SYNCENGINE_POSTGRES_HOST,required"`
	Port            string `env:"SYNCENGINE_POSTGRES_PORT,required"`
	User            string `env:"SYNCENGINE_POSTGRES_USER,required"`
	DBName          string `env:"SYNCENGINE_POSTGRES_DB_NAME,required"`
	Password        string `env:"SYNCENGINE_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"SYNCENGINE_POSTGRES_DB_MAX_CONN" envDefault:"20"`
	MaxIdleConn     int    `env:"SYNCENGINE_POSTGRES_DB_MAX_IDLE_CONN" envDefault:"5"`
	ConnMaxLifetime int    `env:"SYNCENGINE_POSTGRES_DB_CONN_MAX_LIFETIME" envDefault:"60"`
	SSLMode         string `env:"SYNCENGINE_POSTGRES_SSL_MODE" envDefault:"require"`
}

type SyncConfig struct {
	PersistBatchSize     int    `env:"SYNC_PERSIST_BATCH_SIZE" envDefault:"10"`
	StalenessWindowHours int    `env:"SYNC_STALENESS_WINDOW_HOURS" envDefault:"24"`
	EvictionGraceSeconds int    `env:"SYNC_EVICTION_GRACE_SECONDS" envDefault:"30"`
	FailFastPersistence  bool   `env:"SYNC_FAIL_FAST_PERSISTENCE" envDefault:"false"`
	ReaperSchedule       string `env:"SYNC_REAPER_SCHEDULE" envDefault:"@hourly"`
}

type Config struct {
	AppConfig      *AppConfig
	Logger         *logger.Config
	Tracing        *tracing.JaegerConfig
	DatabaseConfig *DatabaseConfig
	SyncConfig     *SyncConfig
}
