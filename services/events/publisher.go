package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"

	"github.com/quillmail/syncengine/dto"
	"github.com/quillmail/syncengine/interfaces"
	"github.com/quillmail/syncengine/internal/enum"
	"github.com/quillmail/syncengine/internal/logger"
	"github.com/quillmail/syncengine/internal/models"
	"github.com/quillmail/syncengine/internal/tracing"
	"github.com/quillmail/syncengine/internal/utils"
)

const (
	ExchangeSyncEngine = "syncengine-direct"

	RoutingKeyActionApplied = "mail-action-applied"
	RoutingKeySyncCompleted = "mailbox-sync-completed"

	DefaultPublishTimeout = 5 * time.Second
)

type eventEnvelope struct {
	ID         string      `json:"id"`
	Event      string      `json:"event"`
	AccountID  string      `json:"accountId"`
	OccurredAt time.Time   `json:"occurredAt"`
	Data       interface{} `json:"data"`
}

type actionAppliedPayload struct {
	Action enum.MailAction  `json:"action"`
	Result dto.ActionResult `json:"result"`
}

// RabbitMQPublisher notifies the notification system and other product
// services about engine activity over a direct exchange.
type RabbitMQPublisher struct {
	connection     *amqp091.Connection
	publishChannel *amqp091.Channel
	publishMutex   sync.Mutex
	url            string
	log            logger.Logger
}

func NewRabbitMQPublisher(rabbitmqURL string, log logger.Logger) (interfaces.EventPublisher, error) {
	publisher := &RabbitMQPublisher{
		url: rabbitmqURL,
		log: log,
	}

	if err := publisher.connect(); err != nil {
		return nil, err
	}

	return publisher, nil
}

func (r *RabbitMQPublisher) connect() error {
	conn, err := amqp091.Dial(r.url)
	if err != nil {
		return errors.Wrap(err, "failed to connect to RabbitMQ")
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return errors.Wrap(err, "failed to open channel")
	}

	err = channel.ExchangeDeclare(
		ExchangeSyncEngine,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return errors.Wrap(err, "failed to declare exchange")
	}

	r.connection = conn
	r.publishChannel = channel
	return nil
}

func (r *RabbitMQPublisher) PublishActionApplied(ctx context.Context, accountID string, action enum.MailAction, result dto.ActionResult) error {
	payload := actionAppliedPayload{Action: action, Result: result}
	return r.publish(ctx, RoutingKeyActionApplied, accountID, payload)
}

func (r *RabbitMQPublisher) PublishSyncCompleted(ctx context.Context, checkpoint *models.SyncCheckpoint) error {
	return r.publish(ctx, RoutingKeySyncCompleted, checkpoint.AccountID, checkpoint)
}

func (r *RabbitMQPublisher) publish(ctx context.Context, routingKey, accountID string, data interface{}) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RabbitMQPublisher.publish")
	defer span.Finish()
	tracing.TagAccount(span, accountID)
	span.SetTag("routing_key", routingKey)

	envelope := eventEnvelope{
		ID:         uuid.New().String(),
		Event:      routingKey,
		AccountID:  accountID,
		OccurredAt: utils.Now(),
		Data:       data,
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to marshal event")
	}

	publishCtx, cancel := context.WithTimeout(ctx, DefaultPublishTimeout)
	defer cancel()

	r.publishMutex.Lock()
	defer r.publishMutex.Unlock()

	err = r.publishChannel.PublishWithContext(
		publishCtx,
		ExchangeSyncEngine,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    envelope.ID,
			Timestamp:    envelope.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to publish event")
	}

	return nil
}

func (r *RabbitMQPublisher) Close() error {
	r.publishMutex.Lock()
	defer r.publishMutex.Unlock()

	if r.publishChannel != nil {
		if err := r.publishChannel.Close(); err != nil {
			r.log.Warnf("failed to close publish channel: %v", err)
		}
	}
	if r.connection != nil {
		return r.connection.Close()
	}
	return nil
}
