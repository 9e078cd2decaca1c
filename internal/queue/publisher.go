package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const notificationQueueName = "ticketing.notifications"

// Publisher emits notifications to the ticketing.notifications queue.
// It is intentionally robust and never panics; any error is logged and
// returned so the caller can choose to ignore it, which the
// reconciliation engine does: notification failures must not affect the
// committed transaction.
type Publisher struct {
	url string
	log *logrus.Logger
}

// NewPublisher returns a Publisher that dials the broker at url for
// each publish.  Connections are short-lived on purpose: the publish
// rate is low and a cached channel would need its own reconnect logic.
func NewPublisher(url string, log *logrus.Logger) *Publisher {
	return &Publisher{url: url, log: log}
}

// Publish marshals the notification and sends it as a persistent
// message.  The queue is declared durable and idempotently on every
// call so messages survive broker restarts.
func (p *Publisher) Publish(ctx context.Context, n Notification) error {
	if n.SentAt == "" {
		n.SentAt = time.Now().UTC().Format(time.RFC3339)
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.WithError(err).Warn("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.WithError(err).Warn("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		notificationQueueName, // name
		true,                  // durable
		false,                 // autoDelete
		false,                 // exclusive
		false,                 // noWait
		nil,                   // args
	); err != nil {
		p.log.WithError(err).Warn("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(n)
	if err != nil {
		p.log.WithError(err).Warn("rabbitmq: marshal notification failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",                    // default exchange
		notificationQueueName, // routing key = queue name
		false,                 // mandatory
		false,                 // immediate
		pub,
	); err != nil {
		p.log.WithError(err).Warn("rabbitmq: publish failed")
		return err
	}
	return nil
}
