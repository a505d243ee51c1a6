// Package queue mirrors session update notifications onto a durable
// RabbitMQ queue so out-of-process consumers (analytics, push) see the
// same stream the SSE endpoint serves.
package queue

import (
	"context"
	"encoding/json"

	"github.com/streadway/amqp"

	"tasteos.dev/common"
	"tasteos.dev/cook"
)

// Notifier publishes session notifications to a durable queue.
type Notifier struct {
	connection AMQPConnection
	channel    AMQPChannel
	queueName  string
}

// NewNotifier connects to the broker and declares the queue.
func NewNotifier(url, queueName string) (*Notifier, error) {
	return NewNotifierWithDialer(RealAMQPDialer{}, url, queueName)
}

// NewNotifierWithDialer allows injecting a dialer for tests.
func NewNotifierWithDialer(dialer AMQPDialer, url, queueName string) (*Notifier, error) {
	conn, err := dialer.Dial(url)
	if err != nil {
		return nil, common.Wrap(common.KindTransient, err, "connect to amqp broker")
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, common.Wrap(common.KindTransient, err, "open amqp channel")
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, common.Wrap(common.KindTransient, err, "declare queue %s", queueName)
	}
	return &Notifier{connection: conn, channel: ch, queueName: queueName}, nil
}

// Publish sends one notification to the queue.
func (n *Notifier) Publish(ctx context.Context, notification cook.Notification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return common.Wrap(common.KindFatal, err, "encode notification")
	}
	err = n.channel.Publish("", n.queueName, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return common.Wrap(common.KindTransient, err, "publish notification")
	}
	return nil
}

// Close releases the channel and connection.
func (n *Notifier) Close() error {
	if n.channel != nil {
		n.channel.Close()
	}
	if n.connection != nil {
		n.connection.Close()
	}
	return nil
}

// MirrorBus wraps a cook.Bus and mirrors every publish onto the AMQP
// queue. Mirror failures are logged and swallowed; the realtime path
// stays authoritative.
type MirrorBus struct {
	cook.Bus
	notifier *Notifier
}

// NewMirrorBus wraps inner with the AMQP mirror.
func NewMirrorBus(inner cook.Bus, notifier *Notifier) *MirrorBus {
	return &MirrorBus{Bus: inner, notifier: notifier}
}

func (m *MirrorBus) Publish(ctx context.Context, n cook.Notification) error {
	if err := m.notifier.Publish(ctx, n); err != nil {
		common.Logger.WithError(err).Warn("amqp notification mirror failed")
	}
	return m.Bus.Publish(ctx, n)
}
