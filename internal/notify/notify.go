// Package notify pushes best-effort creditsChanged events to a topic
// exchange so UIs can refresh balances. Delivery is not part of the
// consistency contract; subscribers must reconcile against GetBalance.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/wareqa/creditledger/internal/metrics"
	"go.uber.org/zap"
)

const (
	exchangeName = "ledger.events"
	routingKey   = "credits.changed"
)

type creditsChangedEvent struct {
	UserID     string    `json:"user_id"`
	NewBalance int64     `json:"new_balance"`
	At         time.Time `json:"at"`
}

type AMQPNotifier struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

func NewAMQP(url string) (*AMQPNotifier, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	err = channel.ExchangeDeclare(
		exchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	return &AMQPNotifier{
		conn:    conn,
		channel: channel,
	}, nil
}

// CreditsChanged publishes the event and swallows failures: a dropped
// notification must never fail the mutation that produced it.
func (n *AMQPNotifier) CreditsChanged(ctx context.Context, userID string, newBalance int64) {
	body, err := json.Marshal(creditsChangedEvent{
		UserID:     userID,
		NewBalance: newBalance,
		At:         time.Now().UTC(),
	})
	if err != nil {
		metrics.NotifyFailures.Inc()
		zap.L().Warn("failed to marshal creditsChanged event", zap.Error(err))
		return
	}

	err = n.channel.PublishWithContext(ctx,
		exchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		metrics.NotifyFailures.Inc()
		zap.L().Warn("failed to publish creditsChanged event", zap.String("userID", userID), zap.Error(err))
	}
}

func (n *AMQPNotifier) Close() {
	if n.channel != nil {
		n.channel.Close()
	}
	if n.conn != nil {
		n.conn.Close()
	}
}

// Noop is used when no AMQP address is configured.
type Noop struct{}

func (Noop) CreditsChanged(ctx context.Context, userID string, newBalance int64) {}
