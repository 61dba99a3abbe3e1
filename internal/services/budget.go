package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/fatali-fataliyev/student_expense_tracker/internal/budget"
	"github.com/fatali-fataliyev/student_expense_tracker/internal/contextutil"
	"github.com/fatali-fataliyev/student_expense_tracker/logging"
	"github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	BudgetAlertMessageType = "budget_alert"
	publishTimeout         = 5 * time.Second
)

// BudgetAlertMessage is the JSON body published for every budget alert.
type BudgetAlertMessage struct {
	Type       string                  `json:"type"`
	TraceID    string                  `json:"trace_id"`
	Alert      budget.BudgetAlertEvent `json:"alert"`
	OccurredAt time.Time               `json:"occurred_at"`
}

func NewBudgetAlertMessage(traceID string, event budget.BudgetAlertEvent, now time.Time) BudgetAlertMessage {
	return BudgetAlertMessage{
		Type:       BudgetAlertMessageType,
		TraceID:    traceID,
		Alert:      event,
		OccurredAt: now.UTC(),
	}
}

func (m BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// AMQPNotifier publishes budget alerts to a durable direct exchange.
type AMQPNotifier struct {
	mu           sync.Mutex
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewAMQPNotifier(url, exchangeName, queueName string) (*AMQPNotifier, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	n := &AMQPNotifier{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}
	if err := n.setup(); err != nil {
		n.Close()
		return nil, fmt.Errorf("failed to setup exchange and queue: %w", err)
	}
	return n, nil
}

func (n *AMQPNotifier) setup() error {
	err := n.channel.ExchangeDeclare(
		n.exchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = n.channel.QueueDeclare(
		n.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name.
	if err := n.channel.QueueBind(n.queueName, n.queueName, n.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

func (n *AMQPNotifier) NotifyBudgetAlert(ctx context.Context, event budget.BudgetAlertEvent) error {
	traceID := contextutil.TraceIDFromContext(ctx)

	body, err := NewBudgetAlertMessage(traceID, event, time.Now()).ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal budget alert: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	n.mu.Lock()
	defer n.mu.Unlock()

	err = n.channel.PublishWithContext(
		ctx,
		n.exchangeName,
		n.queueName,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish budget alert: %w", err)
	}

	logging.WithTrace(traceID).WithFields(logrus.Fields{
		"user_id":  event.UserID,
		"month":    event.Month,
		"exchange": n.exchangeName,
		"queue":    n.queueName,
	}).Info("budget alert published")
	return nil
}

func (n *AMQPNotifier) Close() error {
	if n.channel != nil {
		n.channel.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}

// LogNotifier only logs budget alerts. Used when AMQP_URL is not set.
type LogNotifier struct{}

func (LogNotifier) NotifyBudgetAlert(ctx context.Context, event budget.BudgetAlertEvent) error {
	logging.WithTrace(contextutil.TraceIDFromContext(ctx)).WithFields(logrus.Fields{
		"user_id": event.UserID,
		"month":   event.Month,
		"income":  event.Income.StringFixed(2),
		"expense": event.Expense.StringFixed(2),
	}).Info("budget alert raised")
	return nil
}
