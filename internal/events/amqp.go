package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/ticketops/triage-service/internal/config"
)

// AMQPPublisher mirrors dispatched domain events onto a RabbitMQ topic
// exchange so external consumers can react without polling the API.
// Publish failures are logged and swallowed; the bus is an observer of
// the pipeline, never a dependency of it.
type AMQPPublisher struct {
	conn     *amqp091.Connection
	exchange string
	logger   *zap.Logger
}

// NewAMQPPublisher connects and declares the topic exchange.
func NewAMQPPublisher(cfg config.EventsConfig, logger *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}

	return &AMQPPublisher{
		conn:     conn,
		exchange: cfg.Exchange,
		logger:   logger,
	}, nil
}

// RegisterHandlers subscribes the publisher to every event type.
func (p *AMQPPublisher) RegisterHandlers(dispatcher Dispatcher) {
	for _, eventType := range []EventType{
		EventTicketCreated,
		EventTicketTriaged,
		EventTicketAssigned,
		EventTicketStatusChanged,
	} {
		dispatcher.Subscribe(eventType, p.publish)
	}
}

func (p *AMQPPublisher) publish(ctx context.Context, event Event) error {
	ch, err := p.conn.Channel()
	if err != nil {
		p.logger.Warn("amqp channel open failed", zap.Error(err))
		return nil
	}
	defer ch.Close()

	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("amqp event marshal failed", zap.Error(err))
		return nil
	}

	msgID := event.ID
	if msgID == "" {
		msgID = uuid.NewString()
	}

	err = ch.PublishWithContext(ctx, p.exchange, "ticket."+string(event.Type), false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    msgID,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		p.logger.Warn("amqp publish failed",
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
	return nil
}

// Close releases the connection.
func (p *AMQPPublisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.conn.Close()
}
