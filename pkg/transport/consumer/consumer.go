// Package consumer provides RabbitMQ consumption of editor requests.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/formloom/formloom/internal/entity"
	"github.com/formloom/formloom/pkg/config"
	"github.com/formloom/formloom/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// EXCHANGE_TYPE routes messages to queues on exact routing key match.
const EXCHANGE_TYPE = "direct"

// Consumer reads edit-request events from the request exchange and
// forwards them as entity.Event values.
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *logger.Logger
	cfg     *config.Config

	mu        sync.RWMutex
	exchanges map[string]bool
	connected bool
}

// Init creates and initializes a new Consumer instance.
func Init(cfg *config.Config, logger *logger.Logger, conn *amqp.Connection) (*Consumer, error) {
	if cfg == nil || logger == nil || conn == nil {
		return nil, fmt.Errorf("invalid parameters: cfg, logger, and conn cannot be nil")
	}

	channel, err := conn.Channel()
	if err != nil {
		logger.Error("failed to open channel", zap.Error(err))
		return nil, err
	}

	c := &Consumer{
		conn:      conn,
		channel:   channel,
		logger:    logger,
		cfg:       cfg,
		exchanges: make(map[string]bool),
		connected: true,
	}

	if err := c.declareExchange(cfg.Exchange.Request); err != nil {
		channel.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return c, nil
}

func (c *Consumer) declareExchange(exchangeName string) error {
	if err := c.channel.ExchangeDeclare(
		exchangeName,
		EXCHANGE_TYPE,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		c.logger.Error("failed to declare exchange",
			zap.String("exchange", exchangeName),
			zap.Error(err))
		return err
	}

	c.mu.Lock()
	c.exchanges[exchangeName] = true
	c.mu.Unlock()

	return nil
}

// Subscribe declares a queue and binds it to an exchange with the given
// routing key.
func (c *Consumer) Subscribe(exchange, routingKey, queueName string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return fmt.Errorf("consumer is not connected")
	}

	if _, err := c.channel.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		c.logger.Error("failed to declare queue",
			zap.String("queue", queueName),
			zap.Error(err))
		return err
	}

	if err := c.channel.QueueBind(queueName, routingKey, exchange, false, nil); err != nil {
		c.logger.Error("failed to bind queue",
			zap.String("queue", queueName),
			zap.String("routing_key", routingKey),
			zap.Error(err))
		return err
	}

	return nil
}

// Consume pumps decoded events into out until ctx is done. Payloads
// that do not decode into an event envelope are logged and dropped.
func (c *Consumer) Consume(ctx context.Context, queueName string, out chan<- entity.Event) error {
	deliveries, err := c.channel.Consume(
		queueName,
		"",    // consumer tag
		true,  // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		c.logger.Error("failed to start consuming",
			zap.String("queue", queueName),
			zap.Error(err))
		return err
	}

	for {
		select {
		case delivery, open := <-deliveries:
			if !open {
				return fmt.Errorf("delivery channel closed for queue %s", queueName)
			}

			var event entity.Event
			if err := json.Unmarshal(delivery.Body, &event); err != nil {
				c.logger.Error("error unmarshal delivery",
					zap.String("queue", queueName),
					zap.Error(err))
				continue
			}

			if err := event.Validate(); err != nil {
				c.logger.Error("discarding invalid event",
					zap.String("queue", queueName),
					zap.Error(err))
				continue
			}

			select {
			case out <- event:
			case <-ctx.Done():
				return ctx.Err()
			}

		case <-ctx.Done():
			c.logger.Info("stopping consumer", zap.String("queue", queueName))
			return ctx.Err()
		}
	}
}

func (c *Consumer) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && !c.conn.IsClosed()
}

func (c *Consumer) Close() error {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	if err := c.channel.Close(); err != nil {
		c.logger.Error("error closing channel", zap.Error(err))
	}
	return c.conn.Close()
}
