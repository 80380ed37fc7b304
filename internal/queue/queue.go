// Package queue wraps RabbitMQ for reliable, decoupled message passing.
//
// The API service publishes ItemEvents to the "item_events" queue after every
// successful catalog mutation. The worker service consumes from the same queue
// and records each event in the Postgres stock ledger.
//
// Durability guarantees:
//   - Queue is declared as durable, so it survives broker restarts.
//   - Messages are marked as Persistent and written to disk before ack.
//   - Consumer uses manual ack: a message is only removed from the queue
//     after the worker has written it to the ledger.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go-catalog-search/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

const itemEventsQueue = "item_events"

// Publisher owns the AMQP connection for the API service side (publish only).
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
}

// NewPublisher dials RabbitMQ and declares the shared queue.
func NewPublisher(url string) (*Publisher, error) {
	conn, ch, q, err := open(url)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, channel: ch, queue: q}, nil
}

// PublishEvent serialises the event and sends it to the queue.
// The message is marked Persistent so it survives a broker restart.
func (p *Publisher) PublishEvent(ctx context.Context, event models.ItemEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.channel.PublishWithContext(ctx,
		"",           // default exchange routes directly to the named queue
		p.queue.Name, // routing key == queue name for default exchange
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.EventID,
			Type:         string(event.Kind),
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
}

// Close releases the AMQP channel and connection.
func (p *Publisher) Close() {
	p.channel.Close()
	p.conn.Close()
}

// Consumer owns the AMQP connection for the worker side (consume only).
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
}

// NewConsumer dials RabbitMQ and sets QoS to process one message at a time.
func NewConsumer(url string) (*Consumer, error) {
	conn, ch, q, err := open(url)
	if err != nil {
		return nil, err
	}

	// One unacked message at a time per worker.
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("queue: set qos: %w", err)
	}

	return &Consumer{conn: conn, channel: ch, queue: q}, nil
}

// Delivery wraps amqp.Delivery to expose the decoded event and ack/nack helpers.
type Delivery struct {
	Event models.ItemEvent
	raw   amqp.Delivery
}

// Ack removes the message from RabbitMQ after successful processing.
func (d *Delivery) Ack() error { return d.raw.Ack(false) }

// Nack requeues the message so another worker can retry.
func (d *Delivery) Nack() error { return d.raw.Nack(false, true) }

// Discard permanently rejects a message (e.g. unparseable payload).
func (d *Delivery) Discard() error { return d.raw.Nack(false, false) }

// Consume returns a channel of Delivery values. Each value must be Ack'd or Nack'd.
func (c *Consumer) Consume() (<-chan Delivery, error) {
	rawMsgs, err := c.channel.Consume(
		c.queue.Name,
		"",    // consumer tag, auto-generated
		false, // auto-ack disabled; the worker acks after the ledger write
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("queue: consume: %w", err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for d := range rawMsgs {
			event, err := Decode(d.Body)
			if err != nil {
				slog.Warn("discarding unparseable event",
					"component", "worker",
					"message_id", d.MessageId,
					"error", err,
				)
				d.Nack(false, false)
				continue
			}
			out <- Delivery{Event: event, raw: d}
		}
	}()

	return out, nil
}

// Close releases the AMQP channel and connection.
func (c *Consumer) Close() {
	c.channel.Close()
	c.conn.Close()
}

// Decode parses a message body. Events without an ID or a known kind can
// never be recorded and are reported as errors.
func Decode(body []byte) (models.ItemEvent, error) {
	var event models.ItemEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return models.ItemEvent{}, fmt.Errorf("queue: decode: %w", err)
	}
	if event.EventID == "" || event.ItemID == "" {
		return models.ItemEvent{}, fmt.Errorf("queue: decode: event_id and item_id are required")
	}
	switch event.Kind {
	case models.EventCreated, models.EventUpdated, models.EventDeleted:
	default:
		return models.ItemEvent{}, fmt.Errorf("queue: decode: unknown kind %q", event.Kind)
	}
	return event, nil
}

func open(url string) (*amqp.Connection, *amqp.Channel, amqp.Queue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, amqp.Queue{}, fmt.Errorf("queue: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, amqp.Queue{}, fmt.Errorf("queue: open channel: %w", err)
	}

	q, err := declareQueue(ch)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, amqp.Queue{}, err
	}
	return conn, ch, q, nil
}

// declareQueue is shared between Publisher and Consumer so both sides always
// declare the same durable queue. Redeclaring is idempotent.
func declareQueue(ch *amqp.Channel) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		itemEventsQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("queue: declare: %w", err)
	}
	return q, nil
}
