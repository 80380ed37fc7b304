package worker

import (
	"context"
	"log/slog"
	"time"

	"go-catalog-search/internal/metrics"
	"go-catalog-search/internal/models"
	"go-catalog-search/internal/queue"
)

// perMessageTimeout caps how long a single ledger write can take.
// If Postgres holds a lock beyond this, the message is nacked and requeued
// rather than blocking the goroutine indefinitely.
const perMessageTimeout = 10 * time.Second

// Ledger records item events durably.
type Ledger interface {
	InsertMovementIdempotent(ctx context.Context, e models.ItemEvent) error
}

// Source yields decoded deliveries from the broker.
type Source interface {
	Consume() (<-chan queue.Delivery, error)
}

// acker is the settle half of a delivery.
type acker interface {
	Ack() error
	Nack() error
}

// Worker consumes item events from RabbitMQ and records them in the stock ledger.
type Worker struct {
	ledger Ledger
	source Source
}

// New constructs a Worker. All dependencies are injected, no globals.
func New(ledger Ledger, source Source) *Worker {
	return &Worker{ledger: ledger, source: source}
}

// Run starts consuming messages and blocks until ctx is cancelled.
// On cancellation it finishes the in-flight message before returning,
// so the caller's Close() calls happen after the loop is clean.
func (w *Worker) Run(ctx context.Context) error {
	deliveries, err := w.source.Consume()
	if err != nil {
		return err
	}

	slog.Info("worker started", "component", "worker")

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker shutting down", "component", "worker")
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				slog.Warn("delivery channel closed", "component", "worker")
				return nil
			}
			w.process(delivery.Event, &delivery)
		}
	}
}

// process writes one event to the ledger, then acks. A failed write is
// nacked and redelivered; ON CONFLICT DO NOTHING absorbs the replay.
func (w *Worker) process(event models.ItemEvent, d acker) {
	ctx, cancel := context.WithTimeout(context.Background(), perMessageTimeout)
	defer cancel()

	if err := w.ledger.InsertMovementIdempotent(ctx, event); err != nil {
		slog.Error("ledger insert failed",
			"component", "worker",
			"event_id", event.EventID,
			"item_id", event.ItemID,
			"error", err,
		)
		metrics.ItemEvents.WithLabelValues(string(event.Kind), "requeued").Inc()
		d.Nack()
		return
	}

	if err := d.Ack(); err != nil {
		slog.Error("ack failed", "component", "worker", "event_id", event.EventID, "error", err)
		return
	}

	metrics.ItemEvents.WithLabelValues(string(event.Kind), "recorded").Inc()
	slog.Info("item event recorded",
		"component", "worker",
		"event_id", event.EventID,
		"item_id", event.ItemID,
		"kind", event.Kind,
		"delta", event.Delta,
	)
}
