// Package notify publishes sync-completed events to RabbitMQ.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/evcraddock/house-calendar/internal/feedsync"
)

const dialTimeout = 5 * time.Second

// SyncCompleted is the message body published after each sync or import.
type SyncCompleted struct {
	RunID         string    `json:"runId"`
	Origin        string    `json:"origin"`
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
	HousesUpdated int       `json:"housesUpdated"`
	HousesCreated int       `json:"housesCreated"`
	SkippedManual int       `json:"skippedManual"`
	EventsApplied int       `json:"eventsApplied"`
	RowsDiscarded int       `json:"rowsDiscarded"`
	Errors        int       `json:"errors"`
}

// EventFromSummary builds the message for a run. origin is "feed" or "import".
func EventFromSummary(sum *feedsync.Summary, origin string) SyncCompleted {
	return SyncCompleted{
		RunID:         sum.RunID.String(),
		Origin:        origin,
		StartedAt:     sum.StartedAt,
		FinishedAt:    sum.FinishedAt,
		HousesUpdated: sum.HousesUpdated,
		HousesCreated: sum.HousesCreated,
		SkippedManual: sum.SkippedManual,
		EventsApplied: sum.EventsApplied,
		RowsDiscarded: sum.RowsDiscarded,
		Errors:        len(sum.Errors),
	}
}

// Publisher sends events to a durable queue. A Publisher without a URL
// is disabled and Publish does nothing.
type Publisher struct {
	url    string
	queue  string
	logger *slog.Logger
}

// NewPublisher creates a publisher.
func NewPublisher(url, queue string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{url: url, queue: queue, logger: logger}
}

// Enabled reports whether a broker URL is configured.
func (p *Publisher) Enabled() bool {
	return p != nil && p.url != ""
}

// Publish sends ev as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, ev SyncCompleted) error {
	if !p.Enabled() {
		return nil
	}

	msg, err := newPublishing(ev, time.Now())
	if err != nil {
		return err
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
	if err != nil {
		return fmt.Errorf("dialing broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("opening channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring queue %s: %w", p.queue, err)
	}

	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("publishing to %s: %w", p.queue, err)
	}

	p.logger.Debug("published sync event", "queue", p.queue, "run_id", ev.RunID)
	return nil
}

// Hook returns a scheduler hook that publishes each completed feed sync.
// Failures are logged, never returned.
func (p *Publisher) Hook(origin string) func(context.Context, *feedsync.Summary) {
	return func(ctx context.Context, sum *feedsync.Summary) {
		if err := p.Publish(ctx, EventFromSummary(sum, origin)); err != nil {
			p.logger.Warn("publishing sync event failed", "err", err)
		}
	}
}

func newPublishing(ev SyncCompleted, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encoding event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.RunID,
		Type:         "calendar.synced",
		Timestamp:    now.UTC(),
		Body:         body,
	}, nil
}
