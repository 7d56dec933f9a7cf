package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/carcompanion/internal/core/domain"
)

// Publisher implements ports.EventPublisher and ports.Notifier using NATS
// JetStream for trips and notices and core NATS for positions.
type Publisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	device string
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url, device string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if err := ensureStreams(js); err != nil {
		return nil, err
	}

	return &Publisher{conn: conn, js: js, device: device}, nil
}

func ensureStreams(js nats.JetStreamContext) error {
	streams := []nats.StreamConfig{
		{
			Name:      StreamTrips,
			Subjects:  []string{AllTrips},
			Retention: nats.LimitsPolicy,
			MaxAge:    30 * 24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      StreamNotices,
			Subjects:  []string{AllNotices},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}
	return nil
}

func (p *Publisher) PublishTrip(ctx context.Context, trip *domain.Trip) error {
	data, err := json.Marshal(trip)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(TripSubject(p.device), data, nats.Context(ctx), nats.MsgId(trip.ID))
	return err
}

func (p *Publisher) PublishNotice(ctx context.Context, n domain.Notice) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(NoticeSubject(p.device), data, nats.Context(ctx))
	return err
}

// PublishPosition uses core NATS; positions are high rate and not replayed.
func (p *Publisher) PublishPosition(ctx context.Context, s domain.PositionSample) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return p.conn.Publish(PositionSubject(p.device), data)
}

// PublishScene broadcasts a map scene snapshot over core NATS.
func (p *Publisher) PublishScene(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.conn.Publish(MapSubject(p.device), data)
}

// Notify sends a user-facing notice.
func (p *Publisher) Notify(ctx context.Context, n domain.Notice) error {
	return p.PublishNotice(ctx, n)
}

// Ping reports whether the connection is up.
func (p *Publisher) Ping(ctx context.Context) error {
	if !p.conn.IsConnected() {
		return fmt.Errorf("nats: %s", p.conn.Status())
	}
	return nil
}

// Conn exposes the underlying connection for relays sharing it.
func (p *Publisher) Conn() *nats.Conn { return p.conn }

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}
