package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/carcompanion/internal/core/domain"
)

// Subscriber consumes recorded trips from JetStream with a durable consumer.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber on its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
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
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeTrips delivers every trip of every device. A message is acked
// only when handler succeeds and is redelivered up to three times.
func (s *Subscriber) SubscribeTrips(ctx context.Context, handler func(ctx context.Context, trip domain.Trip) error) error {
	sub, err := s.js.Subscribe(AllTrips, func(msg *nats.Msg) {
		trip, err := decodeTrip(msg.Data)
		if err != nil {
			slog.Warn("dropping malformed trip", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, trip); err != nil {
			slog.Warn("trip handler failed", "trip_id", trip.ID, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable("trip-archiver"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

func decodeTrip(data []byte) (domain.Trip, error) {
	var trip domain.Trip
	if err := json.Unmarshal(data, &trip); err != nil {
		return trip, err
	}
	if trip.ID == "" {
		return trip, fmt.Errorf("trip without id")
	}
	return trip, nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
