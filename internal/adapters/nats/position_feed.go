package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/carcompanion/internal/core/domain"
)

// HighAccuracyLimitMeters is the worst accuracy accepted when high accuracy is requested.
const HighAccuracyLimitMeters = 100.0

// PositionFeed implements ports.PositionProvider over the device's
// telemetry subject. Location permission is implied by a live connection.
type PositionFeed struct {
	conn    *nats.Conn
	subject string
	now     func() time.Time

	mu   sync.Mutex
	last *domain.PositionSample
	sub  *nats.Subscription
}

// NewPositionFeed subscribes to the device's position subject to keep the
// most recent fix for cached reads.
func NewPositionFeed(conn *nats.Conn, device string) (*PositionFeed, error) {
	f := &PositionFeed{conn: conn, subject: PositionSubject(device), now: time.Now}
	sub, err := conn.Subscribe(f.subject, func(msg *nats.Msg) {
		s, err := decodeSample(msg.Data)
		if err != nil {
			return
		}
		f.remember(s)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", f.subject, err)
	}
	f.sub = sub
	return f, nil
}

func (f *PositionFeed) remember(s domain.PositionSample) {
	f.mu.Lock()
	f.last = &s
	f.mu.Unlock()
}

func (f *PositionFeed) CheckPermission(ctx context.Context) (domain.PermissionState, error) {
	if !f.conn.IsConnected() {
		return "", fmt.Errorf("%w: position bus %s", domain.ErrUnavailable, f.conn.Status())
	}
	return domain.PermissionGranted, nil
}

// RequestPermission has no prompt on the bus; it reports the current state.
func (f *PositionFeed) RequestPermission(ctx context.Context) (domain.PermissionState, error) {
	return f.CheckPermission(ctx)
}

// CurrentPosition returns the cached fix when it is younger than
// opts.MaxCacheAge, otherwise waits for the next acceptable sample.
func (f *PositionFeed) CurrentPosition(ctx context.Context, opts domain.PositionOptions) (domain.PositionSample, error) {
	if s, ok := f.cached(opts.MaxCacheAge); ok && accept(s, opts) {
		return s, nil
	}

	sub, err := f.conn.SubscribeSync(f.subject)
	if err != nil {
		return domain.PositionSample{}, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	for {
		msg, err := sub.NextMsgWithContext(ctx)
		if err != nil {
			return domain.PositionSample{}, err
		}
		s, err := decodeSample(msg.Data)
		if err != nil {
			slog.Debug("skipping malformed position", "error", err)
			continue
		}
		if accept(s, opts) {
			return s, nil
		}
	}
}

func (f *PositionFeed) cached(maxAge time.Duration) (domain.PositionSample, bool) {
	if maxAge <= 0 {
		return domain.PositionSample{}, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == nil || f.now().Sub(f.last.CapturedAt) > maxAge {
		return domain.PositionSample{}, false
	}
	return *f.last, true
}

// Watch delivers samples in arrival order until ctx is cancelled.
// Malformed payloads are reported as errors on the stream.
func (f *PositionFeed) Watch(ctx context.Context, opts domain.PositionOptions) (<-chan domain.PositionUpdate, error) {
	msgs := make(chan *nats.Msg, 64)
	sub, err := f.conn.ChanSubscribe(f.subject, msgs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}

	out := make(chan domain.PositionUpdate)
	go func() {
		defer close(out)
		defer func() { _ = sub.Unsubscribe() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-msgs:
				u := domain.PositionUpdate{}
				s, err := decodeSample(msg.Data)
				switch {
				case err != nil:
					u.Err = err
				case !accept(s, opts):
					continue
				default:
					u.Sample = s
				}
				select {
				case out <- u:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close stops the cache subscription.
func (f *PositionFeed) Close() {
	if f.sub != nil {
		_ = f.sub.Unsubscribe()
	}
}

func decodeSample(data []byte) (domain.PositionSample, error) {
	var s domain.PositionSample
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("decode position: %w", err)
	}
	if !s.Location.Valid() {
		return s, fmt.Errorf("%w: %.6f,%.6f", domain.ErrInvalidCoordinate, s.Location.Lat, s.Location.Lon)
	}
	if s.CapturedAt.IsZero() {
		s.CapturedAt = time.Now()
	}
	return s, nil
}

// accept drops coarse fixes when high accuracy was requested.
func accept(s domain.PositionSample, opts domain.PositionOptions) bool {
	if !opts.HighAccuracy || s.AccuracyMeters <= 0 {
		return true
	}
	return s.AccuracyMeters <= HighAccuracyLimitMeters
}
