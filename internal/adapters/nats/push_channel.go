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

// PushChannel implements ports.PushProvider through the companion app.
// Permission prompts and registration are request/reply calls on
// <push>.permission and <push>.register; events arrive on <push>.events.
type PushChannel struct {
	conn    *nats.Conn
	subject string
	timeout time.Duration

	mu    sync.Mutex
	state domain.PermissionState
}

// NewPushChannel creates a push provider for a device.
func NewPushChannel(conn *nats.Conn, device string) *PushChannel {
	return &PushChannel{
		conn:    conn,
		subject: PushSubject(device),
		timeout: 30 * time.Second,
		state:   domain.PermissionPrompt,
	}
}

type permissionReply struct {
	State domain.PermissionState `json:"state"`
}

func (p *PushChannel) CheckPermission(ctx context.Context) (domain.PermissionState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, nil
}

// RequestPermission asks the companion app to show the OS prompt.
func (p *PushChannel) RequestPermission(ctx context.Context) (domain.PermissionState, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg, err := p.conn.RequestWithContext(ctx, p.subject+".permission", nil)
	if err != nil {
		return "", fmt.Errorf("%w: permission request: %v", domain.ErrUnavailable, err)
	}
	state, err := parsePermission(msg.Data)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.state = state
	p.mu.Unlock()
	return state, nil
}

// Register subscribes to push events and asks the app to register with the
// push service. The outcome arrives as a registration event.
func (p *PushChannel) Register(ctx context.Context) (<-chan domain.PushEvent, error) {
	msgs := make(chan *nats.Msg, 16)
	sub, err := p.conn.ChanSubscribe(p.subject+".events", msgs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	if err := p.conn.Publish(p.subject+".register", nil); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}

	out := make(chan domain.PushEvent)
	go func() {
		defer close(out)
		defer func() { _ = sub.Unsubscribe() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-msgs:
				ev, err := decodePushEvent(msg.Data)
				if err != nil {
					slog.Warn("dropping malformed push event", "error", err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func parsePermission(data []byte) (domain.PermissionState, error) {
	var reply permissionReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return "", fmt.Errorf("%w: decode permission reply: %v", domain.ErrUnavailable, err)
	}
	switch reply.State {
	case domain.PermissionGranted, domain.PermissionDenied, domain.PermissionPrompt:
		return reply.State, nil
	}
	return "", fmt.Errorf("%w: unknown permission state %q", domain.ErrUnavailable, reply.State)
}

func decodePushEvent(data []byte) (domain.PushEvent, error) {
	var ev domain.PushEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, err
	}
	switch ev.Kind {
	case domain.PushRegistered, domain.PushRegistrationFailed, domain.PushMessageReceived, domain.PushActionPerformed:
	default:
		return ev, fmt.Errorf("unknown push event kind %q", ev.Kind)
	}
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now()
	}
	return ev, nil
}
