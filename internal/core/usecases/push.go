package usecases

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samirrijal/carcompanion/internal/core/domain"
	"github.com/samirrijal/carcompanion/internal/core/ports"
)

// PushService negotiates push permission and hands out subscriptions.
type PushService struct {
	provider ports.PushProvider
	notices  noticeSender
	logger   *slog.Logger
}

// NewPushService creates a new PushService. notifier and tr may be nil.
func NewPushService(provider ports.PushProvider, notifier ports.Notifier, tr ports.Translator) *PushService {
	if tr == nil {
		tr = echoTranslator
	}
	logger := slog.Default().With("component", "push")
	return &PushService{
		provider: provider,
		logger:   logger,
		notices:  noticeSender{notifier: notifier, t: tr, now: systemClock, logger: logger},
	}
}

// PushSubscription delivers every push event on one channel until Cancel.
type PushSubscription struct {
	events chan domain.PushEvent
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Events returns the event stream. It is closed after Cancel.
func (s *PushSubscription) Events() <-chan domain.PushEvent {
	return s.events
}

// Cancel stops delivery. No event is delivered after it returns.
func (s *PushSubscription) Cancel() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Register checks permission, prompting only when undecided, and starts
// registration with the platform.
func (s *PushService) Register(ctx context.Context) (*PushSubscription, error) {
	state, err := s.provider.CheckPermission(ctx)
	if err != nil {
		return nil, err
	}
	if state == domain.PermissionPrompt {
		if state, err = s.provider.RequestPermission(ctx); err != nil {
			return nil, err
		}
	}
	if state != domain.PermissionGranted {
		s.notices.send(ctx, domain.NoticeError, "push.denied")
		return nil, domain.ErrPermissionDenied
	}

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	src, err := s.provider.Register(subCtx)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &PushSubscription{
		events: make(chan domain.PushEvent),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.relay(subCtx, src, sub)
	return sub, nil
}

func (s *PushService) relay(ctx context.Context, src <-chan domain.PushEvent, sub *PushSubscription) {
	defer close(sub.done)
	defer close(sub.events)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-src:
			if !ok {
				return
			}
			s.toast(ctx, ev)
			select {
			case sub.events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *PushService) toast(ctx context.Context, ev domain.PushEvent) {
	switch ev.Kind {
	case domain.PushRegistered:
		s.logger.Info("push registration succeeded")
		s.notices.send(ctx, domain.NoticeSuccess, "push.registered")
	case domain.PushRegistrationFailed:
		s.logger.Warn("push registration failed", "error", ev.Error)
		s.notices.send(ctx, domain.NoticeError, "push.failed")
	case domain.PushMessageReceived:
		if s.notices.notifier == nil {
			return
		}
		title := ev.Title
		if title == "" {
			title = s.notices.t("push.received.title")
		}
		if err := s.notices.notifier.Notify(ctx, domain.Notice{
			Level:   domain.NoticeInfo,
			Title:   title,
			Message: ev.Body,
			At:      s.notices.now(),
		}); err != nil {
			s.logger.Warn("notify failed", "error", err)
		}
	case domain.PushActionPerformed:
		s.logger.Info("push action performed", "action_id", ev.ActionID)
	}
}
