package usecases

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samirrijal/carcompanion/internal/core/domain"
	"github.com/samirrijal/carcompanion/internal/core/ports"
)

// echoTranslator is used when no translator is injected.
func echoTranslator(key string, _ ...any) string { return key }

// noticeSender emits translated notices. A nil notifier drops them.
type noticeSender struct {
	notifier ports.Notifier
	t        ports.Translator
	now      ports.Clock
	logger   *slog.Logger
}

func (n noticeSender) send(ctx context.Context, level domain.NoticeLevel, key string, args ...any) {
	if n.notifier == nil {
		return
	}
	notice := domain.Notice{
		Level:   level,
		Title:   n.t(key + ".title"),
		Message: n.t(key+".body", args...),
		At:      n.now(),
	}
	if err := n.notifier.Notify(ctx, notice); err != nil {
		n.logger.Warn("notify failed", "key", key, "error", err)
	}
}

// sendError picks the notice matching a position or provider error.
func (n noticeSender) sendError(ctx context.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrPermissionDenied):
		n.send(ctx, domain.NoticeError, "location.denied")
	case errors.Is(err, domain.ErrTimeout):
		n.send(ctx, domain.NoticeError, "location.timeout")
	case errors.Is(err, domain.ErrUnauthorized):
		n.send(ctx, domain.NoticeError, "map.unauthorized")
	default:
		n.send(ctx, domain.NoticeError, "location.unavailable")
	}
}

// MultiNotifier fans a notice out to several sinks, returning the first error.
type MultiNotifier []ports.Notifier

func (m MultiNotifier) Notify(ctx context.Context, n domain.Notice) error {
	var first error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Notify(ctx, n); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func systemClock() time.Time { return time.Now() }
