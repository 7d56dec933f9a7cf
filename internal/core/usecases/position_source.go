package usecases

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/samirrijal/carcompanion/internal/core/domain"
	"github.com/samirrijal/carcompanion/internal/core/ports"
)

// WatchHandle identifies an active position watch.
type WatchHandle string

// PositionService wraps a platform position provider with permission
// negotiation, error classification and a registry of cancellable watches.
type PositionService struct {
	provider ports.PositionProvider

	mu      sync.Mutex
	watches map[WatchHandle]*positionWatch
}

type positionWatch struct {
	mu      sync.Mutex
	cleared bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPositionService creates a new PositionService.
func NewPositionService(provider ports.PositionProvider) *PositionService {
	return &PositionService{
		provider: provider,
		watches:  make(map[WatchHandle]*positionWatch),
	}
}

// RequestPermission returns the current permission, prompting the user only
// when no decision has been made yet.
func (s *PositionService) RequestPermission(ctx context.Context) (domain.PermissionState, error) {
	state, err := s.provider.CheckPermission(ctx)
	if err != nil {
		return "", classifyPositionError(ctx, err)
	}
	if state == domain.PermissionPrompt {
		state, err = s.provider.RequestPermission(ctx)
		if err != nil {
			return "", classifyPositionError(ctx, err)
		}
	}
	if state != domain.PermissionGranted {
		return state, domain.ErrPermissionDenied
	}
	return state, nil
}

// CurrentPosition returns a single fix, failing with ErrTimeout when none
// arrives within opts.Timeout.
func (s *PositionService) CurrentPosition(ctx context.Context, opts domain.PositionOptions) (domain.PositionSample, error) {
	if _, err := s.RequestPermission(ctx); err != nil {
		return domain.PositionSample{}, err
	}

	fixCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		fixCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	sample, err := s.provider.CurrentPosition(fixCtx, opts)
	if err != nil {
		return domain.PositionSample{}, classifyPositionError(ctx, err)
	}
	if !sample.Location.Valid() {
		return domain.PositionSample{}, fmt.Errorf("%w: %w", domain.ErrUnavailable, domain.ErrInvalidCoordinate)
	}
	return sample, nil
}

// Watch starts continuous delivery. onSample and onError run on a single
// goroutine per watch, in provider order. They must not call ClearWatch on
// their own handle.
func (s *PositionService) Watch(ctx context.Context, opts domain.PositionOptions, onSample func(domain.PositionSample), onError func(error)) (WatchHandle, error) {
	if _, err := s.RequestPermission(ctx); err != nil {
		return "", err
	}

	// The watch lives until ClearWatch, not until the caller's request ends.
	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	updates, err := s.provider.Watch(watchCtx, opts)
	if err != nil {
		cancel()
		return "", classifyPositionError(ctx, err)
	}

	handle := WatchHandle(uuid.NewString())
	w := &positionWatch{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	s.watches[handle] = w
	s.mu.Unlock()

	go func() {
		defer close(w.done)
		for {
			select {
			case <-watchCtx.Done():
				return
			case u, ok := <-updates:
				if !ok {
					return
				}
				w.deliver(u, onSample, onError)
			}
		}
	}()

	return handle, nil
}

func (w *positionWatch) deliver(u domain.PositionUpdate, onSample func(domain.PositionSample), onError func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cleared {
		return
	}
	if u.Err != nil {
		if onError != nil {
			onError(classifyPositionError(context.Background(), u.Err))
		}
		return
	}
	if onSample != nil {
		onSample(u.Sample)
	}
}

// ClearWatch cancels a watch. It is idempotent, and no callback of the
// watch runs after it returns.
func (s *PositionService) ClearWatch(handle WatchHandle) {
	s.mu.Lock()
	w, ok := s.watches[handle]
	delete(s.watches, handle)
	s.mu.Unlock()
	if !ok {
		return
	}

	// Waits for an in-flight callback to finish.
	w.mu.Lock()
	w.cleared = true
	w.mu.Unlock()
	w.cancel()
}

// ActiveWatches returns the number of registered watches.
func (s *PositionService) ActiveWatches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watches)
}

// Close clears every watch.
func (s *PositionService) Close() {
	s.mu.Lock()
	handles := make([]WatchHandle, 0, len(s.watches))
	for h := range s.watches {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		s.ClearWatch(h)
	}
}

// classifyPositionError maps provider failures onto the domain taxonomy.
func classifyPositionError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrPermissionDenied),
		errors.Is(err, domain.ErrTimeout),
		errors.Is(err, domain.ErrUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
}
