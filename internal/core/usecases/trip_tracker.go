package usecases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/carcompanion/internal/core/domain"
	"github.com/samirrijal/carcompanion/internal/core/ports"
	"github.com/samirrijal/carcompanion/internal/pkg/geospatial"
	"github.com/samirrijal/carcompanion/internal/pkg/metrics"
)

// DefaultNoiseFloorKm is the minimum displacement counted as movement.
const DefaultNoiseFloorKm = 0.01

// TripTracker is the Idle/Tracking state machine that turns position
// samples into trip distance.
type TripTracker struct {
	positions    *PositionService
	opts         domain.PositionOptions
	noiseFloorKm float64
	vehicleID    string
	archive      ports.TripArchive
	publisher    ports.EventPublisher
	notices      noticeSender
	logger       *slog.Logger

	// lifecycle serializes Start and Stop; mu guards the fields below.
	lifecycle sync.Mutex
	mu        sync.Mutex
	state     domain.TrackingState
	session   uint64
	handle    WatchHandle
	liveKm    float64
	last      *domain.PositionSample
	startedAt time.Time
	history   []domain.Trip
}

// TrackerOption configures a TripTracker.
type TrackerOption func(*TripTracker)

func WithNoiseFloorKm(km float64) TrackerOption {
	return func(t *TripTracker) {
		if km >= 0 {
			t.noiseFloorKm = km
		}
	}
}

func WithPositionOptions(opts domain.PositionOptions) TrackerOption {
	return func(t *TripTracker) { t.opts = opts }
}

func WithVehicleID(id string) TrackerOption {
	return func(t *TripTracker) { t.vehicleID = id }
}

// WithArchive hands every recorded trip to a durable store.
func WithArchive(a ports.TripArchive) TrackerOption {
	return func(t *TripTracker) { t.archive = a }
}

func WithTripPublisher(p ports.EventPublisher) TrackerOption {
	return func(t *TripTracker) { t.publisher = p }
}

func WithTrackerNotifier(n ports.Notifier, tr ports.Translator) TrackerOption {
	return func(t *TripTracker) {
		t.notices.notifier = n
		if tr != nil {
			t.notices.t = tr
		}
	}
}

func WithTrackerClock(c ports.Clock) TrackerOption {
	return func(t *TripTracker) { t.notices.now = c }
}

// NewTripTracker creates an idle tracker.
func NewTripTracker(positions *PositionService, opts ...TrackerOption) *TripTracker {
	t := &TripTracker{
		positions:    positions,
		opts:         domain.DefaultPositionOptions(),
		noiseFloorKm: DefaultNoiseFloorKm,
		state:        domain.TrackingIdle,
		logger:       slog.Default().With("component", "trip_tracker"),
		notices:      noticeSender{t: echoTranslator, now: systemClock},
	}
	for _, o := range opts {
		o(t)
	}
	t.notices.logger = t.logger
	return t
}

// Start takes an initial fix, opens a watch and enters Tracking.
// Starting while already tracking is a no-op.
func (t *TripTracker) Start(ctx context.Context) error {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	if t.State() == domain.TrackingActive {
		return nil
	}

	first, err := t.positions.CurrentPosition(ctx, t.opts)
	if err != nil {
		t.logger.Warn("initial fix failed", "error", err)
		t.notices.sendError(ctx, err)
		return err
	}

	t.mu.Lock()
	t.session++
	session := t.session
	t.last = &first
	t.liveKm = 0
	t.startedAt = t.notices.now()
	t.state = domain.TrackingActive
	t.mu.Unlock()

	handle, err := t.positions.Watch(ctx, t.opts,
		func(s domain.PositionSample) { t.onSample(session, s) },
		func(err error) { t.onSampleError(session, err) },
	)
	if err != nil {
		t.mu.Lock()
		t.resetLocked()
		t.mu.Unlock()
		t.logger.Warn("watch failed", "error", err)
		t.notices.sendError(ctx, err)
		return err
	}

	t.mu.Lock()
	t.handle = handle
	t.mu.Unlock()

	t.logger.Info("tracking started", "lat", first.Location.Lat, "lon", first.Location.Lon)
	t.notices.send(ctx, domain.NoticeSuccess, "tracking.started")
	return nil
}

func (t *TripTracker) onSample(session uint64, s domain.PositionSample) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != domain.TrackingActive || t.session != session {
		return
	}
	if !s.Location.Valid() {
		metrics.PositionSamples.WithLabelValues("invalid").Inc()
		return
	}

	if t.last != nil {
		d := geospatial.DistanceKm(t.last.Location, s.Location)
		if d > t.noiseFloorKm {
			t.liveKm += d
			metrics.PositionSamples.WithLabelValues("accepted").Inc()
		} else {
			metrics.PositionSamples.WithLabelValues("filtered").Inc()
		}
	}
	// Jitter below the floor is dropped, but the position still advances.
	t.last = &s
}

func (t *TripTracker) onSampleError(session uint64, err error) {
	t.mu.Lock()
	current := t.state == domain.TrackingActive && t.session == session
	t.mu.Unlock()
	if !current {
		return
	}
	metrics.PositionSamples.WithLabelValues("error").Inc()
	t.logger.Warn("position sample failed", "error", err)
	t.notices.send(context.Background(), domain.NoticeError, "tracking.sampleError", err.Error())
}

// Stop cancels the watch and returns to Idle. A trip with distance is
// appended to history and returned; otherwise the result is nil.
func (t *TripTracker) Stop(ctx context.Context) (*domain.Trip, error) {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	t.mu.Lock()
	if t.state != domain.TrackingActive {
		t.mu.Unlock()
		return nil, nil
	}
	handle := t.handle
	var trip *domain.Trip
	if t.liveKm > 0 {
		trip = &domain.Trip{
			ID:         uuid.NewString(),
			VehicleID:  t.vehicleID,
			DistanceKm: t.liveKm,
			StartedAt:  t.startedAt,
			EndedAt:    t.notices.now(),
		}
		t.history = append(t.history, *trip)
	}
	t.resetLocked()
	t.mu.Unlock()

	// Outside mu: ClearWatch waits for an in-flight sample callback.
	t.positions.ClearWatch(handle)

	if trip == nil {
		t.logger.Info("tracking stopped without movement")
		t.notices.send(ctx, domain.NoticeInfo, "tracking.stopped")
		return nil, nil
	}

	metrics.TripsRecorded.Inc()
	metrics.TripDistance.Observe(trip.DistanceKm)
	t.logger.Info("trip recorded", "trip_id", trip.ID, "distance_km", trip.DistanceKm)

	if t.archive != nil {
		if err := t.archive.Archive(ctx, *trip); err != nil {
			t.logger.Warn("trip archive failed", "trip_id", trip.ID, "error", err)
		}
	}
	if t.publisher != nil {
		if err := t.publisher.PublishTrip(ctx, trip); err != nil {
			t.logger.Warn("trip publish failed", "trip_id", trip.ID, "error", err)
		}
	}
	t.notices.send(ctx, domain.NoticeSuccess, "tracking.saved", trip.DistanceKm)
	return trip, nil
}

// resetLocked returns to Idle and invalidates the current session.
func (t *TripTracker) resetLocked() {
	t.session++
	t.state = domain.TrackingIdle
	t.handle = ""
	t.liveKm = 0
	t.last = nil
	t.startedAt = time.Time{}
}

// ResetHistory empties the trip history. The current session is untouched.
func (t *TripTracker) ResetHistory(ctx context.Context) {
	t.mu.Lock()
	t.history = nil
	t.mu.Unlock()
	t.notices.send(ctx, domain.NoticeInfo, "tracking.historyCleared")
}

// State returns Idle or Tracking.
func (t *TripTracker) State() domain.TrackingState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// LiveDistanceKm returns the distance accumulated in the current session.
func (t *TripTracker) LiveDistanceKm() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.liveKm
}

// History returns recorded trips, most recent first.
func (t *TripTracker) History() []domain.Trip {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Trip, len(t.history))
	for i, trip := range t.history {
		out[len(t.history)-1-i] = trip
	}
	return out
}

// TotalMileageKm sums the history in insertion order.
func (t *TripTracker) TotalMileageKm() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalLocked()
}

func (t *TripTracker) totalLocked() float64 {
	var total float64
	for _, trip := range t.history {
		total += trip.DistanceKm
	}
	return total
}

// Snapshot returns the tracker state for display.
func (t *TripTracker) Snapshot() domain.TrackingSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := domain.TrackingSnapshot{
		State:          t.state,
		LiveDistanceKm: t.liveKm,
		TripCount:      len(t.history),
		TotalMileageKm: t.totalLocked(),
	}
	if t.last != nil {
		loc := t.last.Location
		snap.LastPosition = &loc
	}
	if t.state == domain.TrackingActive {
		started := t.startedAt
		snap.StartedAt = &started
	}
	return snap
}
