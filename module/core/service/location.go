package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/domain"
	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/internal/repository/database"
	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/internal/repository/publisher"
	"github.com/sobri3195/pegasus-real-time-phone-tracking/observability/metrics"
)

type locationResolver interface {
	Resolve(ctx context.Context, obs *domain.LocationObservation) (*domain.ResolvedLocation, error)
	Address(ctx context.Context, lat, lon float64) (string, bool)
}

type LocationService struct {
	repo      database.LocationRepository
	geofences database.GeofenceRepository
	events    database.GeofenceEventRepository
	resolver  locationResolver
	evaluator *GeofenceEvaluator
	publisher publisher.GeofencePublisher
	pusher    publisher.LocationPusher
	now       func() time.Time
}

func NewLocationService(
	repo database.LocationRepository,
	geofences database.GeofenceRepository,
	events database.GeofenceEventRepository,
	resolver locationResolver,
	evaluator *GeofenceEvaluator,
	pub publisher.GeofencePublisher,
	pusher publisher.LocationPusher,
) *LocationService {
	return &LocationService{
		repo:      repo,
		geofences: geofences,
		events:    events,
		resolver:  resolver,
		evaluator: evaluator,
		publisher: pub,
		pusher:    pusher,
		now:       time.Now,
	}
}

// UpdateLocation resolves obs, stores the result, evaluates the device's
// active geofences and fans out the outcome. Resolution and storage errors
// are returned; geofence, publish and push failures are logged and never fail
// the update.
func (s *LocationService) UpdateLocation(ctx context.Context, deviceID string, obs *domain.LocationObservation, meta domain.UpdateMeta) (*domain.LocationUpdate, error) {
	loc, err := s.resolver.Resolve(ctx, obs)
	if err != nil {
		return nil, err
	}

	// Containment state is read-modify-write per device.
	unlock := s.evaluator.LockDevice(deviceID)
	defer unlock()

	record := &domain.DeviceLocation{
		DeviceID:  deviceID,
		Location:  *loc,
		Meta:      meta,
		Timestamp: s.now().UTC(),
	}
	if err := s.repo.Insert(ctx, record); err != nil {
		return nil, fmt.Errorf("save location: %w", err)
	}

	events := s.evaluate(ctx, deviceID, loc)
	for i := range events {
		ev := &events[i]
		if err := s.events.Insert(ctx, ev); err != nil {
			log.Printf("save geofence event %s: %v", ev.ID, err)
		}
		if s.publisher == nil {
			continue
		}
		if err := s.publisher.PublishEvent(ctx, ev); err != nil {
			metrics.IncPublishError("rabbitmq")
			log.Printf("publish geofence event %s: %v", ev.ID, err)
		}
	}

	update := &domain.LocationUpdate{
		DeviceID:       deviceID,
		Location:       *record,
		GeofenceEvents: events,
	}
	if s.pusher != nil {
		if err := s.pusher.PushUpdate(ctx, update); err != nil {
			metrics.IncPublishError("mqtt")
			log.Printf("push location update for %s: %v", deviceID, err)
		}
	}

	log.Printf("location updated for device %s: %s", deviceID, loc.Source)
	return update, nil
}

func (s *LocationService) evaluate(ctx context.Context, deviceID string, loc *domain.ResolvedLocation) []domain.GeofenceEvent {
	geofences, err := s.geofences.ListActiveByDevice(ctx, deviceID)
	if err != nil {
		log.Printf("list geofences for %s: %v", deviceID, err)
		return []domain.GeofenceEvent{}
	}
	events := s.evaluator.Evaluate(deviceID, geofences, loc.Lat, loc.Lon)
	if events == nil {
		events = []domain.GeofenceEvent{}
	}
	return events
}

func (s *LocationService) GetLatest(ctx context.Context, deviceID string) (*domain.DeviceLocation, error) {
	return s.repo.GetLatest(ctx, deviceID)
}

// Address is a best-effort reverse geocode of a stored position.
func (s *LocationService) Address(ctx context.Context, lat, lon float64) (string, bool) {
	return s.resolver.Address(ctx, lat, lon)
}

func (s *LocationService) GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.DeviceLocation, error) {
	return s.repo.GetHistory(ctx, query)
}

func (s *LocationService) GetAllDevices(ctx context.Context) ([]domain.Device, error) {
	return s.repo.GetAllDevices(ctx)
}

// ForgetDevice reclaims the containment state of a removed device.
func (s *LocationService) ForgetDevice(deviceID string) {
	unlock := s.evaluator.LockDevice(deviceID)
	defer unlock()
	s.evaluator.ForgetDevice(deviceID)
}
