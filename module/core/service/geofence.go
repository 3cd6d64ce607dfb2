package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/domain"
	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/internal/repository/database"
)

const defaultEventLimit = 100

type CreateGeofenceInput struct {
	DeviceID      string
	Name          string
	Lat           float64
	Lon           float64
	Radius        float64
	NotifyOnEnter bool
	NotifyOnExit  bool
}

type GeofenceService struct {
	repo      database.GeofenceRepository
	events    database.GeofenceEventRepository
	evaluator *GeofenceEvaluator
}

func NewGeofenceService(repo database.GeofenceRepository, events database.GeofenceEventRepository, evaluator *GeofenceEvaluator) *GeofenceService {
	return &GeofenceService{
		repo:      repo,
		events:    events,
		evaluator: evaluator,
	}
}

// Create validates the radius and stores a new active geofence. The
// per-device active cap is the caller's concern.
func (s *GeofenceService) Create(ctx context.Context, in CreateGeofenceInput) (*domain.Geofence, error) {
	if err := domain.ValidateRadius(in.Radius); err != nil {
		return nil, err
	}
	if !validCoordinates(in.Lat, in.Lon) {
		return nil, domain.ErrInvalidCoordinates
	}

	gf := &domain.Geofence{
		ID:            uuid.NewString(),
		DeviceID:      in.DeviceID,
		Name:          in.Name,
		Lat:           in.Lat,
		Lon:           in.Lon,
		Radius:        in.Radius,
		Active:        true,
		NotifyOnEnter: in.NotifyOnEnter,
		NotifyOnExit:  in.NotifyOnExit,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, gf); err != nil {
		return nil, fmt.Errorf("insert geofence: %w", err)
	}
	return gf, nil
}

func (s *GeofenceService) ListByDevice(ctx context.Context, deviceID string) ([]domain.Geofence, error) {
	return s.repo.ListByDevice(ctx, deviceID)
}

func (s *GeofenceService) ListActive(ctx context.Context, deviceID string) ([]domain.Geofence, error) {
	return s.repo.ListActiveByDevice(ctx, deviceID)
}

func (s *GeofenceService) CountActive(ctx context.Context, deviceID string) (int, error) {
	return s.repo.CountActive(ctx, deviceID)
}

// Update applies the mutable fields. The centre never changes.
func (s *GeofenceService) Update(ctx context.Context, id string, upd domain.GeofenceUpdate) (*domain.Geofence, error) {
	gf, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := upd.Apply(gf); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, gf); err != nil {
		return nil, fmt.Errorf("update geofence: %w", err)
	}
	return gf, nil
}

// Delete removes the geofence and reclaims its containment state. The
// owning device is locked so an in-flight update cannot restore the entry.
func (s *GeofenceService) Delete(ctx context.Context, id string) error {
	if s.evaluator == nil {
		return s.repo.Delete(ctx, id)
	}

	gf, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	unlock := s.evaluator.LockDevice(gf.DeviceID)
	defer unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.evaluator.ForgetGeofence(id)
	return nil
}

func (s *GeofenceService) Events(ctx context.Context, deviceID string, limit int) ([]domain.GeofenceEvent, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	return s.events.ListByDevice(ctx, deviceID, limit)
}
