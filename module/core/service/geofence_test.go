package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/domain"
)

type mockGeofenceRepo struct {
	insertFn             func(ctx context.Context, gf *domain.Geofence) error
	getFn                func(ctx context.Context, id string) (*domain.Geofence, error)
	listByDeviceFn       func(ctx context.Context, deviceID string) ([]domain.Geofence, error)
	listActiveByDeviceFn func(ctx context.Context, deviceID string) ([]domain.Geofence, error)
	countActiveFn        func(ctx context.Context, deviceID string) (int, error)
	updateFn             func(ctx context.Context, gf *domain.Geofence) error
	deleteFn             func(ctx context.Context, id string) error
}

func (m *mockGeofenceRepo) Insert(ctx context.Context, gf *domain.Geofence) error {
	return m.insertFn(ctx, gf)
}

func (m *mockGeofenceRepo) Get(ctx context.Context, id string) (*domain.Geofence, error) {
	return m.getFn(ctx, id)
}

func (m *mockGeofenceRepo) ListByDevice(ctx context.Context, deviceID string) ([]domain.Geofence, error) {
	return m.listByDeviceFn(ctx, deviceID)
}

func (m *mockGeofenceRepo) ListActiveByDevice(ctx context.Context, deviceID string) ([]domain.Geofence, error) {
	return m.listActiveByDeviceFn(ctx, deviceID)
}

func (m *mockGeofenceRepo) CountActive(ctx context.Context, deviceID string) (int, error) {
	return m.countActiveFn(ctx, deviceID)
}

func (m *mockGeofenceRepo) Update(ctx context.Context, gf *domain.Geofence) error {
	return m.updateFn(ctx, gf)
}

func (m *mockGeofenceRepo) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

type mockEventRepo struct {
	insertFn       func(ctx context.Context, ev *domain.GeofenceEvent) error
	listByDeviceFn func(ctx context.Context, deviceID string, limit int) ([]domain.GeofenceEvent, error)
}

func (m *mockEventRepo) Insert(ctx context.Context, ev *domain.GeofenceEvent) error {
	return m.insertFn(ctx, ev)
}

func (m *mockEventRepo) ListByDevice(ctx context.Context, deviceID string, limit int) ([]domain.GeofenceEvent, error) {
	return m.listByDeviceFn(ctx, deviceID, limit)
}

func validGeofenceInput(radius float64) CreateGeofenceInput {
	return CreateGeofenceInput{
		DeviceID:      "phone-1",
		Name:          "office",
		Lat:           centerLat,
		Lon:           centerLon,
		Radius:        radius,
		NotifyOnEnter: true,
		NotifyOnExit:  false,
	}
}

func TestCreate_RadiusBounds(t *testing.T) {
	tests := []struct {
		radius  float64
		wantErr bool
	}{
		{50, true},
		{99.9, true},
		{100, false},
		{500, false},
		{10000, false},
		{10001, true},
	}

	for _, tt := range tests {
		var inserted *domain.Geofence
		repo := &mockGeofenceRepo{
			insertFn: func(_ context.Context, gf *domain.Geofence) error {
				inserted = gf
				return nil
			},
		}
		svc := NewGeofenceService(repo, &mockEventRepo{}, NewGeofenceEvaluator())

		gf, err := svc.Create(context.Background(), validGeofenceInput(tt.radius))
		if tt.wantErr {
			if !errors.Is(err, domain.ErrInvalidRadius) {
				t.Errorf("radius %v: expected ErrInvalidRadius, got %v", tt.radius, err)
			}
			if inserted != nil {
				t.Errorf("radius %v: repository must not be called", tt.radius)
			}
			continue
		}
		if err != nil {
			t.Errorf("radius %v: unexpected error %v", tt.radius, err)
			continue
		}
		if gf.ID == "" || !gf.Active || gf.Radius != tt.radius {
			t.Errorf("radius %v: unexpected geofence %+v", tt.radius, gf)
		}
		if !gf.NotifyOnEnter || gf.NotifyOnExit {
			t.Errorf("radius %v: notify flags not carried over", tt.radius)
		}
		if inserted != gf {
			t.Errorf("radius %v: expected the created geofence to be stored", tt.radius)
		}
	}
}

func TestCreate_InvalidCenter(t *testing.T) {
	svc := NewGeofenceService(&mockGeofenceRepo{}, &mockEventRepo{}, nil)
	in := validGeofenceInput(500)
	in.Lon = 200

	if _, err := svc.Create(context.Background(), in); !errors.Is(err, domain.ErrInvalidCoordinates) {
		t.Fatalf("expected ErrInvalidCoordinates, got %v", err)
	}
}

func TestCreate_RepoError(t *testing.T) {
	repo := &mockGeofenceRepo{
		insertFn: func(context.Context, *domain.Geofence) error { return errors.New("db down") },
	}
	svc := NewGeofenceService(repo, &mockEventRepo{}, nil)

	if _, err := svc.Create(context.Background(), validGeofenceInput(500)); err == nil {
		t.Fatal("expected error")
	}
}

func TestUpdate_AppliesMutableFields(t *testing.T) {
	stored := testGeofence("gf-1")
	var saved *domain.Geofence
	repo := &mockGeofenceRepo{
		getFn: func(_ context.Context, id string) (*domain.Geofence, error) {
			if id != "gf-1" {
				t.Errorf("unexpected id %s", id)
			}
			gf := stored
			return &gf, nil
		},
		updateFn: func(_ context.Context, gf *domain.Geofence) error {
			saved = gf
			return nil
		},
	}
	svc := NewGeofenceService(repo, &mockEventRepo{}, nil)

	name := "home"
	radius := 1500.0
	active := false
	gf, err := svc.Update(context.Background(), "gf-1", domain.GeofenceUpdate{Name: &name, Radius: &radius, Active: &active})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gf.Name != "home" || gf.Radius != 1500 || gf.Active {
		t.Errorf("unexpected geofence %+v", gf)
	}
	if gf.Lat != stored.Lat || gf.Lon != stored.Lon {
		t.Error("center must not change")
	}
	if saved == nil {
		t.Fatal("expected repository update")
	}
}

func TestUpdate_InvalidRadius(t *testing.T) {
	repo := &mockGeofenceRepo{
		getFn: func(context.Context, string) (*domain.Geofence, error) {
			gf := testGeofence("gf-1")
			return &gf, nil
		},
		updateFn: func(context.Context, *domain.Geofence) error {
			t.Fatal("update must not be called")
			return nil
		},
	}
	svc := NewGeofenceService(repo, &mockEventRepo{}, nil)

	radius := 20000.0
	_, err := svc.Update(context.Background(), "gf-1", domain.GeofenceUpdate{Radius: &radius})
	if !errors.Is(err, domain.ErrInvalidRadius) {
		t.Fatalf("expected ErrInvalidRadius, got %v", err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	repo := &mockGeofenceRepo{
		getFn: func(context.Context, string) (*domain.Geofence, error) {
			return nil, domain.ErrGeofenceNotFound
		},
	}
	svc := NewGeofenceService(repo, &mockEventRepo{}, nil)

	if _, err := svc.Update(context.Background(), "nope", domain.GeofenceUpdate{}); !errors.Is(err, domain.ErrGeofenceNotFound) {
		t.Fatalf("expected ErrGeofenceNotFound, got %v", err)
	}
}

func deleteRepo(deleteErr error) *mockGeofenceRepo {
	return &mockGeofenceRepo{
		getFn: func(_ context.Context, id string) (*domain.Geofence, error) {
			gf := testGeofence(id)
			return &gf, nil
		},
		deleteFn: func(context.Context, string) error { return deleteErr },
	}
}

func TestDelete_ReclaimsState(t *testing.T) {
	evaluator := NewGeofenceEvaluator()
	evaluator.Evaluate("phone-1", []domain.Geofence{testGeofence("gf-1")}, centerLat, centerLon)

	svc := NewGeofenceService(deleteRepo(nil), &mockEventRepo{}, evaluator)

	if err := svc.Delete(context.Background(), "gf-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if evaluator.Inside("phone-1", "gf-1") {
		t.Error("expected containment state to be dropped")
	}
}

func TestDelete_NotFoundKeepsState(t *testing.T) {
	evaluator := NewGeofenceEvaluator()
	evaluator.Evaluate("phone-1", []domain.Geofence{testGeofence("gf-1")}, centerLat, centerLon)

	svc := NewGeofenceService(deleteRepo(domain.ErrGeofenceNotFound), &mockEventRepo{}, evaluator)

	if err := svc.Delete(context.Background(), "gf-1"); !errors.Is(err, domain.ErrGeofenceNotFound) {
		t.Fatalf("expected ErrGeofenceNotFound, got %v", err)
	}
	if !evaluator.Inside("phone-1", "gf-1") {
		t.Error("state must survive a failed delete")
	}
}

func TestDelete_UnknownGeofence(t *testing.T) {
	repo := &mockGeofenceRepo{
		getFn: func(context.Context, string) (*domain.Geofence, error) {
			return nil, domain.ErrGeofenceNotFound
		},
		deleteFn: func(context.Context, string) error {
			t.Fatal("delete must not run for an unknown geofence")
			return nil
		},
	}
	svc := NewGeofenceService(repo, &mockEventRepo{}, NewGeofenceEvaluator())

	if err := svc.Delete(context.Background(), "missing"); !errors.Is(err, domain.ErrGeofenceNotFound) {
		t.Fatalf("expected ErrGeofenceNotFound, got %v", err)
	}
}

func TestDelete_WaitsForInFlightEvaluation(t *testing.T) {
	evaluator := NewGeofenceEvaluator()
	svc := NewGeofenceService(deleteRepo(nil), &mockEventRepo{}, evaluator)

	// An update for phone-1 listed gf-1 and is about to evaluate.
	unlock := evaluator.LockDevice("phone-1")

	done := make(chan error, 1)
	go func() { done <- svc.Delete(context.Background(), "gf-1") }()

	select {
	case err := <-done:
		t.Fatalf("delete finished while the device was locked: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	evaluator.Evaluate("phone-1", []domain.Geofence{testGeofence("gf-1")}, centerLat, centerLon)
	unlock()

	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if evaluator.Inside("phone-1", "gf-1") {
		t.Error("state written by the in-flight evaluation must be dropped")
	}
}

func TestEvents_DefaultLimit(t *testing.T) {
	var gotLimit int
	events := &mockEventRepo{
		listByDeviceFn: func(_ context.Context, _ string, limit int) ([]domain.GeofenceEvent, error) {
			gotLimit = limit
			return []domain.GeofenceEvent{}, nil
		},
	}
	svc := NewGeofenceService(&mockGeofenceRepo{}, events, nil)

	if _, err := svc.Events(context.Background(), "phone-1", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLimit != 100 {
		t.Errorf("expected default limit 100, got %d", gotLimit)
	}

	if _, err := svc.Events(context.Background(), "phone-1", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLimit != 5 {
		t.Errorf("expected limit 5, got %d", gotLimit)
	}
}
