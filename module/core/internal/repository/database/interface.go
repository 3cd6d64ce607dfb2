package database

import (
	"context"

	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/domain"
)

type LocationRepository interface {
	Insert(ctx context.Context, loc *domain.DeviceLocation) error
	GetLatest(ctx context.Context, deviceID string) (*domain.DeviceLocation, error)
	GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.DeviceLocation, error)
	GetAllDevices(ctx context.Context) ([]domain.Device, error)
}

type GeofenceRepository interface {
	Insert(ctx context.Context, gf *domain.Geofence) error
	Get(ctx context.Context, id string) (*domain.Geofence, error)
	ListByDevice(ctx context.Context, deviceID string) ([]domain.Geofence, error)
	ListActiveByDevice(ctx context.Context, deviceID string) ([]domain.Geofence, error)
	CountActive(ctx context.Context, deviceID string) (int, error)
	Update(ctx context.Context, gf *domain.Geofence) error
	Delete(ctx context.Context, id string) error
}

type GeofenceEventRepository interface {
	Insert(ctx context.Context, ev *domain.GeofenceEvent) error
	ListByDevice(ctx context.Context, deviceID string, limit int) ([]domain.GeofenceEvent, error)
}
