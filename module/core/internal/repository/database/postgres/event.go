package postgres

import (
	"context"
	"database/sql"

	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/domain"
	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/internal/repository/database"
)

var _ database.GeofenceEventRepository = (*GeofenceEventRepo)(nil)

type GeofenceEventRepo struct {
	db *sql.DB
}

func NewGeofenceEventRepo(db *sql.DB) *GeofenceEventRepo {
	return &GeofenceEventRepo{db: db}
}

func (r *GeofenceEventRepo) Insert(ctx context.Context, ev *domain.GeofenceEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO geofence_events (id, geofence_id, device_id, event_type, latitude, longitude, timestamp) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.ID, ev.GeofenceID, ev.DeviceID, string(ev.EventType), ev.Lat, ev.Lon, ev.Timestamp,
	)
	return err
}

func (r *GeofenceEventRepo) ListByDevice(ctx context.Context, deviceID string, limit int) ([]domain.GeofenceEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, geofence_id, device_id, event_type, latitude, longitude, timestamp FROM geofence_events WHERE device_id = $1 ORDER BY timestamp DESC LIMIT $2`,
		deviceID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	results := []domain.GeofenceEvent{}
	for rows.Next() {
		var ev domain.GeofenceEvent
		var eventType string
		if err := rows.Scan(&ev.ID, &ev.GeofenceID, &ev.DeviceID, &eventType, &ev.Lat, &ev.Lon, &ev.Timestamp); err != nil {
			return nil, err
		}
		ev.EventType = domain.GeofenceEventType(eventType)
		results = append(results, ev)
	}
	return results, rows.Err()
}
