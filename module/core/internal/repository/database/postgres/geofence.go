package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/domain"
	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/internal/repository/database"
)

var _ database.GeofenceRepository = (*GeofenceRepo)(nil)

const geofenceColumns = `id, device_id, name, latitude, longitude, radius, is_active, notify_on_enter, notify_on_exit, created_at`

type GeofenceRepo struct {
	db *sql.DB
}

func NewGeofenceRepo(db *sql.DB) *GeofenceRepo {
	return &GeofenceRepo{db: db}
}

func (r *GeofenceRepo) Insert(ctx context.Context, gf *domain.Geofence) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO geofences (`+geofenceColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		gf.ID, gf.DeviceID, gf.Name, gf.Lat, gf.Lon, gf.Radius, gf.Active, gf.NotifyOnEnter, gf.NotifyOnExit, gf.CreatedAt,
	)
	return err
}

func (r *GeofenceRepo) Get(ctx context.Context, id string) (*domain.Geofence, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+geofenceColumns+` FROM geofences WHERE id = $1`, id)
	gf, err := scanGeofence(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrGeofenceNotFound
	}
	if err != nil {
		return nil, err
	}
	return gf, nil
}

func (r *GeofenceRepo) ListByDevice(ctx context.Context, deviceID string) ([]domain.Geofence, error) {
	return r.list(ctx, `SELECT `+geofenceColumns+` FROM geofences WHERE device_id = $1 ORDER BY created_at`, deviceID)
}

func (r *GeofenceRepo) ListActiveByDevice(ctx context.Context, deviceID string) ([]domain.Geofence, error) {
	return r.list(ctx, `SELECT `+geofenceColumns+` FROM geofences WHERE device_id = $1 AND is_active = TRUE ORDER BY created_at`, deviceID)
}

func (r *GeofenceRepo) CountActive(ctx context.Context, deviceID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM geofences WHERE device_id = $1 AND is_active = TRUE`, deviceID,
	).Scan(&n)
	return n, err
}

// Update writes the mutable columns only; latitude and longitude are never
// touched after insert.
func (r *GeofenceRepo) Update(ctx context.Context, gf *domain.Geofence) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE geofences SET name = $2, radius = $3, is_active = $4, notify_on_enter = $5, notify_on_exit = $6 WHERE id = $1`,
		gf.ID, gf.Name, gf.Radius, gf.Active, gf.NotifyOnEnter, gf.NotifyOnExit,
	)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r *GeofenceRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM geofences WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r *GeofenceRepo) list(ctx context.Context, query, deviceID string) ([]domain.Geofence, error) {
	rows, err := r.db.QueryContext(ctx, query, deviceID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	results := []domain.Geofence{}
	for rows.Next() {
		gf, err := scanGeofence(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *gf)
	}
	return results, rows.Err()
}

func scanGeofence(s scanner) (*domain.Geofence, error) {
	var gf domain.Geofence
	if err := s.Scan(
		&gf.ID, &gf.DeviceID, &gf.Name, &gf.Lat, &gf.Lon, &gf.Radius,
		&gf.Active, &gf.NotifyOnEnter, &gf.NotifyOnExit, &gf.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &gf, nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrGeofenceNotFound
	}
	return nil
}
