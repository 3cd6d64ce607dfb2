package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/domain"
	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/internal/repository/database"
)

var _ database.LocationRepository = (*LocationRepo)(nil)

const locationColumns = `id, device_id, latitude, longitude, source, accuracy, altitude, speed, cell_id, lac, battery_level, signal_strength, timestamp`

type LocationRepo struct {
	db *sql.DB
}

func NewLocationRepo(db *sql.DB) *LocationRepo {
	return &LocationRepo{db: db}
}

func (r *LocationRepo) Insert(ctx context.Context, loc *domain.DeviceLocation) error {
	l := loc.Location
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO location_logs (device_id, latitude, longitude, source, accuracy, altitude, speed, cell_id, lac, battery_level, signal_strength, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`,
		loc.DeviceID, l.Lat, l.Lon, string(l.Source), l.Accuracy,
		nullFloat(l.Altitude), nullFloat(l.Speed), nullInt64(l.CellID), nullInt64(l.LAC),
		nullInt(loc.Meta.BatteryLevel), nullInt(loc.Meta.SignalStrength), loc.Timestamp,
	)
	return row.Scan(&loc.ID)
}

func (r *LocationRepo) GetLatest(ctx context.Context, deviceID string) (*domain.DeviceLocation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+locationColumns+` FROM location_logs WHERE device_id = $1 ORDER BY timestamp DESC LIMIT 1`,
		deviceID,
	)

	dl, err := scanLocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return dl, nil
}

// GetHistory returns the device's rows newest first. Zero Start or End leave
// that side of the range open; Limit 0 means no limit.
func (r *LocationRepo) GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.DeviceLocation, error) {
	q := `SELECT ` + locationColumns + ` FROM location_logs WHERE device_id = $1`
	args := []any{query.DeviceID}
	if !query.Start.IsZero() {
		args = append(args, query.Start)
		q += fmt.Sprintf(` AND timestamp >= $%d`, len(args))
	}
	if !query.End.IsZero() {
		args = append(args, query.End)
		q += fmt.Sprintf(` AND timestamp <= $%d`, len(args))
	}
	q += ` ORDER BY timestamp DESC`
	if query.Limit > 0 {
		args = append(args, query.Limit)
		q += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if query.Offset > 0 {
		args = append(args, query.Offset)
		q += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	results := []domain.DeviceLocation{}
	for rows.Next() {
		dl, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *dl)
	}
	return results, rows.Err()
}

func (r *LocationRepo) GetAllDevices(ctx context.Context) ([]domain.Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT device_id FROM location_logs ORDER BY device_id`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	results := []domain.Device{}
	for rows.Next() {
		var d domain.Device
		if err := rows.Scan(&d.DeviceID); err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLocation(s scanner) (*domain.DeviceLocation, error) {
	var (
		dl                      domain.DeviceLocation
		source                  string
		altitude, speed         sql.NullFloat64
		cellID, lac             sql.NullInt64
		battery, signalStrength sql.NullInt64
	)
	if err := s.Scan(
		&dl.ID, &dl.DeviceID, &dl.Location.Lat, &dl.Location.Lon, &source, &dl.Location.Accuracy,
		&altitude, &speed, &cellID, &lac, &battery, &signalStrength, &dl.Timestamp,
	); err != nil {
		return nil, err
	}
	dl.Location.Source = domain.Source(source)
	dl.Location.Altitude = floatPtr(altitude)
	dl.Location.Speed = floatPtr(speed)
	dl.Location.CellID = int64Ptr(cellID)
	dl.Location.LAC = int64Ptr(lac)
	dl.Meta.BatteryLevel = intPtr(battery)
	dl.Meta.SignalStrength = intPtr(signalStrength)
	return &dl, nil
}
