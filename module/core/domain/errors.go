package domain

import "errors"

// Resolution errors. Callers reject the update with the error text.
var (
	ErrMissingCoordinates   = errors.New("location: gps data must include latitude and longitude")
	ErrInvalidCoordinates   = errors.New("location: coordinates out of range")
	ErrInsufficientTowers   = errors.New("location: bts data requires at least one cell tower")
	ErrUnresolvableLocation = errors.New("location: unable to determine location from bts data")
	ErrNoValidSource        = errors.New("location: no valid location sources available")
)

var (
	ErrInvalidRadius    = errors.New("geofence: radius must be between 100m and 10km")
	ErrGeofenceNotFound = errors.New("geofence: not found")
	ErrNotFound         = errors.New("location: not found")
)

var ErrUnsupportedExportFormat = errors.New("export: invalid format, use csv, json, or kml")
