package lookup

import (
	"context"

	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/domain"
)

// TowerLocator resolves a tower's registered position. ok is false when the
// provider has no data or could not be reached.
type TowerLocator interface {
	LocateTower(ctx context.Context, tower domain.CellTowerObservation) (pos domain.TowerPosition, ok bool)
}

// ReverseGeocoder turns coordinates into a human-readable address. ok is
// false when no address is available.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (address string, ok bool)
}
