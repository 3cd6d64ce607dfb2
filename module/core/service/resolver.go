package service

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/domain"
	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/internal/repository/lookup"
	"github.com/sobri3195/pegasus-real-time-phone-tracking/observability/metrics"
)

const (
	defaultGPSAccuracy  = 5.0
	singleTowerAccuracy = 200.0
)

// sourcePriority orders the sub-results of a fusion payload.
var sourcePriority = []domain.Source{domain.SourceGPS, domain.SourceBTS, domain.SourceWIFI}

// LocationResolver turns raw observations into a ResolvedLocation.
type LocationResolver struct {
	towers   lookup.TowerLocator
	geocoder lookup.ReverseGeocoder
}

func NewLocationResolver(towers lookup.TowerLocator, geocoder lookup.ReverseGeocoder) *LocationResolver {
	return &LocationResolver{towers: towers, geocoder: geocoder}
}

// Resolve dispatches on the observation's source tag. GPS and BTS payloads
// are resolved directly; anything else goes through fusion of the nested
// gps_data / bts_data sub-payloads.
func (r *LocationResolver) Resolve(ctx context.Context, obs *domain.LocationObservation) (*domain.ResolvedLocation, error) {
	if obs == nil {
		return nil, domain.ErrNoValidSource
	}
	source := domain.ParseSource(string(obs.Source))

	start := time.Now()
	var (
		loc *domain.ResolvedLocation
		err error
	)
	switch source {
	case domain.SourceGPS:
		loc, err = resolveGPS(obs)
	case domain.SourceBTS:
		loc, err = r.resolveBTS(ctx, obs)
	default:
		loc, err = r.fuse(ctx, obs)
	}
	metrics.ObserveResolve(string(source), err, time.Since(start))
	return loc, err
}

// Address is a best-effort reverse geocode.
func (r *LocationResolver) Address(ctx context.Context, lat, lon float64) (string, bool) {
	if r.geocoder == nil {
		return "", false
	}
	return r.geocoder.ReverseGeocode(ctx, lat, lon)
}

func resolveGPS(obs *domain.LocationObservation) (*domain.ResolvedLocation, error) {
	if obs.Latitude == nil || obs.Longitude == nil {
		return nil, domain.ErrMissingCoordinates
	}
	lat, lon := *obs.Latitude, *obs.Longitude
	if !validCoordinates(lat, lon) {
		return nil, domain.ErrInvalidCoordinates
	}

	accuracy := defaultGPSAccuracy
	if obs.Accuracy != nil && *obs.Accuracy > 0 {
		accuracy = *obs.Accuracy
	}
	return &domain.ResolvedLocation{
		Lat:      lat,
		Lon:      lon,
		Source:   domain.SourceGPS,
		Accuracy: accuracy,
		Altitude: obs.Altitude,
		Speed:    obs.Speed,
	}, nil
}

func (r *LocationResolver) resolveBTS(ctx context.Context, obs *domain.LocationObservation) (*domain.ResolvedLocation, error) {
	if len(obs.CellTowers) == 0 {
		return nil, domain.ErrInsufficientTowers
	}
	primary := obs.CellTowers[0]

	if len(obs.CellTowers) >= trilaterationTowers {
		fix, err := r.trilaterate(ctx, obs.CellTowers)
		if err == nil {
			metrics.IncTrilateration("converged")
			return btsLocation(fix.lat, fix.lon, fix.accuracy, primary), nil
		}
		metrics.IncTrilateration("fallback")
		log.Printf("trilateration failed, using primary tower: %v", err)
	}

	pos, ok := r.locateTower(ctx, primary)
	if !ok {
		return nil, domain.ErrUnresolvableLocation
	}
	return btsLocation(pos.Lat, pos.Lon, singleTowerAccuracy, primary), nil
}

func (r *LocationResolver) fuse(ctx context.Context, obs *domain.LocationObservation) (*domain.ResolvedLocation, error) {
	results := make(map[domain.Source]*domain.ResolvedLocation, len(sourcePriority))

	if obs.GPS != nil {
		loc, err := resolveGPS(obs.GPS)
		if err != nil {
			log.Printf("fusion: gps processing failed: %v", err)
		} else {
			results[domain.SourceGPS] = loc
		}
	}
	if obs.BTS != nil {
		loc, err := r.resolveBTS(ctx, obs.BTS)
		if err != nil {
			log.Printf("fusion: bts processing failed: %v", err)
		} else {
			results[domain.SourceBTS] = loc
		}
	}

	for _, source := range sourcePriority {
		if loc, ok := results[source]; ok {
			return loc, nil
		}
	}
	return nil, domain.ErrNoValidSource
}

func (r *LocationResolver) locateTower(ctx context.Context, tower domain.CellTowerObservation) (domain.TowerPosition, bool) {
	if r.towers == nil {
		return domain.TowerPosition{}, false
	}
	pos, ok := r.towers.LocateTower(ctx, tower)
	if !ok || !validCoordinates(pos.Lat, pos.Lon) {
		return domain.TowerPosition{}, false
	}
	return pos, true
}

func btsLocation(lat, lon, accuracy float64, primary domain.CellTowerObservation) *domain.ResolvedLocation {
	cellID, lac := primary.CellID, primary.LAC
	return &domain.ResolvedLocation{
		Lat:      lat,
		Lon:      lon,
		Source:   domain.SourceBTS,
		Accuracy: accuracy,
		CellID:   &cellID,
		LAC:      &lac,
	}
}

func validCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
