package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/domain"
)

type mockTowerLocator struct {
	towers map[int64]domain.TowerPosition
	calls  int
}

func (m *mockTowerLocator) LocateTower(_ context.Context, tower domain.CellTowerObservation) (domain.TowerPosition, bool) {
	m.calls++
	pos, ok := m.towers[tower.CellID]
	return pos, ok
}

type mockGeocoder struct {
	reverseGeocodeFn func(ctx context.Context, lat, lon float64) (string, bool)
}

func (m *mockGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (string, bool) {
	return m.reverseGeocodeFn(ctx, lat, lon)
}

func f64(v float64) *float64 { return &v }

func gpsObs(lat, lon float64) *domain.LocationObservation {
	return &domain.LocationObservation{Source: domain.SourceGPS, Latitude: f64(lat), Longitude: f64(lon)}
}

func TestResolve_GPS(t *testing.T) {
	r := NewLocationResolver(nil, nil)

	loc, err := r.Resolve(context.Background(), gpsObs(-6.2088, 106.8456))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Source != domain.SourceGPS {
		t.Errorf("expected GPS, got %s", loc.Source)
	}
	if loc.Lat != -6.2088 || loc.Lon != 106.8456 {
		t.Errorf("unexpected position %f,%f", loc.Lat, loc.Lon)
	}
	if loc.Accuracy != 5.0 {
		t.Errorf("expected default accuracy 5, got %f", loc.Accuracy)
	}
}

func TestResolve_GPSKeepsReportedFields(t *testing.T) {
	r := NewLocationResolver(nil, nil)
	obs := gpsObs(1, 2)
	obs.Source = "gps"
	obs.Accuracy = f64(12.5)
	obs.Speed = f64(3)
	obs.Altitude = f64(40)

	loc, err := r.Resolve(context.Background(), obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Accuracy != 12.5 {
		t.Errorf("expected 12.5, got %f", loc.Accuracy)
	}
	if loc.Speed == nil || *loc.Speed != 3 || loc.Altitude == nil || *loc.Altitude != 40 {
		t.Errorf("speed/altitude not carried over: %+v", loc)
	}
}

func TestResolve_GPSErrors(t *testing.T) {
	r := NewLocationResolver(nil, nil)

	tests := []struct {
		name string
		obs  *domain.LocationObservation
		want error
	}{
		{"missing longitude", &domain.LocationObservation{Source: domain.SourceGPS, Latitude: f64(1)}, domain.ErrMissingCoordinates},
		{"missing both", &domain.LocationObservation{Source: domain.SourceGPS}, domain.ErrMissingCoordinates},
		{"latitude out of range", gpsObs(91, 0), domain.ErrInvalidCoordinates},
		{"longitude out of range", gpsObs(0, -181), domain.ErrInvalidCoordinates},
		{"nan", gpsObs(math.NaN(), 0), domain.ErrInvalidCoordinates},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), tt.obs)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestResolve_BTSNoTowers(t *testing.T) {
	r := NewLocationResolver(&mockTowerLocator{}, nil)

	_, err := r.Resolve(context.Background(), &domain.LocationObservation{Source: domain.SourceBTS})
	if !errors.Is(err, domain.ErrInsufficientTowers) {
		t.Fatalf("expected ErrInsufficientTowers, got %v", err)
	}
}

func TestResolve_BTSSingleTower(t *testing.T) {
	towers := &mockTowerLocator{towers: map[int64]domain.TowerPosition{
		100: {Lat: -6.2, Lon: 106.8, Range: 1000},
	}}
	r := NewLocationResolver(towers, nil)

	obs := &domain.LocationObservation{
		Source: domain.SourceBTS,
		CellTowers: []domain.CellTowerObservation{
			{MCC: 510, MNC: 10, LAC: 7, CellID: 100, SignalStrength: -70},
			{MCC: 510, MNC: 10, LAC: 7, CellID: 101, SignalStrength: -90},
		},
	}
	loc, err := r.Resolve(context.Background(), obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Lat != -6.2 || loc.Lon != 106.8 {
		t.Errorf("expected primary tower position, got %f,%f", loc.Lat, loc.Lon)
	}
	if loc.Accuracy != 200 {
		t.Errorf("expected 200, got %f", loc.Accuracy)
	}
	if loc.CellID == nil || *loc.CellID != 100 || loc.LAC == nil || *loc.LAC != 7 {
		t.Errorf("expected cell 100 lac 7, got %v %v", loc.CellID, loc.LAC)
	}
	if towers.calls != 1 {
		t.Errorf("expected 1 lookup for fewer than 3 towers, got %d", towers.calls)
	}
}

func TestResolve_BTSUnresolvable(t *testing.T) {
	r := NewLocationResolver(&mockTowerLocator{}, nil)

	obs := &domain.LocationObservation{
		Source:     domain.SourceBTS,
		CellTowers: []domain.CellTowerObservation{{CellID: 1}},
	}
	_, err := r.Resolve(context.Background(), obs)
	if !errors.Is(err, domain.ErrUnresolvableLocation) {
		t.Fatalf("expected ErrUnresolvableLocation, got %v", err)
	}
}

func TestResolve_BTSNilLocator(t *testing.T) {
	r := NewLocationResolver(nil, nil)

	obs := &domain.LocationObservation{
		Source:     domain.SourceBTS,
		CellTowers: []domain.CellTowerObservation{{CellID: 1}},
	}
	if _, err := r.Resolve(context.Background(), obs); !errors.Is(err, domain.ErrUnresolvableLocation) {
		t.Fatalf("expected ErrUnresolvableLocation, got %v", err)
	}
}

func TestResolve_BTSTrilateration(t *testing.T) {
	locator, towers, wantLat, wantLon := syntheticTowers()
	r := NewLocationResolver(locator, nil)

	loc, err := r.Resolve(context.Background(), &domain.LocationObservation{Source: domain.SourceBTS, CellTowers: towers})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(loc.Lat-wantLat) > 1e-5 || math.Abs(loc.Lon-wantLon) > 1e-5 {
		t.Errorf("expected ~%f,%f got %f,%f", wantLat, wantLon, loc.Lat, loc.Lon)
	}
	if loc.Accuracy <= 0 || loc.Accuracy > 500 {
		t.Errorf("accuracy %f out of (0, 500]", loc.Accuracy)
	}
	if loc.CellID == nil || *loc.CellID != towers[0].CellID {
		t.Errorf("expected primary cell id, got %v", loc.CellID)
	}
}

func TestResolve_BTSTrilaterationFallsBackToPrimary(t *testing.T) {
	locator, towers, _, _ := syntheticTowers()
	delete(locator.towers, towers[2].CellID)
	r := NewLocationResolver(locator, nil)

	loc, err := r.Resolve(context.Background(), &domain.LocationObservation{Source: domain.SourceBTS, CellTowers: towers})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	primary := locator.towers[towers[0].CellID]
	if loc.Lat != primary.Lat || loc.Lon != primary.Lon {
		t.Errorf("expected primary tower position, got %f,%f", loc.Lat, loc.Lon)
	}
	if loc.Accuracy != 200 {
		t.Errorf("expected 200, got %f", loc.Accuracy)
	}
}

func TestResolve_FusionPrefersGPS(t *testing.T) {
	locator := &mockTowerLocator{towers: map[int64]domain.TowerPosition{1: {Lat: 10, Lon: 10}}}
	r := NewLocationResolver(locator, nil)

	obs := &domain.LocationObservation{
		GPS: &domain.LocationObservation{Latitude: f64(-6.2), Longitude: f64(106.8)},
		BTS: &domain.LocationObservation{CellTowers: []domain.CellTowerObservation{{CellID: 1}}},
	}
	loc, err := r.Resolve(context.Background(), obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Source != domain.SourceGPS || loc.Lat != -6.2 {
		t.Errorf("expected gps result, got %+v", loc)
	}
}

func TestResolve_FusionFallsBackToBTS(t *testing.T) {
	locator := &mockTowerLocator{towers: map[int64]domain.TowerPosition{1: {Lat: 10, Lon: 20}}}
	r := NewLocationResolver(locator, nil)

	obs := &domain.LocationObservation{
		Source: domain.SourceWIFI,
		GPS:    &domain.LocationObservation{Latitude: f64(1)},
		BTS:    &domain.LocationObservation{CellTowers: []domain.CellTowerObservation{{CellID: 1}}},
	}
	loc, err := r.Resolve(context.Background(), obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Source != domain.SourceBTS || loc.Lat != 10 || loc.Lon != 20 {
		t.Errorf("expected bts result, got %+v", loc)
	}
}

func TestResolve_FusionNoValidSource(t *testing.T) {
	r := NewLocationResolver(&mockTowerLocator{}, nil)

	tests := []struct {
		name string
		obs  *domain.LocationObservation
	}{
		{"nil observation", nil},
		{"no sub-payloads", &domain.LocationObservation{}},
		{"unknown tag", &domain.LocationObservation{Source: "satellite"}},
		{"both fail", &domain.LocationObservation{
			GPS: &domain.LocationObservation{},
			BTS: &domain.LocationObservation{CellTowers: []domain.CellTowerObservation{{CellID: 9}}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), tt.obs)
			if !errors.Is(err, domain.ErrNoValidSource) {
				t.Errorf("expected ErrNoValidSource, got %v", err)
			}
		})
	}
}

func TestResolve_LocatorReturnsInvalidPosition(t *testing.T) {
	locator := &mockTowerLocator{towers: map[int64]domain.TowerPosition{1: {Lat: 200, Lon: 0}}}
	r := NewLocationResolver(locator, nil)

	obs := &domain.LocationObservation{Source: domain.SourceBTS, CellTowers: []domain.CellTowerObservation{{CellID: 1}}}
	if _, err := r.Resolve(context.Background(), obs); !errors.Is(err, domain.ErrUnresolvableLocation) {
		t.Fatalf("expected ErrUnresolvableLocation, got %v", err)
	}
}

func TestAddress(t *testing.T) {
	r := NewLocationResolver(nil, nil)
	if _, ok := r.Address(context.Background(), 1, 2); ok {
		t.Error("expected no address without a geocoder")
	}

	r = NewLocationResolver(nil, &mockGeocoder{
		reverseGeocodeFn: func(_ context.Context, lat, lon float64) (string, bool) {
			if lat != 1 || lon != 2 {
				t.Errorf("unexpected coordinates %f,%f", lat, lon)
			}
			return "Jakarta", true
		},
	})
	addr, ok := r.Address(context.Background(), 1, 2)
	if !ok || addr != "Jakarta" {
		t.Errorf("expected Jakarta, got %q %v", addr, ok)
	}
}
