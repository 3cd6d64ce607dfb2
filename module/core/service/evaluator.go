package service

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/domain"
	"github.com/sobri3195/pegasus-real-time-phone-tracking/observability/metrics"
)

const earthRadiusMeters = 6371000

type containmentKey struct {
	deviceID   string
	geofenceID string
}

// GeofenceEvaluator tracks whether each device was inside each of its
// geofences as of the last evaluated position and emits enter/exit events on
// transitions.
//
// State lives in memory only. An absent entry reads as "not inside", so a
// restart makes every device start outside every geofence again.
//
// The mutex only keeps the map itself consistent. Every writer of a device's
// state (evaluation, geofence deletion, reset) must hold LockDevice for that
// device, otherwise an evaluation working from a stale geofence list can
// write back an entry that was just dropped.
type GeofenceEvaluator struct {
	mu     sync.Mutex
	inside map[containmentKey]bool
	locks  *deviceLocks
	now    func() time.Time
}

func NewGeofenceEvaluator() *GeofenceEvaluator {
	return &GeofenceEvaluator{
		inside: make(map[containmentKey]bool),
		locks:  newDeviceLocks(),
		now:    time.Now,
	}
}

// LockDevice serializes state changes of one device. The returned func
// releases the lock.
func (e *GeofenceEvaluator) LockDevice(deviceID string) func() {
	return e.locks.lock(deviceID)
}

// Evaluate tests (lat, lon) against each active geofence of deviceID and
// returns the transitions that fired. Stored containment is always updated,
// even when a notify flag suppresses the event.
func (e *GeofenceEvaluator) Evaluate(deviceID string, geofences []domain.Geofence, lat, lon float64) []domain.GeofenceEvent {
	var events []domain.GeofenceEvent
	ts := e.now().UTC()

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, gf := range geofences {
		if !gf.Active || !wellFormed(gf) {
			continue
		}

		isInside := haversine(lat, lon, gf.Lat, gf.Lon) <= gf.Radius
		key := containmentKey{deviceID: deviceID, geofenceID: gf.ID}
		wasInside := e.inside[key]

		var eventType domain.GeofenceEventType
		switch {
		case isInside && !wasInside && gf.NotifyOnEnter:
			eventType = domain.GeofenceEnter
		case !isInside && wasInside && gf.NotifyOnExit:
			eventType = domain.GeofenceExit
		}
		e.inside[key] = isInside

		if eventType == "" {
			continue
		}
		metrics.IncGeofenceEvent(string(eventType))
		events = append(events, domain.GeofenceEvent{
			ID:         uuid.NewString(),
			GeofenceID: gf.ID,
			DeviceID:   deviceID,
			EventType:  eventType,
			Lat:        lat,
			Lon:        lon,
			Timestamp:  ts,
		})
	}
	return events
}

// Inside reports the stored containment for (deviceID, geofenceID).
func (e *GeofenceEvaluator) Inside(deviceID, geofenceID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inside[containmentKey{deviceID: deviceID, geofenceID: geofenceID}]
}

// ForgetGeofence drops the containment state of a removed geofence.
func (e *GeofenceEvaluator) ForgetGeofence(geofenceID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key := range e.inside {
		if key.geofenceID == geofenceID {
			delete(e.inside, key)
		}
	}
}

// ForgetDevice drops every containment entry of a removed device.
func (e *GeofenceEvaluator) ForgetDevice(deviceID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key := range e.inside {
		if key.deviceID == deviceID {
			delete(e.inside, key)
		}
	}
}

func wellFormed(gf domain.Geofence) bool {
	if gf.ID == "" || gf.Radius <= 0 || math.IsNaN(gf.Radius) {
		return false
	}
	return validCoordinates(gf.Lat, gf.Lon)
}

func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

type deviceLock struct {
	sync.Mutex
	refs int
}

// deviceLocks hands out one mutex per device id and drops it once no
// goroutine holds or waits on it.
type deviceLocks struct {
	mu    sync.Mutex
	locks map[string]*deviceLock
}

func newDeviceLocks() *deviceLocks {
	return &deviceLocks{locks: make(map[string]*deviceLock)}
}

func (l *deviceLocks) lock(deviceID string) func() {
	l.mu.Lock()
	dl, ok := l.locks[deviceID]
	if !ok {
		dl = &deviceLock{}
		l.locks[deviceID] = dl
	}
	dl.refs++
	l.mu.Unlock()

	dl.Lock()
	return func() {
		dl.Unlock()
		l.mu.Lock()
		dl.refs--
		if dl.refs == 0 {
			delete(l.locks, deviceID)
		}
		l.mu.Unlock()
	}
}
