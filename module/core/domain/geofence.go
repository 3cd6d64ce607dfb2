package domain

import (
	"fmt"
	"time"
)

const (
	MinGeofenceRadius = 100.0
	MaxGeofenceRadius = 10000.0

	// MaxActiveGeofences is enforced by callers before Create.
	MaxActiveGeofences = 10
)

type Geofence struct {
	ID            string    `json:"id"`
	DeviceID      string    `json:"device_id"`
	Name          string    `json:"name"`
	Lat           float64   `json:"latitude"`
	Lon           float64   `json:"longitude"`
	Radius        float64   `json:"radius"`
	Active        bool      `json:"is_active"`
	NotifyOnEnter bool      `json:"notify_on_enter"`
	NotifyOnExit  bool      `json:"notify_on_exit"`
	CreatedAt     time.Time `json:"created_at"`
}

// ValidateRadius reports ErrInvalidRadius unless r lies in
// [MinGeofenceRadius, MaxGeofenceRadius].
func ValidateRadius(r float64) error {
	if r < MinGeofenceRadius || r > MaxGeofenceRadius {
		return fmt.Errorf("%w: %.0fm not in [%.0f, %.0f]", ErrInvalidRadius, r, MinGeofenceRadius, MaxGeofenceRadius)
	}
	return nil
}

// GeofenceUpdate lists the mutable fields of a geofence. The centre is fixed
// at creation and cannot be changed.
type GeofenceUpdate struct {
	Name          *string  `json:"name,omitempty"`
	Radius        *float64 `json:"radius,omitempty"`
	Active        *bool    `json:"is_active,omitempty"`
	NotifyOnEnter *bool    `json:"notify_on_enter,omitempty"`
	NotifyOnExit  *bool    `json:"notify_on_exit,omitempty"`
}

// Apply copies the set fields onto g.
func (u GeofenceUpdate) Apply(g *Geofence) error {
	if u.Radius != nil {
		if err := ValidateRadius(*u.Radius); err != nil {
			return err
		}
		g.Radius = *u.Radius
	}
	if u.Name != nil {
		g.Name = *u.Name
	}
	if u.Active != nil {
		g.Active = *u.Active
	}
	if u.NotifyOnEnter != nil {
		g.NotifyOnEnter = *u.NotifyOnEnter
	}
	if u.NotifyOnExit != nil {
		g.NotifyOnExit = *u.NotifyOnExit
	}
	return nil
}

type GeofenceEventType string

const (
	GeofenceEnter GeofenceEventType = "enter"
	GeofenceExit  GeofenceEventType = "exit"
)

type GeofenceEvent struct {
	ID         string            `json:"id"`
	GeofenceID string            `json:"geofence_id"`
	DeviceID   string            `json:"device_id"`
	EventType  GeofenceEventType `json:"event_type"`
	Lat        float64           `json:"latitude"`
	Lon        float64           `json:"longitude"`
	Timestamp  time.Time         `json:"timestamp"`
}
