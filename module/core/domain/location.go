package domain

import (
	"strings"
	"time"
)

type Source string

const (
	SourceGPS         Source = "GPS"
	SourceBTS         Source = "BTS"
	SourceWIFI        Source = "WIFI"
	SourceUnspecified Source = ""
)

// ParseSource normalizes a source tag. Anything that is not a known tag is
// treated as unspecified, which routes the payload through fusion.
func ParseSource(s string) Source {
	switch Source(strings.ToUpper(strings.TrimSpace(s))) {
	case SourceGPS:
		return SourceGPS
	case SourceBTS:
		return SourceBTS
	case SourceWIFI:
		return SourceWIFI
	}
	return SourceUnspecified
}

// DefaultSignalStrength is used for towers that did not report RSSI.
const DefaultSignalStrength = -80.0

type CellTowerObservation struct {
	MCC            int64   `json:"mcc"`
	MNC            int64   `json:"mnc"`
	LAC            int64   `json:"lac"`
	CellID         int64   `json:"cell_id"`
	SignalStrength float64 `json:"signal_strength"`
}

// RSSI returns the reported signal strength in dBm, or DefaultSignalStrength
// when the tower sent none.
func (c CellTowerObservation) RSSI() float64 {
	if c.SignalStrength == 0 {
		return DefaultSignalStrength
	}
	return c.SignalStrength
}

// LocationObservation is a raw observation payload. GPS and BTS carry the
// nested sub-payloads used when Source is unspecified.
type LocationObservation struct {
	Source     Source                 `json:"source"`
	Latitude   *float64               `json:"latitude,omitempty"`
	Longitude  *float64               `json:"longitude,omitempty"`
	Accuracy   *float64               `json:"accuracy,omitempty"`
	Altitude   *float64               `json:"altitude,omitempty"`
	Speed      *float64               `json:"speed,omitempty"`
	CellTowers []CellTowerObservation `json:"cell_towers,omitempty"`
	GPS        *LocationObservation   `json:"gps_data,omitempty"`
	BTS        *LocationObservation   `json:"bts_data,omitempty"`
}

type ResolvedLocation struct {
	Lat      float64  `json:"latitude"`
	Lon      float64  `json:"longitude"`
	Source   Source   `json:"source"`
	Accuracy float64  `json:"accuracy"`
	Altitude *float64 `json:"altitude,omitempty"`
	Speed    *float64 `json:"speed,omitempty"`
	CellID   *int64   `json:"cell_id,omitempty"`
	LAC      *int64   `json:"lac,omitempty"`
}

// UpdateMeta carries device telemetry that rides along with an observation
// but does not take part in resolution.
type UpdateMeta struct {
	BatteryLevel   *int `json:"battery_level,omitempty" binding:"omitempty,min=0,max=100" validate:"omitempty,min=0,max=100"`
	SignalStrength *int `json:"signal_strength,omitempty"`
}

type DeviceLocation struct {
	ID        int64            `json:"id"`
	DeviceID  string           `json:"device_id"`
	Location  ResolvedLocation `json:"location"`
	Meta      UpdateMeta       `json:"meta"`
	Timestamp time.Time        `json:"timestamp"`
}

type Device struct {
	DeviceID string `json:"device_id"`
}

// HistoryQuery selects stored locations newest first. Zero Start or End
// leave the range open on that side.
type HistoryQuery struct {
	DeviceID string
	Start    time.Time
	End      time.Time
	Limit    int
	Offset   int
}

// LocationUpdate is the outcome of one processed observation. It is returned
// to the caller and pushed to real-time subscribers.
type LocationUpdate struct {
	DeviceID       string          `json:"device_id"`
	Location       DeviceLocation  `json:"location"`
	GeofenceEvents []GeofenceEvent `json:"geofence_events"`
}
