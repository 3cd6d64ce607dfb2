package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/domain"
)

type locationService interface {
	UpdateLocation(ctx context.Context, deviceID string, obs *domain.LocationObservation, meta domain.UpdateMeta) (*domain.LocationUpdate, error)
	GetLatest(ctx context.Context, deviceID string) (*domain.DeviceLocation, error)
	Address(ctx context.Context, lat, lon float64) (string, bool)
	GetHistory(ctx context.Context, query *domain.HistoryQuery) ([]domain.DeviceLocation, error)
	GetAllDevices(ctx context.Context) ([]domain.Device, error)
	Export(ctx context.Context, deviceID, format string, days int) (*domain.Export, error)
	ForgetDevice(deviceID string)
}

type updateLocationRequest struct {
	DeviceID string `json:"device_id" binding:"required,max=64,excludesall=/+#"`
	domain.LocationObservation
	domain.UpdateMeta
}

type locationResponse struct {
	ID        int64         `json:"id"`
	DeviceID  string        `json:"device_id"`
	Latitude  float64       `json:"latitude"`
	Longitude float64       `json:"longitude"`
	Source    domain.Source `json:"source"`
	Accuracy  float64       `json:"accuracy"`
	Altitude  *float64      `json:"altitude,omitempty"`
	Speed     *float64      `json:"speed,omitempty"`
	CellID    *int64        `json:"cell_id,omitempty"`
	LAC       *int64        `json:"lac,omitempty"`
	Battery   *int          `json:"battery_level,omitempty"`
	Signal    *int          `json:"signal_strength,omitempty"`
	Address   string        `json:"address,omitempty"`
	Timestamp int64         `json:"timestamp"`
}

type updateLocationResponse struct {
	Message        string                 `json:"message"`
	Location       locationResponse       `json:"location"`
	GeofenceEvents []domain.GeofenceEvent `json:"geofence_events"`
}

type historyResponse struct {
	DeviceID  string             `json:"device_id"`
	Count     int                `json:"count"`
	Locations []locationResponse `json:"locations"`
}

const defaultHistoryLimit = 100

type LocationHandler struct {
	locationSvc locationService
}

func NewLocationHandler(locationSvc locationService) *LocationHandler {
	return &LocationHandler{locationSvc: locationSvc}
}

func (h *LocationHandler) Register(r *gin.RouterGroup) {
	r.POST("/location/update", h.UpdateLocation)
	r.GET("/devices", h.GetAllDevices)
	r.GET("/devices/:device_id/location", h.GetLatestLocation)
	r.GET("/devices/:device_id/history", h.GetHistory)
	r.GET("/devices/:device_id/export", h.Export)
	r.DELETE("/devices/:device_id/geofence-state", h.ResetGeofenceState)
}

func (h *LocationHandler) UpdateLocation(c *gin.Context) {
	var req updateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	update, err := h.locationSvc.UpdateLocation(c.Request.Context(), req.DeviceID, &req.LocationObservation, req.UpdateMeta)
	if err != nil {
		if isResolutionError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location data: " + err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update location"})
		return
	}

	c.JSON(http.StatusCreated, updateLocationResponse{
		Message:        "location updated successfully",
		Location:       toLocationResponse(&update.Location),
		GeofenceEvents: update.GeofenceEvents,
	})
}

func (h *LocationHandler) GetAllDevices(c *gin.Context) {
	devices, err := h.locationSvc.GetAllDevices(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch devices"})
		return
	}

	c.JSON(http.StatusOK, devices)
}

func (h *LocationHandler) GetLatestLocation(c *gin.Context) {
	deviceID := c.Param("device_id")
	ctx := c.Request.Context()

	dl, err := h.locationSvc.GetLatest(ctx, deviceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no location data available"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch location"})
		return
	}

	resp := toLocationResponse(dl)
	if address, ok := h.locationSvc.Address(ctx, dl.Location.Lat, dl.Location.Lon); ok {
		resp.Address = address
	}
	c.JSON(http.StatusOK, resp)
}

func (h *LocationHandler) GetHistory(c *gin.Context) {
	query := &domain.HistoryQuery{
		DeviceID: c.Param("device_id"),
	}

	var ok bool
	if query.Start, ok = unixQuery(c, "start"); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start parameter"})
		return
	}
	if query.End, ok = unixQuery(c, "end"); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end parameter"})
		return
	}
	if query.Limit, ok = intQuery(c, "limit", defaultHistoryLimit); !ok || query.Limit == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
		return
	}
	if query.Offset, ok = intQuery(c, "offset", 0); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset parameter"})
		return
	}

	locations, err := h.locationSvc.GetHistory(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch history"})
		return
	}

	results := make([]locationResponse, len(locations))
	for i := range locations {
		results[i] = toLocationResponse(&locations[i])
	}
	c.JSON(http.StatusOK, historyResponse{
		DeviceID:  query.DeviceID,
		Count:     len(results),
		Locations: results,
	})
}

// unixQuery reads an optional unix-seconds parameter; absent yields the zero time.
func unixQuery(c *gin.Context, key string) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, true
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}

func intQuery(c *gin.Context, key string, fallback int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (h *LocationHandler) Export(c *gin.Context) {
	deviceID := c.Param("device_id")

	days := 0
	if raw := c.Query("days"); raw != "" {
		var err error
		days, err = strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days parameter"})
			return
		}
	}

	export, err := h.locationSvc.Export(c.Request.Context(), deviceID, c.Query("format"), days)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedExportFormat) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export history"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
	c.Data(http.StatusOK, export.ContentType, export.Body)
}

func (h *LocationHandler) ResetGeofenceState(c *gin.Context) {
	h.locationSvc.ForgetDevice(c.Param("device_id"))
	c.Status(http.StatusNoContent)
}

func isResolutionError(err error) bool {
	for _, target := range []error{
		domain.ErrMissingCoordinates,
		domain.ErrInvalidCoordinates,
		domain.ErrInsufficientTowers,
		domain.ErrUnresolvableLocation,
		domain.ErrNoValidSource,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func toLocationResponse(dl *domain.DeviceLocation) locationResponse {
	return locationResponse{
		ID:        dl.ID,
		DeviceID:  dl.DeviceID,
		Latitude:  dl.Location.Lat,
		Longitude: dl.Location.Lon,
		Source:    dl.Location.Source,
		Accuracy:  dl.Location.Accuracy,
		Altitude:  dl.Location.Altitude,
		Speed:     dl.Location.Speed,
		CellID:    dl.Location.CellID,
		LAC:       dl.Location.LAC,
		Battery:   dl.Meta.BatteryLevel,
		Signal:    dl.Meta.SignalStrength,
		Timestamp: dl.Timestamp.Unix(),
	}
}
