package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/domain"
	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/service"
)

type geofenceService interface {
	Create(ctx context.Context, in service.CreateGeofenceInput) (*domain.Geofence, error)
	ListByDevice(ctx context.Context, deviceID string) ([]domain.Geofence, error)
	CountActive(ctx context.Context, deviceID string) (int, error)
	Update(ctx context.Context, id string, upd domain.GeofenceUpdate) (*domain.Geofence, error)
	Delete(ctx context.Context, id string) error
	Events(ctx context.Context, deviceID string, limit int) ([]domain.GeofenceEvent, error)
}

type createGeofenceRequest struct {
	DeviceID      string   `json:"device_id" binding:"required"`
	Name          string   `json:"name" binding:"required"`
	Latitude      *float64 `json:"latitude" binding:"required"`
	Longitude     *float64 `json:"longitude" binding:"required"`
	Radius        *float64 `json:"radius" binding:"required"`
	NotifyOnEnter *bool    `json:"notify_on_enter"`
	NotifyOnExit  *bool    `json:"notify_on_exit"`
}

type updateGeofenceRequest struct {
	domain.GeofenceUpdate
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type GeofenceHandler struct {
	geofenceSvc geofenceService
}

func NewGeofenceHandler(geofenceSvc geofenceService) *GeofenceHandler {
	return &GeofenceHandler{geofenceSvc: geofenceSvc}
}

func (h *GeofenceHandler) Register(r *gin.RouterGroup) {
	r.POST("/geofences", h.Create)
	r.GET("/geofences/:device_id", h.List)
	r.GET("/geofences/:device_id/events", h.Events)
	r.PUT("/geofences/:geofence_id", h.Update)
	r.DELETE("/geofences/:geofence_id", h.Delete)
}

func (h *GeofenceHandler) Create(c *gin.Context) {
	var req createGeofenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device_id, name, latitude, longitude and radius are required"})
		return
	}
	ctx := c.Request.Context()

	active, err := h.geofenceSvc.CountActive(ctx, req.DeviceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count geofences"})
		return
	}
	if active >= domain.MaxActiveGeofences {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("maximum %d active geofences per device", domain.MaxActiveGeofences)})
		return
	}

	gf, err := h.geofenceSvc.Create(ctx, service.CreateGeofenceInput{
		DeviceID:      req.DeviceID,
		Name:          req.Name,
		Lat:           *req.Latitude,
		Lon:           *req.Longitude,
		Radius:        *req.Radius,
		NotifyOnEnter: boolOr(req.NotifyOnEnter, true),
		NotifyOnExit:  boolOr(req.NotifyOnExit, true),
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRadius) || errors.Is(err, domain.ErrInvalidCoordinates) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create geofence"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "geofence created successfully",
		"geofence": gf,
	})
}

func (h *GeofenceHandler) List(c *gin.Context) {
	deviceID := c.Param("device_id")

	geofences, err := h.geofenceSvc.ListByDevice(c.Request.Context(), deviceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch geofences"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"device_id": deviceID,
		"geofences": geofences,
	})
}

func (h *GeofenceHandler) Update(c *gin.Context) {
	var req updateGeofenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Latitude != nil || req.Longitude != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "geofence center cannot be changed"})
		return
	}

	gf, err := h.geofenceSvc.Update(c.Request.Context(), c.Param("geofence_id"), req.GeofenceUpdate)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrGeofenceNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "geofence not found"})
		case errors.Is(err, domain.ErrInvalidRadius):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update geofence"})
		}
		return
	}

	c.JSON(http.StatusOK, gf)
}

func (h *GeofenceHandler) Delete(c *gin.Context) {
	err := h.geofenceSvc.Delete(c.Request.Context(), c.Param("geofence_id"))
	if err != nil {
		if errors.Is(err, domain.ErrGeofenceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "geofence not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete geofence"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "geofence deleted successfully"})
}

func (h *GeofenceHandler) Events(c *gin.Context) {
	deviceID := c.Param("device_id")

	limit, ok := intQuery(c, "limit", 0)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
		return
	}

	events, err := h.geofenceSvc.Events(c.Request.Context(), deviceID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch geofence events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"device_id": deviceID,
		"events":    events,
	})
}

func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}
