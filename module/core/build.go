package core

import (
	"database/sql"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sobri3195/pegasus-real-time-phone-tracking/config"
	handler "github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/internal/handler/http"
	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/internal/handler/subscriber"
	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/internal/repository/database/postgres"
	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/internal/repository/lookup/nominatim"
	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/internal/repository/lookup/opencellid"
	pusher "github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/internal/repository/publisher/mqtt"
	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/internal/repository/publisher/rabbitmq"
	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/service"
)

type Module struct {
	LocationSvc *service.LocationService
	GeofenceSvc *service.GeofenceService

	locationHandler *handler.LocationHandler
	geofenceHandler *handler.GeofenceHandler
	subscriber      *subscriber.LocationSubscriber
}

func Build(cfg *config.Config, db *sql.DB, amqpConn *amqp.Connection, mqttClient mqtt.Client) (*Module, error) {
	locationRepo := postgres.NewLocationRepo(db)
	geofenceRepo := postgres.NewGeofenceRepo(db)
	eventRepo := postgres.NewGeofenceEventRepo(db)

	geofencePub, err := rabbitmq.NewGeofencePublisher(amqpConn)
	if err != nil {
		return nil, fmt.Errorf("geofence publisher: %w", err)
	}
	locationPusher := pusher.NewLocationPusher(mqttClient)

	towers := opencellid.NewClient(cfg.OpenCellIDURL, cfg.OpenCellIDAPIKey, cfg.LookupTimeout)
	geocoder := nominatim.NewClient(cfg.NominatimURL, cfg.NominatimAgent, cfg.GeocodeTimeout)

	resolver := service.NewLocationResolver(towers, geocoder)
	evaluator := service.NewGeofenceEvaluator()

	locationSvc := service.NewLocationService(locationRepo, geofenceRepo, eventRepo, resolver, evaluator, geofencePub, locationPusher)
	geofenceSvc := service.NewGeofenceService(geofenceRepo, eventRepo, evaluator)

	return &Module{
		LocationSvc:     locationSvc,
		GeofenceSvc:     geofenceSvc,
		locationHandler: handler.NewLocationHandler(locationSvc),
		geofenceHandler: handler.NewGeofenceHandler(geofenceSvc),
		subscriber:      subscriber.NewLocationSubscriber(mqttClient, locationSvc),
	}, nil
}

func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	m.locationHandler.Register(r)
	m.geofenceHandler.Register(r)
}

func (m *Module) StartSubscribers() error {
	return m.subscriber.Start()
}
