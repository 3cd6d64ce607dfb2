package subscriber

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-playground/validator/v10"

	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/domain"
)

const topicPattern = "/tracking/device/+/location"

type locationService interface {
	UpdateLocation(ctx context.Context, deviceID string, obs *domain.LocationObservation, meta domain.UpdateMeta) (*domain.LocationUpdate, error)
}

type locationMessage struct {
	DeviceID string `json:"device_id" validate:"required,max=64,excludesall=/+#"`
	domain.LocationObservation
	domain.UpdateMeta
}

type LocationSubscriber struct {
	client      mqtt.Client
	locationSvc locationService
	validate    *validator.Validate
}

func NewLocationSubscriber(client mqtt.Client, locationSvc locationService) *LocationSubscriber {
	return &LocationSubscriber{
		client:      client,
		locationSvc: locationSvc,
		validate:    validator.New(),
	}
}

func (s *LocationSubscriber) Start() error {
	token := s.client.Subscribe(topicPattern, 1, s.handleMessage)
	token.Wait()
	return token.Error()
}

func (s *LocationSubscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var raw locationMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		log.Printf("invalid location message: %v", err)
		return
	}
	if raw.DeviceID == "" {
		raw.DeviceID = deviceFromTopic(msg.Topic())
	}

	if err := s.validate.Struct(&raw); err != nil {
		log.Printf("validation error: %v", err)
		return
	}

	if _, err := s.locationSvc.UpdateLocation(context.Background(), raw.DeviceID, &raw.LocationObservation, raw.UpdateMeta); err != nil {
		log.Printf("update location for %s: %v", raw.DeviceID, err)
	}
}

// deviceFromTopic extracts {id} from /tracking/device/{id}/location.
func deviceFromTopic(topic string) string {
	parts := strings.Split(strings.Trim(topic, "/"), "/")
	if len(parts) == 4 && parts[0] == "tracking" && parts[1] == "device" {
		return parts[2]
	}
	return ""
}
