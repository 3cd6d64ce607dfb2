package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/domain"
	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/internal/repository/publisher"
)

var _ publisher.LocationPusher = (*LocationPusher)(nil)

const (
	topicFormat    = "/tracking/device/%s/updates"
	publishTimeout = 2 * time.Second
)

var errPublishTimeout = errors.New("mqtt publish: timeout")

type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
}

// LocationPusher pushes processed updates to a per-device MQTT topic for
// real-time subscribers.
type LocationPusher struct {
	client client
}

func NewLocationPusher(c client) *LocationPusher {
	return &LocationPusher{client: c}
}

func Topic(deviceID string) string {
	return fmt.Sprintf(topicFormat, deviceID)
}

func (p *LocationPusher) PushUpdate(ctx context.Context, update *domain.LocationUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	token := p.client.Publish(Topic(update.DeviceID), 0, false, payload)

	timeout := publishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}
	if !token.WaitTimeout(timeout) {
		return errPublishTimeout
	}
	return token.Error()
}
