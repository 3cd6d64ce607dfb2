package publisher

import (
	"context"

	"github.com/sobri3195/pegasus-real-time-phone-tracking/module/core/domain"
)

// GeofencePublisher fans geofence transitions out to notification consumers.
type GeofencePublisher interface {
	PublishEvent(ctx context.Context, ev *domain.GeofenceEvent) error
}

// LocationPusher delivers processed updates to real-time subscribers.
type LocationPusher interface {
	PushUpdate(ctx context.Context, update *domain.LocationUpdate) error
}
