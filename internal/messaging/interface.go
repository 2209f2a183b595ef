package messaging

import "context"

// PublisherInterface is the event publishing contract the feature services
// depend on, so tests can swap in a mock publisher.
type PublisherInterface interface {
	Publish(ctx context.Context, routingKey string, eventData interface{}) error
	Close() error
}

var _ PublisherInterface = (*Publisher)(nil)
