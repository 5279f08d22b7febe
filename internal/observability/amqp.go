package observability

import "context"

// Publisher is the event bus used for websocket lifecycle events. The
// rabbitmq package provides the implementation.
type Publisher interface {
	PublishWithHeaders(ctx context.Context, routingKey string, message any, headers map[string]string) error
}

var defaultPublisher Publisher

// SetPublisher installs the process-wide event publisher. Call once at start-up.
func SetPublisher(publisher Publisher) {
	defaultPublisher = publisher
}

// PublishEvent publishes through the installed publisher, if any.
func PublishEvent(ctx context.Context, routingKey string, message any, headers map[string]string) error {
	if defaultPublisher == nil {
		return nil
	}

	err := defaultPublisher.PublishWithHeaders(ctx, routingKey, message, headers)
	if err != nil {
		IncAMQPPublishError()
	}
	return err
}
