package broker

import "context"

// NoopPublisher is a Publisher that does nothing (used when the broker is not
// configured, e.g. composing records without live delivery).
type NoopPublisher struct{}

func (n *NoopPublisher) Publish(ctx context.Context, channel string, payload any) error {
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}
