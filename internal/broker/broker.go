// Package broker provides the transient pub/sub primitives the delivery
// subsystem is built on: one channel per recipient for live fan-out and a
// single shared queue channel consumed by the push dispatcher.
package broker

import "context"

const (
	// userChannelPrefix namespaces the per-recipient broadcast channels.
	userChannelPrefix = "relay.user."

	// QueueChannel is the shared channel carrying push envelopes for every
	// recipient.
	QueueChannel = "relay.push"

	// Sentinel is the reserved payload that tells a consumer loop to
	// unsubscribe and exit cleanly.
	Sentinel = "KILL"
)

// UserChannel returns the broadcast channel name for a recipient identifier.
func UserChannel(phone string) string {
	return userChannelPrefix + phone
}

// Publisher is the interface for emitting payloads to a channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
	Close() error
}

// Subscriber receives payloads from a channel.
type Subscriber interface {
	// Subscribe delivers raw payloads on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(channel string) (<-chan []byte, func(), error)
	Close() error
}
