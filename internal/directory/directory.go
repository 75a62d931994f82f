// Package directory defines the narrow views of user storage the delivery
// subsystem consumes: token resolution at handshake, the connected flag,
// registered device tokens, and per-event unread counters. The full user
// store lives outside this subsystem; production deployments implement
// Directory against it, while InMemory serves tests and single-host setups.
package directory

import (
	"context"
	"errors"

	"github.com/togetherapp/relay/internal/model"
)

// ErrUnknownToken is returned when a handshake token resolves to no member.
var ErrUnknownToken = errors.New("directory: unknown token")

// ErrUnknownMember is returned when a recipient identifier resolves to no member.
var ErrUnknownMember = errors.New("directory: unknown member")

// Unread carries one participated event's unread counters for a member.
// Secondary is nil when the event has no feed counter.
type Unread struct {
	Primary   int
	Secondary *int
}

// Directory is the read/flag surface of user storage used by the gateway
// and the push dispatcher.
type Directory interface {
	// ResolveToken maps a handshake bearer token to a member.
	ResolveToken(ctx context.Context, token string) (model.Member, error)

	// SetConnected flips the member's live-connection flag.
	SetConnected(ctx context.Context, phone string, connected bool) error

	// Devices returns the member's registered push device tokens. A token
	// may be empty, meaning the device never registered with the gateway.
	Devices(ctx context.Context, phone string) ([]string, error)

	// Unread returns the member's per-event unread counters.
	Unread(ctx context.Context, phone string) ([]Unread, error)
}
