package directory

import (
	"context"
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/togetherapp/relay/internal/model"
)

// InMemory is a mutex-guarded Directory backed by an in-process roster.
// Suitable for tests and single-host deployments where the user store is
// loaded once at startup.
type InMemory struct {
	mu      sync.RWMutex
	members map[string]*memberState // keyed by phone
	tokens  map[string]string       // token -> phone
}

type memberState struct {
	member    model.Member
	connected bool
	devices   []string
	unread    []Unread
}

// NewInMemory returns an empty in-memory directory.
func NewInMemory() *InMemory {
	return &InMemory{
		members: make(map[string]*memberState),
		tokens:  make(map[string]string),
	}
}

// AddMember registers a member with its handshake token and device tokens.
func (d *InMemory) AddMember(m model.Member, token string, devices []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.members[m.Phone] = &memberState{member: m, devices: devices}
	if token != "" {
		d.tokens[token] = m.Phone
	}
}

// SetUnread replaces the member's per-event unread counters.
func (d *InMemory) SetUnread(phone string, unread []Unread) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if state, ok := d.members[phone]; ok {
		state.unread = unread
	}
}

// Connected reports the member's current live-connection flag.
func (d *InMemory) Connected(phone string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	state, ok := d.members[phone]
	return ok && state.connected
}

func (d *InMemory) ResolveToken(ctx context.Context, token string) (model.Member, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	phone, ok := d.tokens[token]
	if !ok {
		return model.Member{}, ErrUnknownToken
	}
	return d.members[phone].member, nil
}

func (d *InMemory) SetConnected(ctx context.Context, phone string, connected bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	state, ok := d.members[phone]
	if !ok {
		return ErrUnknownMember
	}
	state.connected = connected
	return nil
}

func (d *InMemory) Devices(ctx context.Context, phone string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	state, ok := d.members[phone]
	if !ok {
		return nil, ErrUnknownMember
	}
	out := make([]string, len(state.devices))
	copy(out, state.devices)
	return out, nil
}

func (d *InMemory) Unread(ctx context.Context, phone string) ([]Unread, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	state, ok := d.members[phone]
	if !ok {
		return nil, ErrUnknownMember
	}
	out := make([]Unread, len(state.unread))
	copy(out, state.unread)
	return out, nil
}

// rosterFile is the TOML shape accepted by LoadRoster.
type rosterFile struct {
	Members []rosterMember `toml:"member"`
}

type rosterMember struct {
	Phone     string   `toml:"phone"`
	FirstName string   `toml:"first_name"`
	LastName  string   `toml:"last_name"`
	Token     string   `toml:"token"`
	Devices   []string `toml:"devices"`
}

// LoadRoster builds an in-memory directory from a TOML roster file of
// [[member]] blocks.
func LoadRoster(path string) (*InMemory, error) {
	var file rosterFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("directory: load roster %s: %w", path, err)
	}

	d := NewInMemory()
	for _, m := range file.Members {
		if m.Phone == "" {
			return nil, fmt.Errorf("directory: roster %s: member without phone", path)
		}
		d.AddMember(model.Member{
			Phone:     m.Phone,
			FirstName: m.FirstName,
			LastName:  m.LastName,
		}, m.Token, m.Devices)
	}
	return d, nil
}
