// Package compose translates application actions (message sent, member
// added/removed, metadata edits) into persisted event records and channel
// payloads ready for publication.
package compose

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/togetherapp/relay/internal/broker"
	"github.com/togetherapp/relay/internal/idgen"
	"github.com/togetherapp/relay/internal/locale"
	"github.com/togetherapp/relay/internal/model"
	"github.com/togetherapp/relay/internal/store"
)

// Error is the structured failure surfaced at the composer boundary.
// Composing never panics and never leaks partial state: a persist failure
// means nothing was published.
type Error struct {
	Stage string // "build", "persist" or "publish"
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("compose: %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Composer builds, persists and publishes event records.
type Composer struct {
	saver  store.Saver
	bus    broker.Publisher
	table  *locale.Table
	logger *slog.Logger

	// now returns the current timestamp in monotonic seconds; injectable
	// for tests.
	now func() int64
}

// New creates a composer. A nil table falls back to the embedded default.
func New(saver store.Saver, bus broker.Publisher, table *locale.Table, logger *slog.Logger) *Composer {
	if table == nil {
		table = locale.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{
		saver:  saver,
		bus:    bus,
		table:  table,
		logger: logger,
		now:    func() int64 { return time.Now().Unix() },
	}
}

// Notify composes a record for the action, persists it, and publishes its
// envelope to each recipient's channel. Per-recipient publish failures are
// logged and skipped; build and persist failures abort the call with a
// structured *Error.
func (c *Composer) Notify(ctx context.Context, a Action, recipients []string) (*model.EventRecord, error) {
	rec, payload, err := c.build(a)
	if err != nil {
		c.logger.Error("compose: build failed", "kind", a.Kind.String(), "err", err)
		return nil, &Error{Stage: "build", Err: err}
	}

	if err := c.saver.SaveRecord(ctx, rec); err != nil {
		c.logger.Error("compose: persist failed", "record", rec.ID, "err", err)
		return nil, &Error{Stage: "persist", Err: err}
	}
	c.logger.Debug("compose: record created", "record", rec.ID, "kind", a.Kind.String())

	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("compose: payload serialization failed", "record", rec.ID, "err", err)
		return nil, &Error{Stage: "publish", Err: err}
	}

	for _, r := range recipients {
		if err := c.bus.Publish(ctx, broker.UserChannel(r), data); err != nil {
			c.logger.Error("compose: publish failed", "recipient", r, "err", err)
		}
	}

	return rec, nil
}

// Push publishes a push envelope to the shared queue channel for the
// dispatcher to deliver.
func (c *Composer) Push(ctx context.Context, env model.PushEnvelope) error {
	if env.Recipient == nil {
		return &Error{Stage: "build", Err: fmt.Errorf("push envelope without recipient")}
	}
	if env.Author() == nil {
		return &Error{Stage: "build", Err: fmt.Errorf("push envelope without author")}
	}
	if err := c.bus.Publish(ctx, broker.QueueChannel, env); err != nil {
		c.logger.Error("compose: push publish failed", "recipient", env.Recipient.Phone, "err", err)
		return &Error{Stage: "publish", Err: err}
	}
	return nil
}

// build constructs the record and its minimal channel payload.
func (c *Composer) build(a Action) (*model.EventRecord, map[string]any, error) {
	if a.EventID == "" {
		return nil, nil, fmt.Errorf("action without event id")
	}

	id, err := idgen.Generate()
	if err != nil {
		return nil, nil, err
	}
	fk, err := idgen.Generate()
	if err != nil {
		return nil, nil, err
	}

	now := c.now()
	rec := &model.EventRecord{
		ID:         id,
		EventID:    a.EventID,
		ForeignKey: fk,
		Author:     a.Actor,
		Created:    now,
		Updated:    now,
	}
	payload := map[string]any{
		"author": a.Actor.Phone,
		"event":  a.EventID,
	}

	if a.Kind == MessageSent {
		if a.Text == "" {
			return nil, nil, fmt.Errorf("free-text action without text")
		}
		rec.Text = a.Text
		rec.Status = model.StatusDelivered
		if err := rec.Validate(); err != nil {
			return nil, nil, err
		}
		return rec, payload, nil
	}

	spec, ok := actionTable[a.Kind]
	if !ok {
		return nil, nil, fmt.Errorf("unknown action kind %d", a.Kind)
	}

	rec.Attachment = &model.SystemAttachment{
		Kind:    spec.kind,
		Text:    spec.text(a, c.table),
		Members: spec.members(a),
	}
	if spec.revoke {
		// Back-date by one tick so the revoke record sorts immediately
		// before the record it revokes.
		rec.Created--
		rec.Updated--
	}

	payload["act"] = spec.act
	if spec.params != nil {
		spec.params(a, payload)
	}

	if err := rec.Validate(); err != nil {
		return nil, nil, err
	}
	return rec, payload, nil
}

func (k ActionKind) String() string {
	switch k {
	case MessageSent:
		return "message_sent"
	case UserAdded:
		return "user_added"
	case UsersAdded:
		return "users_added"
	case UserRemoved:
		return "user_removed"
	case UsersRemoved:
		return "users_removed"
	case RequesterRevoked:
		return "requester_revoked"
	case TitleChanged:
		return "title_changed"
	case DateChanged:
		return "date_changed"
	case LocationChanged:
		return "location_changed"
	case ImageChanged:
		return "image_changed"
	}
	return fmt.Sprintf("action(%d)", int(k))
}
