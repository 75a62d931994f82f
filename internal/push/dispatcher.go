package push

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/togetherapp/relay/internal/broker"
	"github.com/togetherapp/relay/internal/directory"
	"github.com/togetherapp/relay/internal/model"
)

// Dispatcher is the long-lived consumer of the queue channel.
type Dispatcher struct {
	sub    broker.Subscriber
	dir    directory.Directory
	gw     Gateway
	logger *slog.Logger

	// correlationID generates the per-send identifier; injectable for tests.
	correlationID func() uint32
}

// NewDispatcher creates a dispatcher delivering through gw.
func NewDispatcher(sub broker.Subscriber, dir directory.Directory, gw Gateway, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		sub:           sub,
		dir:           dir,
		gw:            gw,
		logger:        logger,
		correlationID: rand.Uint32,
	}
}

// Name identifies the dispatcher worker for supervision and lock naming.
func (d *Dispatcher) Name() string { return "dispatcher" }

// Run consumes the queue channel until ctx is cancelled or the shutdown
// sentinel arrives. A single bad payload never crashes the loop.
func (d *Dispatcher) Run(ctx context.Context) error {
	ch, cancel, err := d.sub.Subscribe(broker.QueueChannel)
	if err != nil {
		return err
	}
	defer cancel()

	d.logger.Info("push: dispatcher subscribed", "channel", broker.QueueChannel)

	errs := d.gw.Errors()
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("push: dispatcher stopping")
			return nil
		case gwErr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			d.logger.Error("push: gateway reported delivery failure",
				"correlation_id", gwErr.ID, "device", gwErr.DeviceToken, "err", gwErr.Err)
		case raw, ok := <-ch:
			if !ok {
				d.logger.Info("push: queue channel closed")
				return nil
			}
			if string(raw) == broker.Sentinel {
				d.logger.Info("push: shutdown sentinel received")
				return nil
			}
			d.dispatch(ctx, raw)
		}
	}
}

// dispatch decodes one queue payload and delivers it to every registered
// device of the recipient.
func (d *Dispatcher) dispatch(ctx context.Context, raw []byte) {
	var env model.PushEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		d.logger.Warn("push: dropping malformed payload", "err", err)
		return
	}

	author := env.Author()
	if author == nil {
		d.logger.Warn("push: dropping payload without author")
		return
	}
	if env.Recipient == nil || env.Recipient.Phone == "" {
		d.logger.Warn("push: dropping payload without recipient")
		return
	}
	recipient := env.Recipient.Phone

	devices, err := d.dir.Devices(ctx, recipient)
	if err != nil {
		if errors.Is(err, directory.ErrUnknownMember) {
			d.logger.Error("push: recipient not found, unable to deliver", "recipient", recipient)
		} else {
			d.logger.Error("push: device lookup failed", "recipient", recipient, "err", err)
		}
		return
	}

	unread, err := d.dir.Unread(ctx, recipient)
	if err != nil {
		d.logger.Error("push: unread lookup failed", "recipient", recipient, "err", err)
		return
	}
	badge := Aggregate(unread)
	d.logger.Debug("push: total unread messages", "recipient", recipient, "badge", badge)

	n := Notification{
		Alert:   buildAlert(&env, author.DisplayName()),
		Sound:   alertSound,
		Badge:   badge,
		EventID: env.EventID,
	}
	if env.LocKey == KeyNewMessage {
		n.EventType = env.EventType
	}

	for _, device := range devices {
		if device == "" {
			continue
		}
		token := strings.ReplaceAll(device, " ", "")
		id := d.correlationID()
		if err := d.gw.Send(token, n, id); err != nil {
			d.logger.Error("push: send failed",
				"recipient", recipient, "device", token, "correlation_id", id, "err", err)
			continue
		}
		d.logger.Debug("push: payload sent", "device", token, "correlation_id", id)
	}
}

// Aggregate sums the recipient's unread counters across participated events:
// each event contributes its primary counter, plus the secondary counter when
// the event carries one.
func Aggregate(unread []directory.Unread) int {
	total := 0
	for _, u := range unread {
		total += u.Primary
		if u.Secondary != nil {
			total += *u.Secondary
		}
	}
	return total
}

// buildAlert selects the alert construction rule from the payload shape and
// localization key. Payloads matching no rule get a silent, badge-only push.
func buildAlert(env *model.PushEnvelope, sender string) *Alert {
	switch {
	case env.MessageText != "":
		return &Alert{LocKey: env.LocKey, LocArgs: []string{sender, env.MessageText}}
	case env.CommentText != "":
		return &Alert{LocKey: env.LocKey, LocArgs: []string{sender, env.CommentText}}
	case env.LocKey == KeyYouInvited:
		return &Alert{LocKey: env.LocKey, LocArgs: []string{sender, env.EventName}}
	case env.LocKey == KeyRequestSubscribe:
		return &Alert{LocKey: env.LocKey, LocArgs: []string{sender}}
	}
	return nil
}
