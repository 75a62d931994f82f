package compose

import (
	"fmt"

	"github.com/togetherapp/relay/internal/locale"
	"github.com/togetherapp/relay/internal/model"
)

// ActionKind enumerates the closed set of notifiable application actions.
type ActionKind int

const (
	MessageSent ActionKind = iota
	UserAdded
	UsersAdded
	UserRemoved
	UsersRemoved
	RequesterRevoked
	TitleChanged
	DateChanged
	LocationChanged
	ImageChanged
)

// Act discriminators placed in outgoing channel payloads for client-side
// UI handling.
const (
	ActAdded        = "added"
	ActRemoved      = "removed"
	ActRevoked      = "revoked"
	ActTitleChanged = "title_changed"
	ActDateChanged  = "date_changed"
	ActGeoChanged   = "geo_changed"
	ActPicChanged   = "pic_changed"
)

// mention is the placeholder token the client-side renderer substitutes with
// a device-rendered member mention. System message text is a two-token
// contract: mention tokens plus localized phrases, resolved in a second pass
// on the device.
const mention = "%@"

// Action describes one application-level action to compose a record for.
type Action struct {
	Kind      ActionKind
	Actor     model.Member
	EventID   string
	EventType string        // model.EventTypeChat switches to group phrasing
	Target    *model.Member // affected member for single add/remove
	Qty       int           // affected member count for bulk add/remove
	Text      string        // free text, MessageSent only
}

// actionSpec fixes, per system action variant, the act discriminator, the
// attachment kind, the localized message text, the attached member list and
// any extra payload parameters.
type actionSpec struct {
	act     string
	kind    model.AttachmentKind
	revoke  bool
	text    func(a Action, t *locale.Table) string
	members func(a Action) []model.Member
	params  func(a Action, payload map[string]any)
}

func actorAndTarget(a Action) []model.Member {
	members := []model.Member{a.Actor}
	if a.Target != nil {
		members = append(members, *a.Target)
	}
	return members
}

func actorOnly(a Action) []model.Member {
	return []model.Member{a.Actor}
}

func targetParam(a Action, payload map[string]any) {
	if a.Target != nil {
		payload["user"] = a.Target.DisplayName()
	}
}

func qtyParam(a Action, payload map[string]any) {
	payload["qty"] = a.Qty
}

// chatKey picks the group or event variant of a phrase key.
func chatKey(a Action, chat, event string) string {
	if a.EventType == model.EventTypeChat {
		return chat
	}
	return event
}

var actionTable = map[ActionKind]actionSpec{
	UserAdded: {
		act:  ActAdded,
		kind: model.KindAdded,
		text: func(a Action, t *locale.Table) string {
			if a.Target != nil && a.Target.Phone == a.Actor.Phone {
				return fmt.Sprintf("%s %s", mention, t.Render("join"))
			}
			return fmt.Sprintf("%s %s %s", mention, t.Render("added"), mention)
		},
		members: actorAndTarget,
		params:  targetParam,
	},
	UsersAdded: {
		act:  ActAdded,
		kind: model.KindAdded,
		text: func(a Action, t *locale.Table) string {
			return fmt.Sprintf("%s %s %d %s", mention, t.Render("added"), a.Qty, t.Render("users_genitive_plural"))
		},
		members: actorOnly,
		params:  qtyParam,
	},
	UserRemoved: {
		act:  ActRemoved,
		kind: model.KindRemoved,
		text: func(a Action, t *locale.Table) string {
			if a.Target != nil && a.Target.Phone != a.Actor.Phone {
				return fmt.Sprintf("%s %s %s", mention, t.Render("removed"), mention)
			}
			return fmt.Sprintf("%s %s", mention, t.Render(chatKey(a, "left_group", "left_event")))
		},
		members: actorAndTarget,
		params:  targetParam,
	},
	UsersRemoved: {
		act:  ActRemoved,
		kind: model.KindRemoved,
		text: func(a Action, t *locale.Table) string {
			return fmt.Sprintf("%s %s %d %s", mention, t.Render("removed"), a.Qty, t.Render("users_genitive_plural"))
		},
		members: actorOnly,
		params:  qtyParam,
	},
	RequesterRevoked: {
		act:    ActRevoked,
		kind:   model.KindRevoke,
		revoke: true,
		text: func(a Action, t *locale.Table) string {
			return t.Render("revoked")
		},
		members: func(a Action) []model.Member { return nil },
	},
	TitleChanged: {
		act:  ActTitleChanged,
		kind: model.KindSystem,
		text: func(a Action, t *locale.Table) string {
			return fmt.Sprintf("%s %s %s", mention, t.Render("changed"), t.Render(chatKey(a, "group_title", "event_title")))
		},
		members: actorOnly,
	},
	DateChanged: {
		act:  ActDateChanged,
		kind: model.KindSystem,
		text: func(a Action, t *locale.Table) string {
			return fmt.Sprintf("%s %s %s", mention, t.Render("changed"), t.Render("event_date_accusative"))
		},
		members: actorOnly,
	},
	LocationChanged: {
		act:  ActGeoChanged,
		kind: model.KindSystem,
		text: func(a Action, t *locale.Table) string {
			return fmt.Sprintf("%s %s %s", mention, t.Render("changed"), t.Render("event_location"))
		},
		members: actorOnly,
	},
	ImageChanged: {
		act:  ActPicChanged,
		kind: model.KindSystem,
		text: func(a Action, t *locale.Table) string {
			return fmt.Sprintf("%s %s %s", mention, t.Render("changed"), t.Render(chatKey(a, "group_pic_accusative", "event_pic_accusative")))
		},
		members: actorOnly,
	},
}
