// Package push consumes the shared queue channel and delivers rendered,
// localized notifications to recipients' registered devices through a push
// gateway. Delivery is at-most-once: every per-payload and per-device failure
// is logged and skipped, never retried.
package push

// Localization keys with dedicated alert construction rules.
const (
	KeyNewMessage       = "KEY_NEW_MESSAGE"
	KeyYouInvited       = "KEY_YOU_INVITED"
	KeyRequestSubscribe = "KEY_REQUEST_SUBSCRIBE"
)

// alertSound is the fixed sound identifier attached to every alert payload.
const alertSound = "sound1.caf"

// Alert is the localized alert portion of a notification. The device resolves
// LocKey against its own locale table with LocArgs substituted positionally.
type Alert struct {
	LocKey  string
	LocArgs []string
}

// Notification is a rendered push payload ready for the gateway. A nil Alert
// means a silent, badge-only push.
type Notification struct {
	Alert     *Alert
	Sound     string
	Badge     int
	EventID   string
	EventType string
}

// Error is an asynchronous gateway failure reported for a single send,
// correlated by the identifier passed to Send.
type Error struct {
	ID          uint32
	DeviceToken string
	Err         error
}

// Gateway is the external push transport. Send is fire-and-forget; failures
// arrive later on the Errors channel keyed by correlation id.
type Gateway interface {
	Send(deviceToken string, n Notification, id uint32) error
	Errors() <-chan Error
	Close() error
}
