package model

// Member is the short descriptor of an application user as it appears in
// channel payloads and attachments: stable phone-number identifier plus
// display name components.
type Member struct {
	Phone     string `json:"UserPhone"`
	FirstName string `json:"UserFirstName,omitempty"`
	LastName  string `json:"UserLastName,omitempty"`
}

// DisplayName returns the member's name as rendered in alerts.
func (m Member) DisplayName() string {
	if m.FirstName == "" {
		return m.LastName
	}
	if m.LastName == "" {
		return m.FirstName
	}
	return m.FirstName + " " + m.LastName
}

// Event type discriminators. Chat-type events use group phrasing for
// system messages; everything else uses event phrasing.
const (
	EventTypeChat  = "chat"
	EventTypeEvent = "event"
)
