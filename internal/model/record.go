package model

import "errors"

// AttachmentKind tags a system attachment with the action class it describes.
type AttachmentKind string

const (
	KindAdded   AttachmentKind = "ADDED"
	KindRemoved AttachmentKind = "REMOVED"
	KindRevoke  AttachmentKind = "REVOKE"
	KindSystem  AttachmentKind = "SYSTEM"
	KindLink    AttachmentKind = "LINK"
)

// SystemAttachment is the structured, non-free-text payload describing a
// membership or metadata change. It exists only on system-generated records.
type SystemAttachment struct {
	Kind    AttachmentKind `json:"AttachmentType"`
	Text    string         `json:"AttachmentText,omitempty"`
	Members []Member       `json:"AttachmentMembers,omitempty"`
	Link    []string       `json:"AttachmentLink,omitempty"`
}

// StatusDelivered is the status code assigned to freshly composed
// free-text records.
const StatusDelivered = 3

// EventRecord is a persisted chat record: either a free-text message or a
// system record carrying an attachment. Immutable once saved.
type EventRecord struct {
	ID         string            `json:"MessageId"`
	EventID    string            `json:"EventId"`
	ForeignKey string            `json:"MessageFK"`
	Author     Member            `json:"MessageAuthor"`
	Text       string            `json:"MessageText,omitempty"`
	Attachment *SystemAttachment `json:"MessageAttachment,omitempty"`
	Created    int64             `json:"MessageCreated"`
	Updated    int64             `json:"MessageUpdated"`
	Public     bool              `json:"MessagePublic"`
	Status     int               `json:"MessageStatus,omitempty"`
}

// ErrMixedRecord is returned when a record carries both free text and a
// system attachment, or neither.
var ErrMixedRecord = errors.New("model: record must carry either text or a system attachment")

// Validate enforces the text/attachment mutual exclusion invariant.
func (r *EventRecord) Validate() error {
	hasText := r.Text != ""
	hasAttachment := r.Attachment != nil
	if hasText == hasAttachment {
		return ErrMixedRecord
	}
	return nil
}
