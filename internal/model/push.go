package model

// PushEnvelope is the payload published on the push queue channel and decoded
// by the dispatcher. Field names match the wire format consumed by mobile
// clients; exactly one of MessageAuthor/CommentAuthor is set.
type PushEnvelope struct {
	MessageAuthor *Member `json:"MessageAuthor,omitempty"`
	CommentAuthor *Member `json:"CommentAuthor,omitempty"`
	Recipient     *Member `json:"MessageRcpt,omitempty"`
	LocKey        string  `json:"loc-key,omitempty"`
	MessageText   string  `json:"MessageText,omitempty"`
	CommentText   string  `json:"CommentText,omitempty"`
	EventID       string  `json:"EventId,omitempty"`
	EventName     string  `json:"EventName,omitempty"`
	EventType     string  `json:"EventType,omitempty"`
}

// Author returns whichever author field is populated.
func (e *PushEnvelope) Author() *Member {
	if e.MessageAuthor != nil {
		return e.MessageAuthor
	}
	return e.CommentAuthor
}
