package main

import (
	"testing"

	"github.com/togetherapp/relay/internal/compose"
)

func TestMemberFromFlags(t *testing.T) {
	m := memberFromFlags("+1555", "Ann Lee")
	if m.Phone != "+1555" || m.FirstName != "Ann" || m.LastName != "Lee" {
		t.Errorf("got %+v, want +1555/Ann/Lee", m)
	}

	bare := memberFromFlags("+1555", "Ann")
	if bare.FirstName != "Ann" || bare.LastName != "" {
		t.Errorf("bare name: got %+v, want first name only", bare)
	}

	empty := memberFromFlags("+1555", "")
	if empty.FirstName != "" || empty.LastName != "" {
		t.Errorf("empty name: got %+v, want empty names", empty)
	}
}

func TestActionKinds_CoverEveryVariant(t *testing.T) {
	want := map[string]compose.ActionKind{
		"message":      compose.MessageSent,
		"added":        compose.UserAdded,
		"bulk-added":   compose.UsersAdded,
		"removed":      compose.UserRemoved,
		"bulk-removed": compose.UsersRemoved,
		"revoked":      compose.RequesterRevoked,
		"title":        compose.TitleChanged,
		"date":         compose.DateChanged,
		"location":     compose.LocationChanged,
		"pic":          compose.ImageChanged,
	}
	for name, kind := range want {
		got, ok := actionKinds[name]
		if !ok {
			t.Errorf("action %q missing", name)
			continue
		}
		if got != kind {
			t.Errorf("action %q = %v, want %v", name, got, kind)
		}
	}
}
