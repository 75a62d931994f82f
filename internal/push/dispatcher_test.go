package push

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/togetherapp/relay/internal/broker"
	"github.com/togetherapp/relay/internal/directory"
	"github.com/togetherapp/relay/internal/model"
)

type sentPush struct {
	token string
	n     Notification
	id    uint32
}

// fakeGateway records sends and lets tests inject per-send failures and
// asynchronous error reports.
type fakeGateway struct {
	mu      sync.Mutex
	sends   []sentPush
	sendErr map[string]error // device token -> synchronous error
	errs    chan Error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{errs: make(chan Error, 16)}
}

func (f *fakeGateway) Send(deviceToken string, n Notification, id uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.sendErr[deviceToken]; ok {
		return err
	}
	f.sends = append(f.sends, sentPush{token: deviceToken, n: n, id: id})
	return nil
}

func (f *fakeGateway) Errors() <-chan Error { return f.errs }

func (f *fakeGateway) Close() error { return nil }

func (f *fakeGateway) sent() []sentPush {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentPush, len(f.sends))
	copy(out, f.sends)
	return out
}

// queueSubscriber is a channel-backed broker.Subscriber for driving the
// dispatcher without a broker.
type queueSubscriber struct {
	ch chan []byte
}

func newQueueSubscriber() *queueSubscriber {
	return &queueSubscriber{ch: make(chan []byte, 16)}
}

func (q *queueSubscriber) Subscribe(channel string) (<-chan []byte, func(), error) {
	return q.ch, func() {}, nil
}

func (q *queueSubscriber) Close() error { return nil }

func testDirectory(devices []string, unread []directory.Unread) *directory.InMemory {
	d := directory.NewInMemory()
	d.AddMember(model.Member{Phone: "+1555", FirstName: "Ann", LastName: "Lee"}, "", devices)
	d.SetUnread("+1555", unread)
	return d
}

var author = model.Member{Phone: "+1777", FirstName: "Bob", LastName: "Roe"}

func envelope(locKey, text string) []byte {
	env := model.PushEnvelope{
		MessageAuthor: &author,
		Recipient:     &model.Member{Phone: "+1555"},
		LocKey:        locKey,
		MessageText:   text,
		EventID:       "ev1",
		EventType:     model.EventTypeChat,
	}
	b, _ := json.Marshal(env)
	return b
}

// runDispatcher starts Run in the background and returns a function that
// publishes the sentinel and waits for the loop to exit.
func runDispatcher(t *testing.T, d *Dispatcher, q *queueSubscriber) func() {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- d.Run(context.Background())
	}()
	return func() {
		q.ch <- []byte(broker.Sentinel)
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("dispatcher did not exit on sentinel")
		}
	}
}

func TestAggregate(t *testing.T) {
	two := 2
	unread := []directory.Unread{
		{Primary: 3, Secondary: &two},
		{Primary: 5},
	}
	if got := Aggregate(unread); got != 10 {
		t.Errorf("Aggregate = %d, want 10", got)
	}
}

func TestAggregate_Empty(t *testing.T) {
	if got := Aggregate(nil); got != 0 {
		t.Errorf("Aggregate(nil) = %d, want 0", got)
	}
}

func TestDispatch_DeliversAlertWithBadge(t *testing.T) {
	two := 2
	dir := testDirectory([]string{"dev a"}, []directory.Unread{{Primary: 3, Secondary: &two}, {Primary: 5}})
	gw := newFakeGateway()
	q := newQueueSubscriber()
	d := NewDispatcher(q, dir, gw, nil)
	d.correlationID = func() uint32 { return 42 }
	stop := runDispatcher(t, d, q)

	q.ch <- envelope(KeyNewMessage, "hello")
	stop()

	sends := gw.sent()
	if len(sends) != 1 {
		t.Fatalf("sends = %d, want 1", len(sends))
	}
	got := sends[0]
	if got.token != "deva" {
		t.Errorf("device token = %q, want spaces stripped %q", got.token, "deva")
	}
	if got.id != 42 {
		t.Errorf("correlation id = %d, want 42", got.id)
	}
	if got.n.Badge != 10 {
		t.Errorf("badge = %d, want 10", got.n.Badge)
	}
	if got.n.Sound != alertSound {
		t.Errorf("sound = %q, want %q", got.n.Sound, alertSound)
	}
	if got.n.Alert == nil || got.n.Alert.LocKey != KeyNewMessage {
		t.Fatalf("alert = %+v, want loc-key %q", got.n.Alert, KeyNewMessage)
	}
	wantArgs := []string{"Bob Roe", "hello"}
	if len(got.n.Alert.LocArgs) != 2 || got.n.Alert.LocArgs[0] != wantArgs[0] || got.n.Alert.LocArgs[1] != wantArgs[1] {
		t.Errorf("loc-args = %v, want %v", got.n.Alert.LocArgs, wantArgs)
	}
	if got.n.EventType != model.EventTypeChat {
		t.Errorf("event type = %q, want %q (new-message key carries it)", got.n.EventType, model.EventTypeChat)
	}
}

func TestDispatch_MissingRecipientDropped(t *testing.T) {
	dir := testDirectory([]string{"dev"}, nil)
	gw := newFakeGateway()
	q := newQueueSubscriber()
	d := NewDispatcher(q, dir, gw, nil)
	stop := runDispatcher(t, d, q)

	env := model.PushEnvelope{MessageAuthor: &author, LocKey: KeyNewMessage, MessageText: "x"}
	b, _ := json.Marshal(env)
	q.ch <- b
	stop()

	if n := len(gw.sent()); n != 0 {
		t.Errorf("sends = %d, want 0 for payload without recipient", n)
	}
}

func TestDispatch_MalformedPayloadDropped(t *testing.T) {
	dir := testDirectory([]string{"dev"}, nil)
	gw := newFakeGateway()
	q := newQueueSubscriber()
	d := NewDispatcher(q, dir, gw, nil)
	stop := runDispatcher(t, d, q)

	q.ch <- []byte("{not json")
	q.ch <- envelope(KeyNewMessage, "still alive")
	stop()

	if n := len(gw.sent()); n != 1 {
		t.Errorf("sends = %d, want 1 (loop survives malformed payload)", n)
	}
}

func TestDispatch_UnknownRecipientSkipped(t *testing.T) {
	dir := directory.NewInMemory() // recipient not present
	gw := newFakeGateway()
	q := newQueueSubscriber()
	d := NewDispatcher(q, dir, gw, nil)
	stop := runDispatcher(t, d, q)

	q.ch <- envelope(KeyNewMessage, "hello")
	stop()

	if n := len(gw.sent()); n != 0 {
		t.Errorf("sends = %d, want 0 for unknown recipient", n)
	}
}

func TestDispatch_NoDevicesNoSends(t *testing.T) {
	dir := testDirectory(nil, []directory.Unread{{Primary: 1}})
	gw := newFakeGateway()
	q := newQueueSubscriber()
	d := NewDispatcher(q, dir, gw, nil)
	stop := runDispatcher(t, d, q)

	q.ch <- envelope(KeyNewMessage, "hello")
	stop()

	if n := len(gw.sent()); n != 0 {
		t.Errorf("sends = %d, want 0 for recipient without devices", n)
	}
}

func TestDispatch_EmptyTokenSkipped(t *testing.T) {
	dir := testDirectory([]string{"", "dev-b"}, nil)
	gw := newFakeGateway()
	q := newQueueSubscriber()
	d := NewDispatcher(q, dir, gw, nil)
	stop := runDispatcher(t, d, q)

	q.ch <- envelope(KeyNewMessage, "hello")
	stop()

	sends := gw.sent()
	if len(sends) != 1 || sends[0].token != "dev-b" {
		t.Errorf("sends = %+v, want single send to dev-b", sends)
	}
}

func TestDispatch_SendFailureContinuesWithRemainingDevices(t *testing.T) {
	dir := testDirectory([]string{"dev-a", "dev-b"}, nil)
	gw := newFakeGateway()
	gw.sendErr = map[string]error{"dev-a": fmt.Errorf("connection reset")}
	q := newQueueSubscriber()
	d := NewDispatcher(q, dir, gw, nil)
	stop := runDispatcher(t, d, q)

	q.ch <- envelope(KeyNewMessage, "hello")
	stop()

	sends := gw.sent()
	if len(sends) != 1 || sends[0].token != "dev-b" {
		t.Errorf("sends = %+v, want delivery to dev-b despite dev-a failure", sends)
	}
}

func TestDispatch_GatewayErrorReportLogged(t *testing.T) {
	dir := testDirectory([]string{"dev-a"}, nil)
	gw := newFakeGateway()
	q := newQueueSubscriber()
	d := NewDispatcher(q, dir, gw, nil)
	stop := runDispatcher(t, d, q)

	// An asynchronous gateway error must not disturb the consumer loop.
	gw.errs <- Error{ID: 7, DeviceToken: "dev-a", Err: fmt.Errorf("bad token")}
	q.ch <- envelope(KeyNewMessage, "hello")
	stop()

	if n := len(gw.sent()); n != 1 {
		t.Errorf("sends = %d, want 1 after gateway error report", n)
	}
}

func TestRun_ContextCancel(t *testing.T) {
	dir := testDirectory(nil, nil)
	q := newQueueSubscriber()
	d := NewDispatcher(q, dir, newFakeGateway(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not exit on context cancel")
	}
}

func TestBuildAlert_Rules(t *testing.T) {
	tests := []struct {
		name     string
		env      model.PushEnvelope
		wantArgs []string
		silent   bool
	}{
		{
			name:     "message text",
			env:      model.PushEnvelope{LocKey: KeyNewMessage, MessageText: "hi"},
			wantArgs: []string{"Bob Roe", "hi"},
		},
		{
			name:     "comment text",
			env:      model.PushEnvelope{LocKey: "KEY_NEW_COMMENT", CommentText: "nice"},
			wantArgs: []string{"Bob Roe", "nice"},
		},
		{
			name:     "invite",
			env:      model.PushEnvelope{LocKey: KeyYouInvited, EventName: "Picnic"},
			wantArgs: []string{"Bob Roe", "Picnic"},
		},
		{
			name:     "subscribe request",
			env:      model.PushEnvelope{LocKey: KeyRequestSubscribe},
			wantArgs: []string{"Bob Roe"},
		},
		{
			name:   "no rule means silent push",
			env:    model.PushEnvelope{LocKey: "KEY_SOMETHING_ELSE"},
			silent: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alert := buildAlert(&tt.env, "Bob Roe")
			if tt.silent {
				if alert != nil {
					t.Fatalf("alert = %+v, want nil", alert)
				}
				return
			}
			if alert == nil {
				t.Fatal("alert = nil, want rule match")
			}
			if len(alert.LocArgs) != len(tt.wantArgs) {
				t.Fatalf("loc-args = %v, want %v", alert.LocArgs, tt.wantArgs)
			}
			for i := range tt.wantArgs {
				if alert.LocArgs[i] != tt.wantArgs[i] {
					t.Errorf("loc-args[%d] = %q, want %q", i, alert.LocArgs[i], tt.wantArgs[i])
				}
			}
		})
	}
}
