package push

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"
	"github.com/sideshow/apns2/payload"
)

// APNSGateway delivers notifications through Apple's push service. Sends are
// fire-and-forget: each runs on its own goroutine and reports failures on the
// Errors channel keyed by correlation id.
type APNSGateway struct {
	client *apns2.Client
	topic  string
	logger *slog.Logger

	errs chan Error
	wg   sync.WaitGroup
}

// NewAPNSGateway loads the provider certificate from certFile and connects to
// the sandbox or production endpoint. An unreadable certificate is a startup
// failure: the dispatcher must not enter its loop without one.
func NewAPNSGateway(certFile, topic string, sandbox bool, logger *slog.Logger) (*APNSGateway, error) {
	if _, err := os.Stat(certFile); err != nil {
		return nil, fmt.Errorf("push: certificate file: %w", err)
	}
	cert, err := certificate.FromPemFile(certFile, "")
	if err != nil {
		return nil, fmt.Errorf("push: loading certificate %s: %w", certFile, err)
	}

	client := apns2.NewClient(cert)
	if sandbox {
		client = client.Development()
	} else {
		client = client.Production()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &APNSGateway{
		client: client,
		topic:  topic,
		logger: logger,
		errs:   make(chan Error, 64),
	}, nil
}

// Send pushes one notification to one device without blocking on the
// round-trip. Gateway rejections surface later on Errors.
func (g *APNSGateway) Send(deviceToken string, n Notification, id uint32) error {
	p := payload.NewPayload().
		Sound(n.Sound).
		Badge(n.Badge).
		Custom("EventId", n.EventID)
	if n.EventType != "" {
		p = p.Custom("EventType", n.EventType)
	}
	if n.Alert != nil {
		p = p.AlertLocKey(n.Alert.LocKey).AlertLocArgs(n.Alert.LocArgs)
	}

	notification := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       g.topic,
		Payload:     p,
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		res, err := g.client.Push(notification)
		if err != nil {
			g.report(Error{ID: id, DeviceToken: deviceToken, Err: err})
			return
		}
		if !res.Sent() {
			g.report(Error{ID: id, DeviceToken: deviceToken,
				Err: fmt.Errorf("apns rejected: %s", res.Reason)})
		}
	}()
	return nil
}

func (g *APNSGateway) report(e Error) {
	select {
	case g.errs <- e:
	default:
		// Error consumer is behind; drop rather than block delivery.
		g.logger.Warn("push: dropping gateway error report",
			"correlation_id", e.ID, "err", e.Err)
	}
}

// Errors returns the asynchronous failure channel.
func (g *APNSGateway) Errors() <-chan Error {
	return g.errs
}

// Close waits for in-flight sends and closes the error channel.
func (g *APNSGateway) Close() error {
	g.wg.Wait()
	close(g.errs)
	return nil
}
