package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/togetherapp/relay/internal/directory"
	"github.com/togetherapp/relay/internal/model"
)

const (
	// maxMissedPongs is how many unanswered probes force-close a connection.
	maxMissedPongs = 5

	// writeWait bounds every write to the peer.
	writeWait = 10 * time.Second
)

// connection owns one accepted WebSocket for its lifetime: the authenticated
// member identity, the channel subscription, and the heartbeat state. All of
// that state is private to the connection.
type connection struct {
	ws       *websocket.Conn
	member   model.Member
	dir      directory.Directory
	cancel   func()
	interval time.Duration
	logger   *slog.Logger

	// mu guards the heartbeat state: the outstanding sync token and the
	// missed-pong counter.
	mu        sync.Mutex
	syncToken []byte
	missed    int

	// writeMu serializes data-frame writes; control frames go through
	// WriteControl, which is safe concurrently.
	writeMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}
}

func newConnection(ws *websocket.Conn, member model.Member, dir directory.Directory, cancel func(), interval time.Duration, logger *slog.Logger) *connection {
	return &connection{
		ws:       ws,
		member:   member,
		dir:      dir,
		cancel:   cancel,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// run drives the connection until it closes. It blocks the handler goroutine
// on the read loop; the heartbeat and forwarding loops run alongside it.
func (c *connection) run(ch <-chan []byte) {
	c.ws.SetPongHandler(c.onPong)

	go c.heartbeat()
	go c.forward(ch)

	// The read loop processes control frames (pong replies in particular)
	// and detects client disconnects.
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			c.close()
			return
		}
	}
}

// heartbeat sends a liveness probe every interval, carrying the current sync
// token as the ping payload, and force-closes after maxMissedPongs
// consecutive unanswered probes.
func (c *connection) heartbeat() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.missed >= maxMissedPongs {
				c.mu.Unlock()
				c.logger.Error("gateway: heartbeat timeout", "member", c.member.Phone)
				c.close()
				return
			}
			if len(c.syncToken) == 0 {
				c.renewSyncLocked()
			}
			token := make([]byte, len(c.syncToken))
			copy(token, c.syncToken)
			c.missed++
			c.mu.Unlock()

			if err := c.ws.WriteControl(websocket.PingMessage, token, time.Now().Add(writeWait)); err != nil {
				c.logger.Warn("gateway: ping failed", "member", c.member.Phone, "err", err)
				c.close()
				return
			}
			c.logger.Debug("gateway: probe sent", "member", c.member.Phone, "sync", string(token))
		}
	}
}

// onPong checks the reply against the outstanding sync token. A match resets
// the missed counter and rotates the token; anything else means the
// connection is out of sync and is torn down.
func (c *connection) onPong(appData string) error {
	c.mu.Lock()
	current := string(c.syncToken)
	if current != "" && appData == current {
		c.missed = 0
		c.renewSyncLocked()
		c.mu.Unlock()
		c.logger.Debug("gateway: heartbeat ok", "member", c.member.Phone)
		return nil
	}
	c.mu.Unlock()

	c.logger.Error("gateway: connection out of sync",
		"member", c.member.Phone, "got", appData, "want", current)
	c.close()
	return nil
}

// renewSyncLocked issues a fresh sync token derived from the current time.
// Callers must hold mu.
func (c *connection) renewSyncLocked() {
	c.syncToken = []byte(strconv.FormatInt(time.Now().Unix(), 10))
}

// forward copies payloads published on the member's channel to the peer
// verbatim. A write failure is reported to the client once, then the
// connection closes.
func (c *connection) forward(ch <-chan []byte) {
	for {
		select {
		case <-c.done:
			return
		case payload, ok := <-ch:
			if !ok {
				c.close()
				return
			}
			if err := c.writeMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Error("gateway: forward failed", "member", c.member.Phone, "err", err)
				c.reportError(err)
				c.close()
				return
			}
		}
	}
}

func (c *connection) writeMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(messageType, data)
}

// reportError sends a single error frame to the client, best-effort.
func (c *connection) reportError(err error) {
	msg, merr := json.Marshal(map[string]string{"error": err.Error()})
	if merr != nil {
		return
	}
	_ = c.writeMessage(websocket.TextMessage, msg)
}

// close tears the connection down: close frame when feasible, unsubscribe,
// clear the connected flag, release the heartbeat. Safe to call repeatedly.
func (c *connection) close() {
	c.closeOnce.Do(func() {
		deadline := time.Now().Add(writeWait)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)

		close(c.done)
		c.cancel()
		if err := c.dir.SetConnected(context.Background(), c.member.Phone, false); err != nil {
			c.logger.Warn("gateway: clearing connected flag", "member", c.member.Phone, "err", err)
		}
		_ = c.ws.Close()
		c.logger.Debug("gateway: connection closed", "member", c.member.Phone)
	})
}
