package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"live-app/internal/models"
	"live-app/pkg/reconnect"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

// heartbeatPeriod stays well inside the server's default 30s heartbeat
// timeout.
const heartbeatPeriod = 10 * time.Second

type (
	// eventMsg is one raw server event.
	eventMsg []byte
	// statusMsg reports the connection state.
	statusMsg string
)

// connection keeps one WebSocket open to the room, redialing with the
// reconnect policy when it drops.
type connection struct {
	url     string
	userID  string
	policy  reconnect.Policy
	outbox  <-chan []byte
	program *tea.Program
}

func (c *connection) run(ctx context.Context) {
	attempt := 0
	for {
		c.program.Send(statusMsg("connecting"))
		err := c.session(ctx)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			// the session was up, so the backoff starts over
			attempt = 0
		}
		attempt++
		c.program.Send(statusMsg(fmt.Sprintf("disconnected (%v), retry %d", err, attempt)))
		if err := c.policy.Wait(ctx, attempt); err != nil {
			if errors.Is(err, reconnect.ErrExhausted) {
				c.program.Send(statusMsg("gave up reconnecting"))
			}
			return
		}
	}
}

// session returns nil if the connection was established and later lost.
func (c *connection) session(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	c.program.Send(statusMsg("live"))

	join, _ := json.Marshal(models.JoinLive{UserID: c.userID, Timestamp: time.Now().UnixMilli()})
	join = withType(join, models.MessageTypeJoinLive)
	if err := conn.WriteMessage(websocket.TextMessage, join); err != nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			c.program.Send(eventMsg(data))
		}
	}()

	heartbeat := time.NewTicker(heartbeatPeriod)
	defer heartbeat.Stop()

	for {
		var msg []byte
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil
		case <-done:
			return nil
		case msg = <-c.outbox:
		case now := <-heartbeat.C:
			msg = heartbeatMessage(now)
		}
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return nil
		}
	}
}

func heartbeatMessage(now time.Time) []byte {
	body, _ := json.Marshal(models.Heartbeat{Timestamp: now.UnixMilli()})
	return withType(body, models.MessageTypeHeartbeat)
}

// withType adds the "type" tag to an encoded client message.
func withType(body []byte, typ models.MessageType) []byte {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		fields = map[string]any{}
	}
	fields["type"] = typ
	out, _ := json.Marshal(fields)
	return out
}
