package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"live-app/internal/apperrors"
	"live-app/internal/live"
	"live-app/internal/models"
	"live-app/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	maxPingPeriod  = (pongWait * 9) / 10
	maxMessageSize = 8 << 10
	requestTimeout = 5 * time.Second
)

// PingPeriodFor picks a ping interval that refreshes a participant several
// times within heartbeatTimeout, so a connection that answers pings is never
// taken for silent.
func PingPeriodFor(heartbeatTimeout time.Duration) time.Duration {
	if heartbeatTimeout <= 0 {
		return maxPingPeriod
	}
	return min(heartbeatTimeout/3, maxPingPeriod)
}

// GiftPricer replaces client supplied gift prices with catalog prices.
type GiftPricer interface {
	Price(ctx context.Context, gift *models.Gift) error
}

type Options struct {
	SendBuffer int
	// Gifts is nil when client prices are trusted.
	Gifts GiftPricer
	// PingPeriod must stay below the room's heartbeat timeout, since pongs
	// are what keep an otherwise quiet participant alive. Zero or anything
	// above the pong wait falls back to the longest safe period.
	PingPeriod time.Duration
}

// Client bridges one WebSocket connection and its participant in a live room.
type Client struct {
	manager     *live.Manager
	conn        *websocket.Conn
	participant *live.Participant
	roomID      string
	gifts       GiftPricer
	pingPeriod  time.Duration

	errs chan []byte
	done chan struct{}
}

func NewClient(manager *live.Manager, conn *websocket.Conn, roomID, userID string, opts Options) *Client {
	if opts.PingPeriod <= 0 || opts.PingPeriod > maxPingPeriod {
		opts.PingPeriod = maxPingPeriod
	}
	return &Client{
		manager:     manager,
		conn:        conn,
		participant: live.NewParticipant(userID, opts.SendBuffer),
		roomID:      roomID,
		gifts:       opts.Gifts,
		pingPeriod:  opts.PingPeriod,
		errs:        make(chan []byte, 16),
		done:        make(chan struct{}),
	}
}

// Serve joins the room and runs the pumps until the connection ends. If the
// join fails the client gets an error event and the connection is closed.
func Serve(ctx context.Context, manager *live.Manager, conn *websocket.Conn, roomID, userID string, opts Options) {
	c := NewClient(manager, conn, roomID, userID, opts)

	joinCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	if err := manager.Join(joinCtx, roomID, c.participant); err != nil {
		logger.Warn("User %s could not join room %s: %v", userID, roomID, err)
		if data := encodeError(models.MessageTypeJoinLive, err); data != nil {
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.TextMessage, data)
		}
		conn.Close()
		return
	}

	go c.WritePump()
	go c.ReadPump()
}

func (c *Client) ReadPump() {
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		err := c.manager.Leave(ctx, c.roomID, c.participant, apperrors.ErrTransportLost)
		if err != nil && !errors.Is(err, apperrors.ErrNotJoined) && !errors.Is(err, apperrors.ErrUnknownRoom) {
			logger.Error("Error leaving room %s: %v", c.roomID, err)
		}
		close(c.done)
		c.conn.Close()
	}()

	// Set read deadline and pong handler for connection health
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.manager.Touch(c.roomID, c.participant)
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("WebSocket error: %v", err)
			}
			break
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handle(message)
	}
}

func (c *Client) handle(data []byte) {
	msg, err := models.DecodeClientMessage(data)
	if err != nil {
		c.reportError("", err)
		return
	}
	if err := c.checkIdentity(msg); err != nil {
		c.reportError(msg.Kind(), err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if gift, ok := msg.(*models.Gift); ok && c.gifts != nil {
		if err := c.gifts.Price(ctx, gift); err != nil {
			c.reportError(msg.Kind(), err)
			return
		}
	}

	if _, ok := msg.(*models.JoinLive); ok {
		err = c.manager.Join(ctx, c.roomID, c.participant)
	} else {
		err = c.manager.Dispatch(ctx, c.roomID, c.participant, msg)
	}
	if err != nil {
		c.reportError(msg.Kind(), err)
	}
}

// checkIdentity rejects messages that speak for another user.
func (c *Client) checkIdentity(msg models.ClientMessage) error {
	var claimed string
	switch m := msg.(type) {
	case *models.JoinLive:
		claimed = m.UserID
	case *models.Like:
		claimed = m.UserID
	case *models.Gift:
		claimed = m.UserID
	case *models.Comment:
		claimed = m.UserID
	case *models.PKScore:
		claimed = m.UserID
	}
	if claimed != "" && claimed != c.participant.ID {
		return apperrors.Invalid("userId %q does not match the connection's user", claimed)
	}
	return nil
}

func (c *Client) reportError(requestType models.MessageType, err error) {
	if apperrors.CodeOf(err) == apperrors.CodeInternal {
		logger.Error("Room %s, user %s: %s failed: %v", c.roomID, c.participant.ID, requestType, err)
	} else {
		logger.Debug("Room %s, user %s: %s rejected: %v", c.roomID, c.participant.ID, requestType, err)
	}
	data := encodeError(requestType, err)
	if data == nil {
		return
	}
	select {
	case c.errs <- data:
	default:
		logger.Warn("Dropping error event for user %s in room %s", c.participant.ID, c.roomID)
	}
}

func encodeError(requestType models.MessageType, err error) []byte {
	data, mErr := json.Marshal(models.ErrorEvent{
		Type:        models.MessageTypeError,
		Code:        string(apperrors.CodeOf(err)),
		Message:     err.Error(),
		RequestType: requestType,
	})
	if mErr != nil {
		logger.Error("Error marshaling error event: %v", mErr)
		return nil
	}
	return data
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	send := c.participant.Send()
	for {
		select {
		case msg, ok := <-send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Error("Write error: %v", err)
				return
			}

		case msg := <-c.errs:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Error("Write error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}
