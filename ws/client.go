package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	apperrors "marketplace-service/errors"
	"marketplace-service/logger"
	"marketplace-service/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 10
	sendBuffer     = 64
	handlerTimeout = 10 * time.Second
)

// Client event types.
const (
	EventPing        = "ping"
	EventPong        = "pong"
	EventSendMessage = "message:send"
	EventTyping      = "typing"
	EventRead        = "message:read"
	EventError       = "error"
)

// Client is one websocket connection of an authenticated user.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	actor  models.Actor
	userID string
	send   chan []byte
	log    *zap.Logger
}

func newClient(hub *Hub, conn *websocket.Conn, actor models.Actor, log *zap.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		actor:  actor,
		userID: actor.UserID,
		send:   make(chan []byte, sendBuffer),
		log:    log,
	}
}

// writePump drains the send buffer and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump dispatches inbound frames until the connection fails.
func (c *Client) readPump(chat ChatService) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("WS read failed", zap.String("user_id", c.userID), zap.Error(err))
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.replyError("Malformed frame")
			continue
		}
		c.dispatch(chat, frame)
	}
}

type typingPayload struct {
	RecipientID string `json:"recipientId"`
	Typing      *bool  `json:"typing"`
}

type readPayload struct {
	UserID string `json:"userId"`
}

func (c *Client) dispatch(chat ChatService, frame Frame) {
	ctx, cancel := context.WithTimeout(logger.WithRequestID(context.Background(), uuid.NewString()), handlerTimeout)
	defer cancel()

	var err error
	switch frame.Type {
	case EventPing:
		c.replyFrame(EventPong, nil)
	case EventSendMessage:
		var req models.SendMessageRequest
		if err = json.Unmarshal(frame.Data, &req); err == nil {
			_, err = chat.Send(ctx, c.actor, &req)
		}
	case EventTyping:
		var p typingPayload
		if err = json.Unmarshal(frame.Data, &p); err == nil {
			typing := p.Typing == nil || *p.Typing
			err = chat.Typing(ctx, c.actor, p.RecipientID, typing)
		}
	case EventRead:
		var p readPayload
		if err = json.Unmarshal(frame.Data, &p); err == nil {
			_, err = chat.MarkRead(ctx, c.actor, p.UserID)
		}
	default:
		c.replyError("Unknown event type: " + frame.Type)
		return
	}

	if err != nil {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) && appErr.Code < 500 {
			c.replyError(appErr.Message)
			return
		}
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			c.replyError("Malformed frame")
			return
		}
		logger.FromContext(ctx).Error("WS event failed", zap.String("type", frame.Type), zap.Error(err))
		c.replyError(apperrors.ErrInternalServer.Message)
	}
}

func (c *Client) replyFrame(eventType string, data interface{}) {
	frame, err := encodeFrame(eventType, data)
	if err != nil {
		return
	}
	c.hub.reply(c, frame)
}

func (c *Client) replyError(message string) {
	c.replyFrame(EventError, map[string]string{"message": message})
}
