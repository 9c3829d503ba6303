package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	apperrors "marketplace-service/errors"
	"marketplace-service/middleware"
	"marketplace-service/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ChatService is the part of the chat service driven by websocket frames.
type ChatService interface {
	Send(ctx context.Context, actor models.Actor, req *models.SendMessageRequest) (*models.Message, error)
	Typing(ctx context.Context, actor models.Actor, recipientID string, typing bool) error
	MarkRead(ctx context.Context, actor models.Actor, otherUserID string) (int64, error)
}

// Handler upgrades GET /ws requests into hub clients.
type Handler struct {
	hub      *Hub
	tokens   middleware.TokenValidator
	chat     ChatService
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewHandler accepts connections whose Origin is clientURL. Requests without
// an Origin header, from non-browser clients, are accepted too.
func NewHandler(hub *Hub, tokens middleware.TokenValidator, chat ChatService, clientURL string, log *zap.Logger) *Handler {
	allowed := strings.TrimSuffix(clientURL, "/")
	return &Handler{
		hub:    hub,
		tokens: tokens,
		chat:   chat,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || strings.TrimSuffix(origin, "/") == allowed
			},
		},
	}
}

// Serve handles GET /ws.
func (h *Handler) Serve(c *gin.Context) {
	raw := middleware.TokenFromRequest(c, true)
	if raw == "" {
		c.Error(apperrors.Unauthorized("Authentication required"))
		return
	}
	actor, err := h.tokens.Validate(raw)
	if err != nil {
		c.Error(apperrors.Unauthorized("Invalid or expired token"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already answered the request.
		h.log.Debug("WS upgrade failed", zap.Error(err))
		return
	}

	client := newClient(h.hub, conn, actor, h.log)
	if !h.hub.Register(client) {
		conn.Close()
		return
	}
	go client.writePump()
	go client.readPump(h.chat)
}
