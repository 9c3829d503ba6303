package ws_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "marketplace-service/errors"
	"marketplace-service/models"
	"marketplace-service/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const clientURL = "http://localhost:3000"

type stubTokens struct{}

func (stubTokens) Validate(token string) (models.Actor, error) {
	if token == "" || token == "bad" {
		return models.Actor{}, errors.New("invalid")
	}
	return models.Actor{UserID: token}, nil
}

type stubChat struct {
	mu    sync.Mutex
	sent  []models.SendMessageRequest
	hub   *ws.Hub
	reads []string
}

func (s *stubChat) Send(_ context.Context, actor models.Actor, req *models.SendMessageRequest) (*models.Message, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, apperrors.ValidationField("text", "is required")
	}
	s.mu.Lock()
	s.sent = append(s.sent, *req)
	s.mu.Unlock()
	s.hub.Push(req.RecipientID, "message:new", map[string]string{"from": actor.UserID, "text": req.Text})
	return &models.Message{Text: req.Text}, nil
}

func (s *stubChat) Typing(_ context.Context, actor models.Actor, recipientID string, typing bool) error {
	s.hub.Push(recipientID, "typing", map[string]interface{}{"userId": actor.UserID, "typing": typing})
	return nil
}

func (s *stubChat) MarkRead(_ context.Context, actor models.Actor, otherUserID string) (int64, error) {
	s.mu.Lock()
	s.reads = append(s.reads, otherUserID)
	s.mu.Unlock()
	return 1, nil
}

func newServer(t *testing.T) (*httptest.Server, *ws.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := ws.NewHub(nil, zap.NewNop(), nil)
	require.NoError(t, hub.Start(context.Background()))
	chat := &stubChat{hub: hub}

	r := gin.New()
	r.Use(apperrors.ErrorMiddleware(zap.NewNop()))
	r.GET("/ws", ws.NewHandler(hub, stubTokens{}, chat, clientURL, zap.NewNop()).Serve)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		hub.Close()
	})
	return srv, hub
}

func dial(t *testing.T, srv *httptest.Server, token string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	return websocket.DefaultDialer.Dial(url, header)
}

func readFrame(t *testing.T, conn *websocket.Conn) ws.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f ws.Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestHandler_RejectsMissingOrBadToken(t *testing.T) {
	srv, _ := newServer(t)

	_, resp, err := dial(t, srv, "", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = dial(t, srv, "bad", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_RejectsForeignOrigin(t *testing.T) {
	srv, _ := newServer(t)

	_, resp, err := dial(t, srv, "alice", http.Header{"Origin": {"http://evil.example"}})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHandler_PingPong(t *testing.T) {
	srv, _ := newServer(t)

	conn, _, err := dial(t, srv, "alice", http.Header{"Origin": {clientURL}})
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(ws.Frame{Type: ws.EventPing}))
	assert.Equal(t, ws.EventPong, readFrame(t, conn).Type)
}

func TestHandler_MessageDeliveredToRecipient(t *testing.T) {
	srv, hub := newServer(t)

	alice, _, err := dial(t, srv, "alice", nil)
	require.NoError(t, err)
	defer alice.Close()
	bob, _, err := dial(t, srv, "bob", nil)
	require.NoError(t, err)
	defer bob.Close()
	require.Eventually(t, func() bool { return hub.Connected("bob") == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte(`{"type":"message:send","data":{"recipientId":"bob","text":"hello"}}`)))

	f := readFrame(t, bob)
	assert.Equal(t, "message:new", f.Type)
	assert.JSONEq(t, `{"from":"alice","text":"hello"}`, string(f.Data))
}

func TestHandler_ErrorFrames(t *testing.T) {
	srv, _ := newServer(t)

	conn, _, err := dial(t, srv, "alice", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	f := readFrame(t, conn)
	assert.Equal(t, ws.EventError, f.Type)
	assert.JSONEq(t, `{"message":"Malformed frame"}`, string(f.Data))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"message:send","data":{"recipientId":"bob","text":" "}}`)))
	f = readFrame(t, conn)
	assert.Equal(t, ws.EventError, f.Type)
	assert.JSONEq(t, `{"message":"Validation error"}`, string(f.Data))

	require.NoError(t, conn.WriteJSON(ws.Frame{Type: "dance"}))
	f = readFrame(t, conn)
	assert.Equal(t, ws.EventError, f.Type)
}
