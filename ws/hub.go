package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channel is the Redis pub/sub channel shared by every instance.
const Channel = "marketplace:ws"

const publishTimeout = 2 * time.Second

// Frame is the JSON envelope of every websocket message.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// delivery addresses a frame to every connection of one user.
type delivery struct {
	UserID string          `json:"userId"`
	Frame  json.RawMessage `json:"frame"`
}

type directFrame struct {
	client *Client
	frame  []byte
}

type countRequest struct {
	userID string
	reply  chan int
}

// ConnectionObserver is told about connections opening and closing.
type ConnectionObserver interface {
	ConnectionOpened()
	ConnectionClosed()
}

// Hub tracks live connections by user id. The client map is owned by the
// Run goroutine; everything else talks to it over channels. With a Redis
// client, pushes go through pub/sub so that every instance delivers to its
// own connections.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	deliver    chan delivery
	direct     chan directFrame
	count      chan countRequest
	done       chan struct{}
	stopOnce   sync.Once

	rdb      *redis.Client
	sub      *redis.PubSub
	log      *zap.Logger
	observer ConnectionObserver
}

func NewHub(rdb *redis.Client, log *zap.Logger, observer ConnectionObserver) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, 256),
		direct:     make(chan directFrame, 256),
		count:      make(chan countRequest),
		done:       make(chan struct{}),
		rdb:        rdb,
		log:        log,
		observer:   observer,
	}
}

// Start subscribes to the fan-out channel, when Redis is configured, and
// launches the hub loop. It returns once the subscription is confirmed.
func (h *Hub) Start(ctx context.Context) error {
	if h.rdb != nil {
		h.sub = h.rdb.Subscribe(ctx, Channel)
		if _, err := h.sub.Receive(ctx); err != nil {
			_ = h.sub.Close()
			h.sub = nil
			return err
		}
		go h.relay(h.sub.Channel())
	}
	go h.run()
	return nil
}

// Close stops the hub and closes every client's send buffer.
func (h *Hub) Close() error {
	h.stopOnce.Do(func() { close(h.done) })
	if h.sub != nil {
		return h.sub.Close()
	}
	return nil
}

// Push implements services.Pusher.
func (h *Hub) Push(userID, eventType string, data interface{}) {
	frame, err := encodeFrame(eventType, data)
	if err != nil {
		h.log.Error("Failed to encode websocket frame", zap.String("type", eventType), zap.Error(err))
		return
	}
	d := delivery{UserID: userID, Frame: frame}

	if h.rdb != nil {
		payload, err := json.Marshal(d)
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			err = h.rdb.Publish(ctx, Channel, payload).Err()
			cancel()
			if err == nil {
				return
			}
		}
		h.log.Warn("Redis fan-out failed, delivering locally", zap.String("type", eventType), zap.Error(err))
	}
	h.enqueue(d)
}

// Connected reports how many live connections userID holds on this instance.
func (h *Hub) Connected(userID string) int {
	req := countRequest{userID: userID, reply: make(chan int, 1)}
	select {
	case h.count <- req:
		return <-req.reply
	case <-h.done:
		return 0
	}
}

func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// reply sends a frame to a single connection.
func (h *Hub) reply(c *Client, frame []byte) {
	select {
	case h.direct <- directFrame{client: c, frame: frame}:
	case <-h.done:
	}
}

func (h *Hub) enqueue(d delivery) {
	select {
	case h.deliver <- d:
	case <-h.done:
	}
}

func (h *Hub) relay(ch <-chan *redis.Message) {
	for msg := range ch {
		var d delivery
		if err := json.Unmarshal([]byte(msg.Payload), &d); err != nil {
			h.log.Warn("Dropping malformed fan-out message", zap.Error(err))
			continue
		}
		h.enqueue(d)
	}
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			conns, ok := h.clients[c.userID]
			if !ok {
				conns = make(map[*Client]struct{})
				h.clients[c.userID] = conns
			}
			conns[c] = struct{}{}
			if h.observer != nil {
				h.observer.ConnectionOpened()
			}
			h.log.Debug("WS client connected", zap.String("user_id", c.userID), zap.Int("connections", len(conns)))

		case c := <-h.unregister:
			h.drop(c)

		case d := <-h.deliver:
			for c := range h.clients[d.UserID] {
				h.send(c, d.Frame)
			}

		case f := <-h.direct:
			if _, ok := h.clients[f.client.userID][f.client]; ok {
				h.send(f.client, f.frame)
			}

		case req := <-h.count:
			req.reply <- len(h.clients[req.userID])

		case <-h.done:
			for _, conns := range h.clients {
				for c := range conns {
					h.drop(c)
				}
			}
			return
		}
	}
}

// send queues frame on c, dropping the client when its buffer is full.
func (h *Hub) send(c *Client, frame []byte) {
	select {
	case c.send <- frame:
	default:
		h.log.Warn("WS client too slow, dropping", zap.String("user_id", c.userID))
		h.drop(c)
	}
}

func (h *Hub) drop(c *Client) {
	conns, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
	if h.observer != nil {
		h.observer.ConnectionClosed()
	}
}

func encodeFrame(eventType string, data interface{}) ([]byte, error) {
	f := Frame{Type: eventType}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		f.Data = raw
	}
	return json.Marshal(f)
}
