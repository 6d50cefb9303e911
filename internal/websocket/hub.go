package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"finscope-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const feedChannel = "finscope:session_feed"

// Hub fans orchestrator state changes out to every connected session
// feed client. There is no per-user routing: the session model is
// global, so every client sees every transition. With Redis configured
// the fan-out crosses instances.
type Hub struct {
	clients map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	rdb *redis.Client

	// instanceId tags Redis payloads so an instance skips its own
	// messages instead of delivering them twice.
	instanceId string

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID]*Client),
		rdb:        rdb,
		instanceId: uuid.NewString(),
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.Id] = client
			h.mu.Unlock()
			h.logger.Info("Hub", "Feed client connected", map[string]interface{}{"client_id": client.Id})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.Id]; ok {
				delete(h.clients, client.Id)
				close(client.Send)
				h.logger.Info("Hub", "Feed client disconnected", map[string]interface{}{"client_id": client.Id})
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast delivers a state-change payload to all local clients and
// relays it to sibling instances over Redis.
func (h *Hub) Broadcast(data []byte) {
	h.deliverLocal(data)

	if h.rdb != nil {
		payload, _ := json.Marshal(feedEnvelope{Origin: h.instanceId, Message: data})
		if err := h.rdb.Publish(context.Background(), feedChannel, payload).Err(); err != nil {
			h.logger.Warn("Hub", "Failed to relay feed message over Redis", map[string]interface{}{"error": err.Error()})
		}
	}
}

type feedEnvelope struct {
	Origin  string          `json:"origin"`
	Message json.RawMessage `json:"message"`
}

func (h *Hub) deliverLocal(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Send <- data:
		default:
			// Slow consumer; drop the connection rather than block the feed.
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, feedChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var envelope feedEnvelope
		if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
			h.logger.Warn("Hub", "Malformed feed relay payload", map[string]interface{}{"error": err.Error()})
			continue
		}
		if envelope.Origin == h.instanceId {
			continue
		}
		h.deliverLocal(envelope.Message)
	}
}
