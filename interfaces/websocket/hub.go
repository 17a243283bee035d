package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"noteflow-backend/application/ports"
	"noteflow-backend/domain/events"
)

// Hub maintains the set of attached clients and fans committed change
// events out to all of them. All deliveries flow through a single
// goroutine, so every client observes events in the order their
// mutations committed. Delivery is at-most-once and best-effort: no
// acknowledgment, no replay, and a client attaching after an event
// misses it permanently.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan events.ChangeEvent

	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

// NewHub creates a new hub. Run must be started for it to do anything.
func NewHub(logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan events.ChangeEvent, 1024),
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger,
	}
}

// Run is the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("Hub shutting down")
			h.closeAllClients()
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case event := <-h.broadcast:
			h.fanOut(event)
		}
	}
}

// Stop shuts the hub down and disconnects every client
func (h *Hub) Stop() {
	h.cancel()
}

// Attach registers a client with the hub
func (h *Hub) Attach(client *Client) {
	h.register <- client
}

// Detach removes a client from the hub
func (h *Hub) Detach(client *Client) {
	h.unregister <- client
}

// Publish enqueues a change event for delivery to every attached client.
// It never blocks the caller: when the hub cannot keep up the event is
// dropped, which is within the at-most-once contract. With no clients
// attached the event is consumed and discarded.
func (h *Hub) Publish(ctx context.Context, event events.ChangeEvent) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("Broadcast queue full, dropping event",
			zap.String("type", string(event.Type)),
		)
	}
}

// ClientCount reports the number of attached clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("Client attached",
		zap.String("connectionID", client.id),
		zap.Int("clients", count),
	)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		// Never close client.send here: the client's read goroutine may
		// be about to reply on it. Signal teardown instead.
		client.shutdown()
	}
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.logger.Info("Client detached",
			zap.String("connectionID", client.id),
			zap.Int("clients", count),
		)
	}
}

// fanOut delivers one event to every attached client
func (h *Hub) fanOut(event events.ChangeEvent) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal change event",
			zap.Error(err),
			zap.String("type", string(event.Type)),
		)
		return
	}

	for _, client := range clients {
		select {
		case client.send <- data:
		default:
			// The client is not draining its queue; cut it loose
			// instead of stalling everyone else.
			h.logger.Warn("Closing slow client",
				zap.String("connectionID", client.id),
			)
			h.removeClient(client)
			client.closeConn()
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.shutdown()
		client.closeConn()
		delete(h.clients, client)
	}
}

var _ ports.EventBus = (*Hub)(nil)
