package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"noteflow-backend/application/services"
	pkgerrors "noteflow-backend/pkg/errors"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	// Send buffer size
	sendBufferSize = 256
)

// aiRequest is a client-issued AI task over the websocket channel
type aiRequest struct {
	Type   string `json:"type"`
	Task   string `json:"task"`
	Prompt string `json:"prompt"`
}

// aiResponse answers an aiRequest on the same connection
type aiResponse struct {
	Type    string               `json:"type"`
	Success bool                 `json:"success"`
	Task    string               `json:"task,omitempty"`
	Prompt  string               `json:"prompt,omitempty"`
	Result  *services.TaskResult `json:"result,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// Client is one websocket connection. It receives every broadcast change
// event and services AI task requests issued by its peer.
//
// The send channel is never closed: the readPump may be mid-request and
// about to reply on it when the hub detaches the client, and a send on a
// closed channel panics. Teardown is signalled through done instead.
type Client struct {
	id         string
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	done       chan struct{}
	closeOnce  sync.Once
	dispatcher *services.AIDispatcher
	logger     *zap.Logger
}

// NewClient creates a client over an upgraded connection
func NewClient(hub *Hub, conn *websocket.Conn, dispatcher *services.AIDispatcher, logger *zap.Logger) *Client {
	id := uuid.New().String()
	return &Client{
		id:         id,
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufferSize),
		done:       make(chan struct{}),
		dispatcher: dispatcher,
		logger:     logger.With(zap.String("connectionID", id)),
	}
}

// shutdown signals both pumps to stop. Idempotent and safe to call from
// any goroutine.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Start attaches the client to the hub and begins its read and write pumps
func (c *Client) Start() {
	c.hub.Attach(c)

	go c.writePump()
	go c.readPump()
}

// readPump reads messages from the peer until the connection drops
func (c *Client) readPump() {
	defer func() {
		c.hub.Detach(c)
		c.closeConn()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error", zap.Error(err))
			}
			return
		}

		if messageType == websocket.TextMessage {
			c.handleMessage(bytes.TrimSpace(message))
		}
	}
}

// writePump writes queued messages and keepalive pings to the peer
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConn()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			// The hub detached us
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// handleMessage processes one inbound text message. The only request the
// server understands is an AI task; anything else is logged and ignored.
func (c *Client) handleMessage(message []byte) {
	var req aiRequest
	if err := json.Unmarshal(message, &req); err != nil || req.Type != "ai-process" {
		c.logger.Debug("Ignoring unrecognized message", zap.ByteString("message", message))
		return
	}

	result, err := c.dispatcher.Dispatch(context.Background(), services.TaskKind(req.Task), req.Prompt)
	if err != nil {
		message := err.Error()
		if appErr := pkgerrors.GetAppError(err); appErr != nil {
			message = appErr.Message
		}
		c.reply(aiResponse{Type: "ai-response", Success: false, Error: message})
		return
	}

	c.reply(aiResponse{
		Type:    "ai-response",
		Success: true,
		Task:    req.Task,
		Prompt:  req.Prompt,
		Result:  result,
	})
}

// reply queues a response to this client only. Dropped without error when
// the client was detached while the request was in flight.
func (c *Client) reply(resp aiResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("Failed to marshal AI response", zap.Error(err))
		return
	}

	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.send <- data:
	default:
		c.logger.Warn("Send queue full, dropping AI response")
	}
}

// closeConn closes the underlying connection if one exists
func (c *Client) closeConn() {
	if c.conn != nil {
		c.conn.Close()
	}
}
