package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"noteflow-backend/application/services"
)

// Server upgrades HTTP requests into hub-attached websocket clients
type Server struct {
	hub        *Hub
	dispatcher *services.AIDispatcher
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

// NewServer creates a websocket server. allowedOrigin restricts which
// browser origin may connect; empty allows any.
func NewServer(hub *Hub, dispatcher *services.AIDispatcher, allowedOrigin string, logger *zap.Logger) *Server {
	return &Server{
		hub:        hub,
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
		logger: logger,
	}
}

// HandleWebSocket handles websocket upgrade requests
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection",
			zap.Error(err),
			zap.String("remoteAddr", r.RemoteAddr),
		)
		return
	}

	client := NewClient(s.hub, conn, s.dispatcher, s.logger)
	client.Start()

	s.logger.Info("WebSocket connection established",
		zap.String("remoteAddr", r.RemoteAddr),
	)
}
