package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"noteflow-backend/application/services"
	"noteflow-backend/interfaces/http/rest/handlers"
	"noteflow-backend/interfaces/http/rest/middleware"
)

// Router creates and configures the HTTP router
type Router struct {
	service   *services.GraphService
	wsHandler http.HandlerFunc
	clientURL string
	logger    *zap.Logger
}

// NewRouter creates a new router instance. wsHandler serves websocket
// upgrade requests at /ws; clientURL is the allowed CORS origin (empty
// allows any origin, for local development).
func NewRouter(
	service *services.GraphService,
	wsHandler http.HandlerFunc,
	clientURL string,
	logger *zap.Logger,
) *Router {
	return &Router{
		service:   service,
		wsHandler: wsHandler,
		clientURL: clientURL,
		logger:    logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	// CORS configuration
	allowedOrigins := []string{"*"}
	if rt.clientURL != "" {
		allowedOrigins = []string{rt.clientURL}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: rt.clientURL != "",
		MaxAge:           300,
	}))

	router.Get("/", rt.welcome)
	router.Get("/health", rt.healthCheck)

	if rt.wsHandler != nil {
		router.Get("/ws", rt.wsHandler)
	}

	router.Route("/api", func(r chi.Router) {
		r.Route("/notes", func(r chi.Router) {
			noteHandler := handlers.NewNoteHandler(rt.service, rt.logger)
			r.Get("/", noteHandler.ListNotes)
			r.Post("/", noteHandler.CreateNote)
			r.Get("/{noteID}", noteHandler.GetNote)
			r.Put("/{noteID}", noteHandler.UpdateNote)
			r.Delete("/{noteID}", noteHandler.DeleteNote)
			r.Patch("/{noteID}/pin", noteHandler.TogglePin)
		})

		r.Route("/connections", func(r chi.Router) {
			connectionHandler := handlers.NewConnectionHandler(rt.service, rt.logger)
			r.Get("/", connectionHandler.ListConnections)
			r.Post("/", connectionHandler.CreateConnection)
			r.Delete("/{connectionID}", connectionHandler.DeleteConnection)
		})
	})

	return router
}

// welcome handles requests to the root path
func (rt *Router) welcome(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message":"NoteFlow API is running","websocket":"/ws"}`))
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
