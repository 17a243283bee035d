package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"noteflow-backend/application/services"
	pkgerrors "noteflow-backend/pkg/errors"
	"noteflow-backend/pkg/utils"
)

// ConnectionHandler handles connection-related HTTP requests
type ConnectionHandler struct {
	service *services.GraphService
	logger  *zap.Logger
}

// NewConnectionHandler creates a new connection handler
func NewConnectionHandler(service *services.GraphService, logger *zap.Logger) *ConnectionHandler {
	return &ConnectionHandler{
		service: service,
		logger:  logger,
	}
}

// CreateConnectionRequest represents the request body for creating a connection
type CreateConnectionRequest struct {
	Source       string  `json:"source" validate:"required"`
	Target       string  `json:"target" validate:"required"`
	SourceHandle *string `json:"sourceHandle,omitempty"`
	TargetHandle *string `json:"targetHandle,omitempty"`
	Label        string  `json:"label,omitempty" validate:"omitempty,max=100"`
}

// CreateConnection handles POST /api/connections
func (h *ConnectionHandler) CreateConnection(w http.ResponseWriter, r *http.Request) {
	var req CreateConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(h.logger, w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		respondError(h.logger, w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	conn, err := h.service.CreateConnection(r.Context(), req.Source, req.Target, req.SourceHandle, req.TargetHandle, req.Label)
	if err != nil {
		if !pkgerrors.IsValidation(err) {
			h.logger.Error("Failed to create connection",
				zap.String("source", req.Source),
				zap.String("target", req.Target),
				zap.Error(err),
			)
		}
		respondAppError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusCreated, conn)
}

// DeleteConnection handles DELETE /api/connections/{connectionID}
func (h *ConnectionHandler) DeleteConnection(w http.ResponseWriter, r *http.Request) {
	connectionID := chi.URLParam(r, "connectionID")
	if connectionID == "" {
		respondError(h.logger, w, http.StatusBadRequest, "Connection ID is required")
		return
	}

	if err := h.service.DeleteConnection(r.Context(), connectionID); err != nil {
		if !pkgerrors.IsNotFound(err) {
			h.logger.Error("Failed to delete connection",
				zap.String("connectionID", connectionID),
				zap.Error(err),
			)
		}
		respondAppError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, map[string]string{
		"message": "Connection deleted successfully",
		"id":      connectionID,
	})
}

// ListConnections handles GET /api/connections
func (h *ConnectionHandler) ListConnections(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ListConnections(r.Context())
	if err != nil {
		h.logger.Error("Failed to list connections", zap.Error(err))
		respondAppError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, result)
}
