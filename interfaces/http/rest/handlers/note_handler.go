package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"noteflow-backend/application/services"
	"noteflow-backend/domain/notes"
	pkgerrors "noteflow-backend/pkg/errors"
	"noteflow-backend/pkg/utils"
)

// NoteHandler handles note-related HTTP requests
type NoteHandler struct {
	service *services.GraphService
	logger  *zap.Logger
}

// NewNoteHandler creates a new note handler
func NewNoteHandler(service *services.GraphService, logger *zap.Logger) *NoteHandler {
	return &NoteHandler{
		service: service,
		logger:  logger,
	}
}

// positionBody mirrors the note position wire shape
type positionBody struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// stylingBody mirrors the note styling wire shape
type stylingBody struct {
	BackgroundColor *string `json:"backgroundColor,omitempty"`
	FontSize        *int    `json:"fontSize,omitempty"`
}

// NoteRequest represents the request body for creating or replacing a note.
// Every field except content is optional and falls back to its default.
type NoteRequest struct {
	Title    *string       `json:"title,omitempty" validate:"omitempty,max=200"`
	Content  string        `json:"content" validate:"required"`
	Position *positionBody `json:"position,omitempty"`
	Styling  *stylingBody  `json:"styling,omitempty"`
	ImageURL *string       `json:"imageUrl,omitempty"`
	Tags     []string      `json:"tags,omitempty" validate:"omitempty,max=20,dive,max=50"`
	IsPinned *bool         `json:"isPinned,omitempty"`
}

func (req NoteRequest) attributes() notes.NoteAttributes {
	attrs := notes.NoteAttributes{
		Title:    req.Title,
		Content:  req.Content,
		ImageURL: req.ImageURL,
		Tags:     req.Tags,
		IsPinned: req.IsPinned,
	}
	if req.Position != nil {
		attrs.Position = &notes.Position{X: req.Position.X, Y: req.Position.Y}
	}
	if req.Styling != nil {
		attrs.BackgroundColor = req.Styling.BackgroundColor
		attrs.FontSize = req.Styling.FontSize
	}
	return attrs
}

// CreateNote handles POST /api/notes
func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(h.logger, w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		respondError(h.logger, w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	note, err := h.service.CreateNote(r.Context(), req.attributes())
	if err != nil {
		h.logger.Error("Failed to create note", zap.Error(err))
		respondAppError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusCreated, note)
}

// GetNote handles GET /api/notes/{noteID}
func (h *NoteHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	noteID := chi.URLParam(r, "noteID")
	if noteID == "" {
		respondError(h.logger, w, http.StatusBadRequest, "Note ID is required")
		return
	}

	note, err := h.service.GetNote(r.Context(), noteID)
	if err != nil {
		respondAppError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, note)
}

// UpdateNote handles PUT /api/notes/{noteID}. The request body fully
// replaces the stored note: omitted fields revert to their defaults
// rather than keeping their previous values.
func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	noteID := chi.URLParam(r, "noteID")
	if noteID == "" {
		respondError(h.logger, w, http.StatusBadRequest, "Note ID is required")
		return
	}

	var req NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(h.logger, w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		respondError(h.logger, w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	note, err := h.service.UpdateNote(r.Context(), noteID, req.attributes())
	if err != nil {
		if !pkgerrors.IsNotFound(err) && !pkgerrors.IsValidation(err) {
			h.logger.Error("Failed to update note",
				zap.String("noteID", noteID),
				zap.Error(err),
			)
		}
		respondAppError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{noteID}. Connections touching the
// note are removed with it.
func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	noteID := chi.URLParam(r, "noteID")
	if noteID == "" {
		respondError(h.logger, w, http.StatusBadRequest, "Note ID is required")
		return
	}

	if err := h.service.DeleteNote(r.Context(), noteID); err != nil {
		if !pkgerrors.IsNotFound(err) {
			h.logger.Error("Failed to delete note",
				zap.String("noteID", noteID),
				zap.Error(err),
			)
		}
		respondAppError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, map[string]string{
		"message": "Note deleted successfully",
		"id":      noteID,
	})
}

// TogglePin handles PATCH /api/notes/{noteID}/pin
func (h *NoteHandler) TogglePin(w http.ResponseWriter, r *http.Request) {
	noteID := chi.URLParam(r, "noteID")
	if noteID == "" {
		respondError(h.logger, w, http.StatusBadRequest, "Note ID is required")
		return
	}

	note, err := h.service.TogglePin(r.Context(), noteID)
	if err != nil {
		respondAppError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, note)
}

// ListNotes handles GET /api/notes
func (h *NoteHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := services.ListNotesFilter{
		Tag:    query.Get("tag"),
		Search: query.Get("search"),
		SortBy: query.Get("sortBy"),
		Order:  query.Get("order"),
	}
	if raw := query.Get("pinned"); raw != "" {
		pinned := raw == "true"
		filter.Pinned = &pinned
	}

	result, err := h.service.ListNotes(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list notes", zap.Error(err))
		respondAppError(h.logger, w, err)
		return
	}

	respondJSON(h.logger, w, http.StatusOK, result)
}

// Helpers shared by the handlers in this package

func respondJSON(logger *zap.Logger, w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

func respondError(logger *zap.Logger, w http.ResponseWriter, status int, message string) {
	respondJSON(logger, w, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}

// respondAppError maps a service error onto the wire via its error type
func respondAppError(logger *zap.Logger, w http.ResponseWriter, err error) {
	status := pkgerrors.HTTPStatusOf(err)
	message := err.Error()
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		message = appErr.Message
	}
	respondError(logger, w, status, message)
}
