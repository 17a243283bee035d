package memory

import (
	"context"
	"sync"

	"noteflow-backend/application/ports"
	"noteflow-backend/domain/notes"
	pkgerrors "noteflow-backend/pkg/errors"
)

// NoteRepository provides an in-memory implementation of
// ports.NoteRepository, used in development mode and by tests.
type NoteRepository struct {
	mu    sync.RWMutex
	items map[string]notes.Note
}

// NewNoteRepository creates a new in-memory note repository
func NewNoteRepository() *NoteRepository {
	return &NoteRepository{
		items: make(map[string]notes.Note),
	}
}

// Save persists a note (create or full overwrite)
func (r *NoteRepository) Save(ctx context.Context, note *notes.Note) error {
	if note == nil || note.ID == "" {
		return pkgerrors.NewValidationError("note has no identifier")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[note.ID] = *note
	return nil
}

// GetByID retrieves a note by its ID
func (r *NoteRepository) GetByID(ctx context.Context, id string) (*notes.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("note")
	}

	copied := item
	return &copied, nil
}

// Delete removes a note
func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return pkgerrors.NewNotFoundError("note")
	}

	delete(r.items, id)
	return nil
}

// List retrieves every note
func (r *NoteRepository) List(ctx context.Context) ([]*notes.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*notes.Note, 0, len(r.items))
	for _, item := range r.items {
		copied := item
		result = append(result, &copied)
	}
	return result, nil
}

var _ ports.NoteRepository = (*NoteRepository)(nil)
