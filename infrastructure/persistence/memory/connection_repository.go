package memory

import (
	"context"
	"sync"

	"noteflow-backend/application/ports"
	"noteflow-backend/domain/notes"
	pkgerrors "noteflow-backend/pkg/errors"
)

// ConnectionRepository provides an in-memory implementation of
// ports.ConnectionRepository.
type ConnectionRepository struct {
	mu    sync.RWMutex
	items map[string]notes.Connection
}

// NewConnectionRepository creates a new in-memory connection repository
func NewConnectionRepository() *ConnectionRepository {
	return &ConnectionRepository{
		items: make(map[string]notes.Connection),
	}
}

// Save persists a connection
func (r *ConnectionRepository) Save(ctx context.Context, conn *notes.Connection) error {
	if conn == nil || conn.ID == "" {
		return pkgerrors.NewValidationError("connection has no identifier")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[conn.ID] = *conn
	return nil
}

// GetByID retrieves a connection by its ID
func (r *ConnectionRepository) GetByID(ctx context.Context, id string) (*notes.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("connection")
	}

	copied := item
	return &copied, nil
}

// Delete removes a connection
func (r *ConnectionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return pkgerrors.NewNotFoundError("connection")
	}

	delete(r.items, id)
	return nil
}

// List retrieves every connection
func (r *ConnectionRepository) List(ctx context.Context) ([]*notes.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*notes.Connection, 0, len(r.items))
	for _, item := range r.items {
		copied := item
		result = append(result, &copied)
	}
	return result, nil
}

// DeleteByNoteID removes every connection referencing the note on either end
func (r *ConnectionRepository) DeleteByNoteID(ctx context.Context, noteID string) ([]*notes.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []*notes.Connection
	for id, item := range r.items {
		if item.References(noteID) {
			copied := item
			removed = append(removed, &copied)
			delete(r.items, id)
		}
	}
	return removed, nil
}

var _ ports.ConnectionRepository = (*ConnectionRepository)(nil)
