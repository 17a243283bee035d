package ports

import (
	"context"

	"noteflow-backend/domain/events"
	"noteflow-backend/domain/notes"
)

// NoteRepository defines the interface for note persistence. The store is a
// plain document store: by-ID lookup, by-ID deletion, full scans. Filtering
// and ordering are the service's concern.
type NoteRepository interface {
	// Save persists a note (create or full overwrite)
	Save(ctx context.Context, note *notes.Note) error

	// GetByID retrieves a note by its ID; a NotFound error when absent
	GetByID(ctx context.Context, id string) (*notes.Note, error)

	// Delete removes a note; a NotFound error when absent
	Delete(ctx context.Context, id string) error

	// List retrieves every note
	List(ctx context.Context) ([]*notes.Note, error)
}

// ConnectionRepository defines the interface for connection persistence
type ConnectionRepository interface {
	// Save persists a connection
	Save(ctx context.Context, conn *notes.Connection) error

	// GetByID retrieves a connection by its ID; a NotFound error when absent
	GetByID(ctx context.Context, id string) (*notes.Connection, error)

	// Delete removes a connection; a NotFound error when absent
	Delete(ctx context.Context, id string) error

	// List retrieves every connection
	List(ctx context.Context) ([]*notes.Connection, error)

	// DeleteByNoteID removes every connection whose source or target is the
	// given note and returns the connections that were removed, so the
	// caller can announce each one.
	DeleteByNoteID(ctx context.Context, noteID string) ([]*notes.Connection, error)
}

// EventBus fans a committed change event out to every attached observer.
// Publishing never blocks and never fails the originating mutation; with no
// observers attached it is a no-op.
type EventBus interface {
	Publish(ctx context.Context, event events.ChangeEvent)
}

// Completer is the external generative-text capability: prompt in, text
// out, may fail.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
