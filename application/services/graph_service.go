package services

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"noteflow-backend/application/ports"
	"noteflow-backend/domain/events"
	"noteflow-backend/domain/notes"
	pkgerrors "noteflow-backend/pkg/errors"
)

// ListNotesFilter selects and orders notes for listing. Zero values mean
// "no constraint"; Pinned is a pointer so false can be asked for explicitly.
type ListNotesFilter struct {
	Tag    string
	Pinned *bool
	Search string
	SortBy string // createdAt or updatedAt; anything else falls back to createdAt
	Order  string // asc or desc, default desc
}

// GraphService owns the note and connection collections. It is the only
// writer of persisted graph state and the only producer of change events:
// each mutation publishes its event after, and only after, the repository
// write succeeds.
type GraphService struct {
	noteRepo ports.NoteRepository
	connRepo ports.ConnectionRepository
	bus      ports.EventBus
	logger   *zap.Logger
}

// NewGraphService creates a new graph service
func NewGraphService(
	noteRepo ports.NoteRepository,
	connRepo ports.ConnectionRepository,
	bus ports.EventBus,
	logger *zap.Logger,
) *GraphService {
	return &GraphService{
		noteRepo: noteRepo,
		connRepo: connRepo,
		bus:      bus,
		logger:   logger,
	}
}

// CreateNote creates a note from client attributes, applying defaults for
// omitted fields.
func (s *GraphService) CreateNote(ctx context.Context, attrs notes.NoteAttributes) (*notes.Note, error) {
	note, err := notes.NewNote(attrs)
	if err != nil {
		return nil, err
	}

	if err := s.noteRepo.Save(ctx, note); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.NewChangeEvent(events.NoteAdded, note))

	s.logger.Debug("Note created", zap.String("noteID", note.ID))
	return note, nil
}

// UpdateNote replaces all mutable fields of a note wholesale. Fields
// omitted from the request fall back to defaults, not to previous values.
func (s *GraphService) UpdateNote(ctx context.Context, id string, attrs notes.NoteAttributes) (*notes.Note, error) {
	note, err := s.noteRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := note.Replace(attrs); err != nil {
		return nil, err
	}

	if err := s.noteRepo.Save(ctx, note); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.NewChangeEvent(events.NoteUpdated, note))

	return note, nil
}

// DeleteNote removes a note and cascades to every connection referencing
// it on either end. Observers see note-deleted first, then one
// connection-deleted per cascaded connection. The two steps are separate
// writes, not a transaction; a crash in between leaves orphaned
// connections behind.
func (s *GraphService) DeleteNote(ctx context.Context, id string) error {
	if err := s.noteRepo.Delete(ctx, id); err != nil {
		return err
	}

	removed, err := s.connRepo.DeleteByNoteID(ctx, id)
	if err != nil {
		s.logger.Error("Cascade delete failed, connections may be orphaned",
			zap.String("noteID", id),
			zap.Error(err),
		)
		// The note itself is gone; announce what did commit
	}

	s.bus.Publish(ctx, events.NewChangeEvent(events.NoteDeleted, id))
	for _, conn := range removed {
		s.bus.Publish(ctx, events.NewChangeEvent(events.ConnectionDeleted, conn.ID))
	}

	s.logger.Debug("Note deleted",
		zap.String("noteID", id),
		zap.Int("cascadedConnections", len(removed)),
	)
	return err
}

// TogglePin flips a note's pinned flag
func (s *GraphService) TogglePin(ctx context.Context, id string) (*notes.Note, error) {
	note, err := s.noteRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	note.TogglePin()

	if err := s.noteRepo.Save(ctx, note); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.NewChangeEvent(events.NoteUpdated, note))

	return note, nil
}

// GetNote retrieves a single note
func (s *GraphService) GetNote(ctx context.Context, id string) (*notes.Note, error) {
	return s.noteRepo.GetByID(ctx, id)
}

// ListNotes lists notes matching the filter, ordered by the requested
// timestamp field (createdAt descending when unspecified).
func (s *GraphService) ListNotes(ctx context.Context, filter ListNotesFilter) ([]*notes.Note, error) {
	all, err := s.noteRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*notes.Note, 0, len(all))
	for _, note := range all {
		if filter.Tag != "" && !note.HasTag(filter.Tag) {
			continue
		}
		if filter.Pinned != nil && note.IsPinned != *filter.Pinned {
			continue
		}
		if filter.Search != "" && !note.MatchesSearch(filter.Search) {
			continue
		}
		result = append(result, note)
	}

	key := func(n *notes.Note) time.Time {
		if filter.SortBy == "updatedAt" {
			return n.UpdatedAt
		}
		return n.CreatedAt
	}
	ascending := filter.Order == "asc"
	sort.SliceStable(result, func(i, j int) bool {
		if ascending {
			return key(result[i]).Before(key(result[j]))
		}
		return key(result[i]).After(key(result[j]))
	})

	return result, nil
}

// CreateConnection links two existing notes. Both endpoints must resolve
// at the time of the check; the check and the insert are two separate
// store operations, so a concurrent delete of an endpoint can still slip
// a dangling connection in. Readers tolerate dangling endpoints.
func (s *GraphService) CreateConnection(ctx context.Context, source, target string, sourceHandle, targetHandle *string, label string) (*notes.Connection, error) {
	if err := s.requireNote(ctx, source); err != nil {
		return nil, err
	}
	if err := s.requireNote(ctx, target); err != nil {
		return nil, err
	}

	conn, err := notes.NewConnection(source, target, sourceHandle, targetHandle, label)
	if err != nil {
		return nil, err
	}

	if err := s.connRepo.Save(ctx, conn); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.NewChangeEvent(events.ConnectionAdded, conn))

	s.logger.Debug("Connection created",
		zap.String("connectionID", conn.ID),
		zap.String("source", source),
		zap.String("target", target),
	)
	return conn, nil
}

// DeleteConnection removes a single connection
func (s *GraphService) DeleteConnection(ctx context.Context, id string) error {
	if err := s.connRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.bus.Publish(ctx, events.NewChangeEvent(events.ConnectionDeleted, id))

	return nil
}

// ListConnections retrieves every connection
func (s *GraphService) ListConnections(ctx context.Context) ([]*notes.Connection, error) {
	return s.connRepo.List(ctx)
}

// requireNote turns a missing endpoint into a ValidationError, since from
// the connection's point of view a nonexistent note is bad input, not a
// missing resource.
func (s *GraphService) requireNote(ctx context.Context, id string) error {
	if _, err := s.noteRepo.GetByID(ctx, id); err != nil {
		if pkgerrors.IsNotFound(err) {
			return pkgerrors.NewValidationError("source or target note does not exist")
		}
		return err
	}
	return nil
}
