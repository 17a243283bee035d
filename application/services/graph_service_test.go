package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"noteflow-backend/domain/events"
	"noteflow-backend/domain/notes"
	"noteflow-backend/infrastructure/persistence/memory"
	pkgerrors "noteflow-backend/pkg/errors"
)

// recordingBus captures published events in order
type recordingBus struct {
	mu     sync.Mutex
	events []events.ChangeEvent
}

func (b *recordingBus) Publish(ctx context.Context, event events.ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) Events() []events.ChangeEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]events.ChangeEvent(nil), b.events...)
}

func newTestService(t *testing.T) (*GraphService, *recordingBus) {
	t.Helper()
	bus := &recordingBus{}
	svc := NewGraphService(
		memory.NewNoteRepository(),
		memory.NewConnectionRepository(),
		bus,
		zap.NewNop(),
	)
	return svc, bus
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
func boolPtr(b bool) *bool    { return &b }

func TestCreateNote_AppliesDefaults(t *testing.T) {
	ctx := context.Background()
	svc, bus := newTestService(t)

	note, err := svc.CreateNote(ctx, notes.NoteAttributes{
		Title:   strPtr("T"),
		Content: "C",
		Tags:    []string{"a", "b"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, note.ID)

	stored, err := svc.GetNote(ctx, note.ID)
	require.NoError(t, err)

	assert.Equal(t, "T", stored.Title)
	assert.Equal(t, "C", stored.Content)
	assert.Equal(t, []string{"a", "b"}, stored.Tags)
	assert.Equal(t, notes.Position{X: 100, Y: 100}, stored.Position)
	assert.Equal(t, notes.Styling{BackgroundColor: "#ffffff", FontSize: 16}, stored.Styling)
	assert.Empty(t, stored.ImageURL)
	assert.False(t, stored.IsPinned)
	assert.False(t, stored.CreatedAt.IsZero())
	assert.False(t, stored.UpdatedAt.Before(stored.CreatedAt))

	recorded := bus.Events()
	require.Len(t, recorded, 1)
	assert.Equal(t, events.NoteAdded, recorded[0].Type)
}

func TestCreateNote_MissingContent(t *testing.T) {
	ctx := context.Background()
	svc, bus := newTestService(t)

	_, err := svc.CreateNote(ctx, notes.NoteAttributes{Content: "   "})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))

	listed, err := svc.ListNotes(ctx, ListNotesFilter{})
	require.NoError(t, err)
	assert.Empty(t, listed)
	assert.Empty(t, bus.Events())
}

func TestCreateNote_FontSizeClamped(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	cases := []struct {
		input    int
		expected int
	}{
		{input: 5, expected: 12},
		{input: 12, expected: 12},
		{input: 20, expected: 20},
		{input: 28, expected: 28},
		{input: 99, expected: 28},
	}

	for _, tc := range cases {
		note, err := svc.CreateNote(ctx, notes.NoteAttributes{
			Content:  "clamp test",
			FontSize: intPtr(tc.input),
		})
		require.NoError(t, err)
		assert.Equal(t, tc.expected, note.Styling.FontSize, "fontSize %d", tc.input)
	}
}

func TestUpdateNote_FullReplaceSemantics(t *testing.T) {
	ctx := context.Background()
	svc, bus := newTestService(t)

	note, err := svc.CreateNote(ctx, notes.NoteAttributes{
		Title:           strPtr("custom title"),
		Content:         "original",
		Position:        &notes.Position{X: 5, Y: 7},
		BackgroundColor: strPtr("#000000"),
		FontSize:        intPtr(24),
		ImageURL:        strPtr("http://img"),
		Tags:            []string{"keep"},
		IsPinned:        boolPtr(true),
	})
	require.NoError(t, err)

	// Update with content only: every omitted field resets to its default
	updated, err := svc.UpdateNote(ctx, note.ID, notes.NoteAttributes{Content: "replaced"})
	require.NoError(t, err)

	assert.Equal(t, "replaced", updated.Content)
	assert.Equal(t, notes.DefaultTitle, updated.Title)
	assert.Equal(t, notes.Position{X: 100, Y: 100}, updated.Position)
	assert.Equal(t, notes.Styling{BackgroundColor: "#ffffff", FontSize: 16}, updated.Styling)
	assert.Empty(t, updated.ImageURL)
	assert.Empty(t, updated.Tags)
	assert.False(t, updated.IsPinned)

	assert.Equal(t, note.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(note.CreatedAt))

	recorded := bus.Events()
	require.Len(t, recorded, 2)
	assert.Equal(t, events.NoteUpdated, recorded[1].Type)
}

func TestUpdateNote_MissingContentLeavesNoteUnchanged(t *testing.T) {
	ctx := context.Background()
	svc, bus := newTestService(t)

	note, err := svc.CreateNote(ctx, notes.NoteAttributes{
		Title:   strPtr("before"),
		Content: "unchanged",
	})
	require.NoError(t, err)

	_, err = svc.UpdateNote(ctx, note.ID, notes.NoteAttributes{
		Title:   strPtr("after"),
		Content: "",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))

	stored, err := svc.GetNote(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "before", stored.Title)
	assert.Equal(t, "unchanged", stored.Content)
	assert.Equal(t, note.UpdatedAt, stored.UpdatedAt)

	require.Len(t, bus.Events(), 1) // only the create event
}

func TestUpdateNote_NotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.UpdateNote(ctx, "missing", notes.NoteAttributes{Content: "x"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestTogglePin(t *testing.T) {
	ctx := context.Background()
	svc, bus := newTestService(t)

	note, err := svc.CreateNote(ctx, notes.NoteAttributes{Content: "pin me"})
	require.NoError(t, err)
	require.False(t, note.IsPinned)

	pinned, err := svc.TogglePin(ctx, note.ID)
	require.NoError(t, err)
	assert.True(t, pinned.IsPinned)
	assert.True(t, pinned.UpdatedAt.After(note.CreatedAt))

	unpinned, err := svc.TogglePin(ctx, note.ID)
	require.NoError(t, err)
	assert.False(t, unpinned.IsPinned)

	recorded := bus.Events()
	require.Len(t, recorded, 3)
	assert.Equal(t, events.NoteUpdated, recorded[1].Type)
	assert.Equal(t, events.NoteUpdated, recorded[2].Type)

	_, err = svc.TogglePin(ctx, "missing")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestDeleteNote_CascadesConnections(t *testing.T) {
	ctx := context.Background()
	svc, bus := newTestService(t)

	a, err := svc.CreateNote(ctx, notes.NoteAttributes{Content: "a"})
	require.NoError(t, err)
	b, err := svc.CreateNote(ctx, notes.NoteAttributes{Content: "b"})
	require.NoError(t, err)
	c, err := svc.CreateNote(ctx, notes.NoteAttributes{Content: "c"})
	require.NoError(t, err)

	ab, err := svc.CreateConnection(ctx, a.ID, b.ID, nil, nil, "")
	require.NoError(t, err)
	ca, err := svc.CreateConnection(ctx, c.ID, a.ID, nil, nil, "")
	require.NoError(t, err)
	bc, err := svc.CreateConnection(ctx, b.ID, c.ID, nil, nil, "")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteNote(ctx, a.ID))

	remaining, err := svc.ListConnections(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, bc.ID, remaining[0].ID)

	_, err = svc.GetNote(ctx, a.ID)
	assert.True(t, pkgerrors.IsNotFound(err))

	// The cascade announces note-deleted first, then one
	// connection-deleted per removed connection.
	recorded := bus.Events()
	require.Len(t, recorded, 9) // 3 creates + 3 connects + 1 note-deleted + 2 connection-deleted
	assert.Equal(t, events.NoteDeleted, recorded[6].Type)
	assert.Equal(t, a.ID, recorded[6].Data)
	assert.Equal(t, events.ConnectionDeleted, recorded[7].Type)
	assert.Equal(t, events.ConnectionDeleted, recorded[8].Type)
	deletedIDs := []interface{}{recorded[7].Data, recorded[8].Data}
	assert.ElementsMatch(t, []interface{}{ab.ID, ca.ID}, deletedIDs)
}

func TestDeleteNote_NotFound(t *testing.T) {
	ctx := context.Background()
	svc, bus := newTestService(t)

	err := svc.DeleteNote(ctx, "missing")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.Empty(t, bus.Events())
}

func TestCreateConnection_MissingEndpoint(t *testing.T) {
	ctx := context.Background()
	svc, bus := newTestService(t)

	note, err := svc.CreateNote(ctx, notes.NoteAttributes{Content: "only one"})
	require.NoError(t, err)

	_, err = svc.CreateConnection(ctx, note.ID, "missing", nil, nil, "")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = svc.CreateConnection(ctx, "missing", note.ID, nil, nil, "")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))

	conns, err := svc.ListConnections(ctx)
	require.NoError(t, err)
	assert.Empty(t, conns)

	require.Len(t, bus.Events(), 1) // only the note create event
}

func TestCreateConnection_Success(t *testing.T) {
	ctx := context.Background()
	svc, bus := newTestService(t)

	a, err := svc.CreateNote(ctx, notes.NoteAttributes{Content: "a"})
	require.NoError(t, err)
	b, err := svc.CreateNote(ctx, notes.NoteAttributes{Content: "b"})
	require.NoError(t, err)

	conn, err := svc.CreateConnection(ctx, a.ID, b.ID, strPtr("right"), nil, "relates to")
	require.NoError(t, err)
	assert.NotEmpty(t, conn.ID)
	assert.Equal(t, a.ID, conn.Source)
	assert.Equal(t, b.ID, conn.Target)
	require.NotNil(t, conn.SourceHandle)
	assert.Equal(t, "right", *conn.SourceHandle)
	assert.Nil(t, conn.TargetHandle)
	assert.Equal(t, "relates to", conn.Label)
	assert.False(t, conn.CreatedAt.IsZero())

	recorded := bus.Events()
	require.Len(t, recorded, 3)
	assert.Equal(t, events.ConnectionAdded, recorded[2].Type)
}

func TestDeleteConnection(t *testing.T) {
	ctx := context.Background()
	svc, bus := newTestService(t)

	a, _ := svc.CreateNote(ctx, notes.NoteAttributes{Content: "a"})
	b, _ := svc.CreateNote(ctx, notes.NoteAttributes{Content: "b"})
	conn, err := svc.CreateConnection(ctx, a.ID, b.ID, nil, nil, "")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteConnection(ctx, conn.ID))

	err = svc.DeleteConnection(ctx, conn.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))

	recorded := bus.Events()
	require.Len(t, recorded, 4)
	assert.Equal(t, events.ConnectionDeleted, recorded[3].Type)
	assert.Equal(t, conn.ID, recorded[3].Data)
}

func TestListNotes_Filters(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mk := func(title, content string, tags []string, pinned bool, offset time.Duration) *notes.Note {
		note, err := svc.CreateNote(ctx, notes.NoteAttributes{
			Title:    strPtr(title),
			Content:  content,
			Tags:     tags,
			IsPinned: boolPtr(pinned),
		})
		require.NoError(t, err)
		// Pin timestamps down so ordering assertions are deterministic
		note.CreatedAt = base.Add(offset)
		note.UpdatedAt = base.Add(offset)
		require.NoError(t, svc.noteRepo.Save(ctx, note))
		return note
	}

	first := mk("Foo plans", "nothing here", []string{"work"}, false, 0)
	second := mk("Groceries", "buy FOOd", []string{"home"}, true, time.Minute)
	third := mk("Reading list", "novels", []string{"home", "work"}, false, 2*time.Minute)

	t.Run("search matches title or content case-insensitively", func(t *testing.T) {
		found, err := svc.ListNotes(ctx, ListNotesFilter{Search: "foo"})
		require.NoError(t, err)
		require.Len(t, found, 2)
		// Default order: createdAt descending
		assert.Equal(t, second.ID, found[0].ID)
		assert.Equal(t, first.ID, found[1].ID)
	})

	t.Run("tag filter is an exact match", func(t *testing.T) {
		found, err := svc.ListNotes(ctx, ListNotesFilter{Tag: "home"})
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, third.ID, found[0].ID)
		assert.Equal(t, second.ID, found[1].ID)

		found, err = svc.ListNotes(ctx, ListNotesFilter{Tag: "hom"})
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("pinned filter", func(t *testing.T) {
		found, err := svc.ListNotes(ctx, ListNotesFilter{Pinned: boolPtr(true)})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, second.ID, found[0].ID)

		found, err = svc.ListNotes(ctx, ListNotesFilter{Pinned: boolPtr(false)})
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})

	t.Run("ascending order", func(t *testing.T) {
		found, err := svc.ListNotes(ctx, ListNotesFilter{Order: "asc"})
		require.NoError(t, err)
		require.Len(t, found, 3)
		assert.Equal(t, first.ID, found[0].ID)
		assert.Equal(t, third.ID, found[2].ID)
	})

	t.Run("unrecognized sortBy falls back to createdAt", func(t *testing.T) {
		found, err := svc.ListNotes(ctx, ListNotesFilter{SortBy: "bogus"})
		require.NoError(t, err)
		require.Len(t, found, 3)
		assert.Equal(t, third.ID, found[0].ID)
	})

	t.Run("sort by updatedAt", func(t *testing.T) {
		bumped, err := svc.UpdateNote(ctx, first.ID, notes.NoteAttributes{Content: "touched"})
		require.NoError(t, err)
		require.True(t, bumped.UpdatedAt.After(third.UpdatedAt))

		found, err := svc.ListNotes(ctx, ListNotesFilter{SortBy: "updatedAt"})
		require.NoError(t, err)
		require.Len(t, found, 3)
		assert.Equal(t, first.ID, found[0].ID)
	})
}
