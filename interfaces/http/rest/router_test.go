package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"noteflow-backend/application/services"
	"noteflow-backend/domain/events"
	"noteflow-backend/domain/notes"
	"noteflow-backend/infrastructure/persistence/memory"
)

type nopBus struct{}

func (nopBus) Publish(ctx context.Context, event events.ChangeEvent) {}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	service := services.NewGraphService(
		memory.NewNoteRepository(),
		memory.NewConnectionRepository(),
		nopBus{},
		zap.NewNop(),
	)
	server := httptest.NewServer(NewRouter(service, nil, "", zap.NewNop()).Setup())
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeNote(t *testing.T, resp *http.Response) notes.Note {
	t.Helper()
	defer resp.Body.Close()
	var note notes.Note
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&note))
	return note
}

func createNote(t *testing.T, server *httptest.Server, body map[string]interface{}) notes.Note {
	t.Helper()
	resp := doJSON(t, http.MethodPost, server.URL+"/api/notes", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeNote(t, resp)
}

func TestCreateNote_AppliesDefaults(t *testing.T) {
	server := newTestServer(t)

	note := createNote(t, server, map[string]interface{}{"content": "hello world"})

	assert.NotEmpty(t, note.ID)
	assert.Equal(t, "Untitled", note.Title)
	assert.Equal(t, "hello world", note.Content)
	assert.Equal(t, 100.0, note.Position.X)
	assert.Equal(t, 100.0, note.Position.Y)
	assert.Equal(t, "#ffffff", note.Styling.BackgroundColor)
	assert.Equal(t, 16, note.Styling.FontSize)
	assert.False(t, note.IsPinned)
}

func TestCreateNote_MissingContentIsRejected(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/notes", map[string]interface{}{"title": "no body"})
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["error"])
	assert.Equal(t, float64(http.StatusBadRequest), body["code"])
	assert.NotEmpty(t, body["message"])
}

func TestGetNote_UnknownIDReturns404(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/notes/missing-id", nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateNote_ReplacesOmittedFieldsWithDefaults(t *testing.T) {
	server := newTestServer(t)

	note := createNote(t, server, map[string]interface{}{
		"title":   "styled",
		"content": "original",
		"styling": map[string]interface{}{"backgroundColor": "#ff0000", "fontSize": 22},
		"tags":    []string{"keep"},
	})

	resp := doJSON(t, http.MethodPut, server.URL+"/api/notes/"+note.ID, map[string]interface{}{
		"content": "replaced",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeNote(t, resp)

	assert.Equal(t, "replaced", updated.Content)
	assert.Equal(t, "Untitled", updated.Title)
	assert.Equal(t, "#ffffff", updated.Styling.BackgroundColor)
	assert.Equal(t, 16, updated.Styling.FontSize)
	assert.Empty(t, updated.Tags)
	assert.Equal(t, note.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(note.UpdatedAt))
}

func TestTogglePin_FlipsFlag(t *testing.T) {
	server := newTestServer(t)
	note := createNote(t, server, map[string]interface{}{"content": "pin me"})

	resp := doJSON(t, http.MethodPatch, server.URL+"/api/notes/"+note.ID+"/pin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decodeNote(t, resp).IsPinned)

	resp = doJSON(t, http.MethodPatch, server.URL+"/api/notes/"+note.ID+"/pin", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decodeNote(t, resp).IsPinned)
}

func TestListNotes_PinnedFilter(t *testing.T) {
	server := newTestServer(t)
	createNote(t, server, map[string]interface{}{"content": "plain"})
	pinned := createNote(t, server, map[string]interface{}{"content": "starred", "isPinned": true})

	resp := doJSON(t, http.MethodGet, server.URL+"/api/notes?pinned=true", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result []notes.Note
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.Len(t, result, 1)
	assert.Equal(t, pinned.ID, result[0].ID)
}

func TestDeleteNote_CascadesConnections(t *testing.T) {
	server := newTestServer(t)
	a := createNote(t, server, map[string]interface{}{"content": "a"})
	b := createNote(t, server, map[string]interface{}{"content": "b"})

	resp := doJSON(t, http.MethodPost, server.URL+"/api/connections", map[string]interface{}{
		"source": a.ID,
		"target": b.ID,
		"label":  "relates to",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, server.URL+"/api/notes/"+a.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, server.URL+"/api/connections", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var remaining []notes.Connection
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&remaining))
	assert.Empty(t, remaining)
}

func TestCreateConnection_UnknownEndpointIsRejected(t *testing.T) {
	server := newTestServer(t)
	a := createNote(t, server, map[string]interface{}{"content": "a"})

	resp := doJSON(t, http.MethodPost, server.URL+"/api/connections", map[string]interface{}{
		"source": a.ID,
		"target": "missing-note",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWelcomeAndHealth(t *testing.T) {
	server := newTestServer(t)

	resp := doJSON(t, http.MethodGet, server.URL+"/", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/health", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health["status"])
}
