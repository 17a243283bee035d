package events

import "time"

// Type identifies a change event fanned out to connected clients
type Type string

const (
	NoteAdded         Type = "note-added"
	NoteUpdated       Type = "note-updated"
	NoteDeleted       Type = "note-deleted"
	ConnectionAdded   Type = "connection-added"
	ConnectionDeleted Type = "connection-deleted"
)

// ChangeEvent is a committed graph mutation as observers see it. Data is
// the affected entity, or its identifier for deletions.
type ChangeEvent struct {
	Type      Type        `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// NewChangeEvent stamps an event with the current time
func NewChangeEvent(eventType Type, data interface{}) ChangeEvent {
	return ChangeEvent{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
}
