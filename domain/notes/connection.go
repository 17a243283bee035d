package notes

import (
	"time"

	"github.com/google/uuid"

	pkgerrors "noteflow-backend/pkg/errors"
)

// Connection is a directed labeled link between two notes. Connections are
// immutable after creation; they are only ever created and deleted.
type Connection struct {
	ID           string    `json:"_id"`
	Source       string    `json:"source"`
	Target       string    `json:"target"`
	SourceHandle *string   `json:"sourceHandle"`
	TargetHandle *string   `json:"targetHandle"`
	Label        string    `json:"label"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewConnection creates a connection between two notes. Handles identify
// which anchor point on each note the edge attaches to; nil means the
// client left the anchor unspecified.
func NewConnection(source, target string, sourceHandle, targetHandle *string, label string) (*Connection, error) {
	if source == "" {
		return nil, pkgerrors.NewValidationError("source is required")
	}
	if target == "" {
		return nil, pkgerrors.NewValidationError("target is required")
	}
	return &Connection{
		ID:           uuid.New().String(),
		Source:       source,
		Target:       target,
		SourceHandle: sourceHandle,
		TargetHandle: targetHandle,
		Label:        label,
		CreatedAt:    time.Now(),
	}, nil
}

// References reports whether the connection touches the given note on
// either end.
func (c *Connection) References(noteID string) bool {
	return c.Source == noteID || c.Target == noteID
}
