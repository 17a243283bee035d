package notes

import (
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "noteflow-backend/pkg/errors"
)

// Styling bounds and defaults shared by the create and update paths.
const (
	DefaultTitle           = "Untitled"
	DefaultBackgroundColor = "#ffffff"
	DefaultFontSize        = 16
	MinFontSize            = 12
	MaxFontSize            = 28
	DefaultPositionX       = 100
	DefaultPositionY       = 100
)

// Position is a note's location on the canvas
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Styling holds a note's visual presentation
type Styling struct {
	BackgroundColor string `json:"backgroundColor"`
	FontSize        int    `json:"fontSize"`
}

// Note is a positioned, styled text unit in the graph
type Note struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Position  Position  `json:"position"`
	Styling   Styling   `json:"styling"`
	ImageURL  string    `json:"imageUrl"`
	Tags      []string  `json:"tags"`
	IsPinned  bool      `json:"isPinned"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NoteAttributes carries the client-supplied fields of a note. Nil pointers
// mean the field was omitted and resolves to its default. Both the create
// and the full-replace update path run through the same resolution so
// defaulting lives in exactly one place.
type NoteAttributes struct {
	Title           *string
	Content         string
	Position        *Position
	BackgroundColor *string
	FontSize        *int
	ImageURL        *string
	Tags            []string
	IsPinned        *bool
}

// NewNote creates a note from client attributes, resolving defaults and
// assigning an identifier and timestamps.
func NewNote(attrs NoteAttributes) (*Note, error) {
	now := time.Now()
	note := &Note{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := note.apply(attrs); err != nil {
		return nil, err
	}
	return note, nil
}

// Replace overwrites every mutable field from the given attributes.
// Omitted fields fall back to defaults, not to previous values.
func (n *Note) Replace(attrs NoteAttributes) error {
	if err := n.apply(attrs); err != nil {
		return err
	}
	n.touch()
	return nil
}

// TogglePin flips the pinned flag
func (n *Note) TogglePin() {
	n.IsPinned = !n.IsPinned
	n.touch()
}

// apply resolves attribute defaults onto the note. Content is the only
// required field.
func (n *Note) apply(attrs NoteAttributes) error {
	content := strings.TrimSpace(attrs.Content)
	if content == "" {
		return pkgerrors.NewValidationError("content is required")
	}

	title := DefaultTitle
	if attrs.Title != nil {
		if t := strings.TrimSpace(*attrs.Title); t != "" {
			title = t
		}
	}

	position := Position{X: DefaultPositionX, Y: DefaultPositionY}
	if attrs.Position != nil {
		position = *attrs.Position
	}

	backgroundColor := DefaultBackgroundColor
	if attrs.BackgroundColor != nil && *attrs.BackgroundColor != "" {
		backgroundColor = *attrs.BackgroundColor
	}

	fontSize := DefaultFontSize
	if attrs.FontSize != nil {
		fontSize = ClampFontSize(*attrs.FontSize)
	}

	imageURL := ""
	if attrs.ImageURL != nil {
		imageURL = *attrs.ImageURL
	}

	tags := make([]string, 0, len(attrs.Tags))
	for _, tag := range attrs.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	isPinned := false
	if attrs.IsPinned != nil {
		isPinned = *attrs.IsPinned
	}

	n.Title = title
	n.Content = content
	n.Position = position
	n.Styling = Styling{BackgroundColor: backgroundColor, FontSize: fontSize}
	n.ImageURL = imageURL
	n.Tags = tags
	n.IsPinned = isPinned
	return nil
}

// touch bumps UpdatedAt, keeping it strictly increasing even when the
// clock resolution makes two updates land on the same instant.
func (n *Note) touch() {
	now := time.Now()
	if !now.After(n.UpdatedAt) {
		now = n.UpdatedAt.Add(time.Nanosecond)
	}
	n.UpdatedAt = now
}

// ClampFontSize forces a font size into the allowed range
func ClampFontSize(size int) int {
	if size < MinFontSize {
		return MinFontSize
	}
	if size > MaxFontSize {
		return MaxFontSize
	}
	return size
}

// HasTag reports whether the note carries the given tag (exact match)
func (n *Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// MatchesSearch reports whether the title or content contains the term,
// case-insensitively.
func (n *Note) MatchesSearch(term string) bool {
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(n.Title), term) ||
		strings.Contains(strings.ToLower(n.Content), term)
}
