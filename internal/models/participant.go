package models

import "math/rand/v2"

// Participant represents one person in a session.
type Participant struct {
	// ID is the unique identifier for the participant (UUID format).
	ID string `json:"id"`

	// SessionID is the owning session.
	SessionID string `json:"session_id"`

	// Name is the display name chosen on join.
	Name string `json:"name"`

	// Color is a tag from Palette used to tint the participant's avatar.
	Color string `json:"color"`

	// IsOwner is true for the participant who created the session.
	// Set once at creation, never transferred.
	IsOwner bool `json:"is_owner"`

	// JoinedAt is the Unix timestamp when the participant joined.
	JoinedAt int64 `json:"joined_at"`
}

// Palette is the set of participant color tags.
var Palette = []string{
	"#ef4444", "#f97316", "#eab308", "#22c55e", "#14b8a6",
	"#3b82f6", "#6366f1", "#a855f7", "#ec4899", "#64748b",
}

// RandomColor picks a color tag from Palette.
func RandomColor() string {
	return Palette[rand.IntN(len(Palette))]
}
