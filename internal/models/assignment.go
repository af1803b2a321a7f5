package models

// Assignment links an item to a participant with a share of its cost.
//
// For a fixed item, the share fractions of all its assignments sum to 1
// whenever at least one assignment exists. Shares are split equally:
// every assignee holds 1/assignee_count.
type Assignment struct {
	// ID is the unique identifier for the assignment (UUID format).
	ID string `json:"id"`

	// ItemID references the assigned item.
	ItemID string `json:"item_id"`

	// ParticipantID references the assignee.
	ParticipantID string `json:"participant_id"`

	// ShareFraction is in (0, 1].
	ShareFraction float64 `json:"share_fraction"`

	// CreatedAt is the Unix timestamp when the assignment was created.
	CreatedAt int64 `json:"created_at"`
}
