package calculator

// TogglePlan describes the writes needed to toggle one participant on or off
// an item while keeping an equal split among the remaining assignees.
type TogglePlan struct {
	// RemoveID is the assignment to delete when toggling off. Empty when toggling on.
	RemoveID string

	// Insert is true when a new assignment must be created for the participant.
	Insert bool

	// Fraction is the share every resulting assignee holds (1/Count), or 0
	// when no assignees remain.
	Fraction float64

	// UpdateIDs are the pre-existing assignments whose fraction becomes Fraction.
	UpdateIDs []string

	// Count is the resulting number of assignees.
	Count int

	// Shared is true iff Count >= 2.
	Shared bool
}

// PlanToggle computes the toggle of participantID against the current
// assignments of a single item.
//
// If the participant is assigned, their assignment is removed and the rest
// are rebalanced to 1/remaining. Otherwise every existing assignment and the
// new one get 1/(count+1). With zero remaining assignees the item becomes
// unassigned and no fraction update is needed.
func PlanToggle(existing []Share, participantID string) TogglePlan {
	var plan TogglePlan
	for _, a := range existing {
		if a.ParticipantID == participantID && plan.RemoveID == "" {
			plan.RemoveID = a.ID
			continue
		}
		plan.UpdateIDs = append(plan.UpdateIDs, a.ID)
	}

	plan.Count = len(plan.UpdateIDs)
	if plan.RemoveID == "" {
		plan.Insert = true
		plan.Count++
	}
	if plan.Count > 0 {
		plan.Fraction = EqualShare(plan.Count)
	}
	plan.Shared = plan.Count >= 2
	return plan
}

// EqualShare returns the fraction each of n assignees holds.
func EqualShare(n int) float64 {
	if n <= 0 {
		return 0
	}
	return 1 / float64(n)
}
