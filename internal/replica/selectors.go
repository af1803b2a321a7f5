package replica

import (
	"sort"

	"github.com/mmynk/splitcheck/internal/calculator"
	"github.com/mmynk/splitcheck/internal/models"
)

// Session returns a copy of the session row, or nil when cleared.
func (s *State) Session() *models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.session == nil {
		return nil
	}
	session := *s.data.session
	return &session
}

// Participants returns the participants in join order.
func (s *State) Participants() []models.Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Participant, 0, len(s.data.participants))
	for _, p := range s.data.participants {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt != out[j].JoinedAt {
			return out[i].JoinedAt < out[j].JoinedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Items returns the items ordered by order index.
func (s *State) Items() []models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedItems(func(*models.Item) bool { return true })
}

// UnassignedItems returns the items nobody is assigned to.
func (s *State) UnassignedItems() []models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	assigned := make(map[string]bool)
	for _, a := range s.data.assignments {
		assigned[a.ItemID] = true
	}
	return s.sortedItems(func(i *models.Item) bool { return !assigned[i.ID] })
}

// ItemAssignments returns the assignments of one item.
func (s *State) ItemAssignments(itemID string) []models.Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Assignment
	for _, a := range s.data.itemAssignments(itemID) {
		out = append(out, *a)
	}
	return out
}

// ParticipantTotal returns what a participant owes including their share of
// tip and tax.
func (s *State) ParticipantTotal(participantID string) float64 {
	settlement := s.Settlement()
	if split, ok := settlement.People[participantID]; ok {
		return split.Total
	}
	return 0
}

// Settlement computes the session-wide breakdown from the local rows.
func (s *State) Settlement() *calculator.Settlement {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]calculator.Item, 0, len(s.data.items))
	for _, i := range s.data.items {
		items = append(items, calculator.Item{ID: i.ID, Description: i.Name, Amount: i.TotalPrice})
	}
	shares := make([]calculator.Share, 0, len(s.data.assignments))
	for _, a := range s.data.assignments {
		shares = append(shares, calculator.Share{ID: a.ID, ItemID: a.ItemID, ParticipantID: a.ParticipantID, Fraction: a.ShareFraction})
	}

	var tip, tax calculator.Charge
	if session := s.data.session; session != nil {
		tip = calculator.Charge{Kind: calculator.ChargeKind(session.TipType), Value: session.TipValue}
		tax = calculator.Charge{Kind: calculator.ChargeKind(session.TaxType), Value: session.TaxValue}
	}
	return calculator.Settle(items, shares, tip, tax)
}

func (s *State) sortedItems(keep func(*models.Item) bool) []models.Item {
	out := make([]models.Item, 0, len(s.data.items))
	for _, i := range s.data.items {
		if keep(i) {
			out = append(out, *i)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].OrderIndex != out[b].OrderIndex {
			return out[a].OrderIndex < out[b].OrderIndex
		}
		return out[a].ID < out[b].ID
	})
	return out
}
