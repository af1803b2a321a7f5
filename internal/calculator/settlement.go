package calculator

// Item represents a single billed line for settlement purposes.
type Item struct {
	ID          string
	Description string
	Amount      float64 // total price (unit price x quantity)
}

// Share is one assignment of an item to a participant.
type Share struct {
	ID            string
	ItemID        string
	ParticipantID string
	Fraction      float64
}

// PersonItem represents an item's share for one person.
type PersonItem struct {
	ItemID      string
	Description string
	Fraction    float64
	Amount      float64 // This person's share of the item
}

// PersonSplit represents the calculated settlement for one person.
type PersonSplit struct {
	Subtotal float64
	Tip      float64
	Tax      float64
	Total    float64
	Items    []PersonItem
}

// Settlement is the session-wide breakdown.
type Settlement struct {
	Totals

	// Unassigned is the summed price of items nobody is assigned to.
	// It is part of Subtotal but of no participant's share.
	Unassigned float64

	// UnassignedTotal is Unassigned plus its proportional tip and tax, so that
	// the sum of every person's Total plus UnassignedTotal equals Totals.Total.
	UnassignedTotal float64

	People map[string]*PersonSplit
}

// Settle computes every participant's final amount owed.
//
// person_subtotal = sum(item.amount * share.fraction) over the person's shares
// person_charge   = (person_subtotal / global_subtotal) * charge_amount
//
// The global subtotal counts every item regardless of assignment state. Tip
// and tax are computed against it; if it is zero, every proportional share of
// tip and tax is zero. Shares pointing at unknown items are ignored.
func Settle(items []Item, shares []Share, tip, tax Charge) *Settlement {
	byID := make(map[string]Item, len(items))
	var subtotal float64
	for _, item := range items {
		byID[item.ID] = item
		subtotal += item.Amount
	}

	s := &Settlement{
		Totals: CalculateTotals(subtotal, tip, tax),
		People: make(map[string]*PersonSplit),
	}

	assigned := make(map[string]bool, len(items))
	for _, share := range shares {
		item, ok := byID[share.ItemID]
		if !ok {
			continue
		}
		assigned[item.ID] = true

		split, ok := s.People[share.ParticipantID]
		if !ok {
			split = &PersonSplit{}
			s.People[share.ParticipantID] = split
		}
		amount := item.Amount * share.Fraction
		split.Subtotal += amount
		split.Items = append(split.Items, PersonItem{
			ItemID:      item.ID,
			Description: item.Description,
			Fraction:    share.Fraction,
			Amount:      amount,
		})
	}

	for _, item := range items {
		if !assigned[item.ID] {
			s.Unassigned += item.Amount
		}
	}

	for _, split := range s.People {
		split.Tip = proportion(split.Subtotal, subtotal, s.Tip)
		split.Tax = proportion(split.Subtotal, subtotal, s.Tax)
		split.Total = split.Subtotal + split.Tip + split.Tax
	}
	s.UnassignedTotal = s.Unassigned +
		proportion(s.Unassigned, subtotal, s.Tip) +
		proportion(s.Unassigned, subtotal, s.Tax)

	return s
}

// ParticipantTotal returns the final amount owed by one participant, or 0 if
// they hold no assignments.
func ParticipantTotal(participantID string, items []Item, shares []Share, tip, tax Charge) float64 {
	split, ok := Settle(items, shares, tip, tax).People[participantID]
	if !ok {
		return 0
	}
	return split.Total
}

func proportion(part, whole, amount float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * amount
}
