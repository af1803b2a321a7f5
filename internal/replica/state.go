// Package replica keeps a client-side copy of one session's rows in sync
// with the realtime change feed.
package replica

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mmynk/splitcheck/internal/calculator"
	"github.com/mmynk/splitcheck/internal/models"
	"github.com/mmynk/splitcheck/internal/realtime"
)

// Outcome tells a follower how a change affected the local participant.
type Outcome int

const (
	// Continue means the session is still live for the local participant.
	Continue Outcome = iota
	// Closed means the session was finalized or deleted.
	Closed
	// Kicked means the local participant was removed from the session.
	Kicked
	// Disconnected means the change feed ended.
	Disconnected
)

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case Closed:
		return "closed"
	case Kicked:
		return "kicked"
	case Disconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Snapshot is a full copy of a session's rows.
type Snapshot struct {
	Session      *models.Session
	Participants []*models.Participant
	Items        []*models.Item
	Assignments  []*models.Assignment
}

type data struct {
	session      *models.Session
	participants map[string]*models.Participant
	items        map[string]*models.Item
	assignments  map[string]*models.Assignment
}

func newData() *data {
	return &data{
		participants: make(map[string]*models.Participant),
		items:        make(map[string]*models.Item),
		assignments:  make(map[string]*models.Assignment),
	}
}

func (d *data) clone() *data {
	c := newData()
	if d.session != nil {
		s := *d.session
		c.session = &s
	}
	for id, p := range d.participants {
		cp := *p
		c.participants[id] = &cp
	}
	for id, i := range d.items {
		ci := *i
		c.items[id] = &ci
	}
	for id, a := range d.assignments {
		ca := *a
		c.assignments[id] = &ca
	}
	return c
}

// State is the local replica of one session, owned by one participant.
// It is safe for concurrent use.
type State struct {
	identity string

	mu        sync.RWMutex
	data      *data
	recording bool
	journal   []realtime.Event

	// mutating serializes optimistic mutations.
	mutating sync.Mutex
}

// New creates an empty State for the participant identified by identity.
func New(identity string) *State {
	return &State{identity: identity, data: newData()}
}

// Identity returns the local participant ID.
func (s *State) Identity() string {
	return s.identity
}

// SetSnapshot replaces the whole state.
func (s *State) SetSnapshot(snap Snapshot) {
	d := newData()
	if snap.Session != nil {
		session := *snap.Session
		d.session = &session
	}
	for _, p := range snap.Participants {
		cp := *p
		d.participants[p.ID] = &cp
	}
	for _, i := range snap.Items {
		ci := *i
		d.items[i.ID] = &ci
	}
	for _, a := range snap.Assignments {
		if _, ok := d.items[a.ItemID]; !ok {
			continue
		}
		ca := *a
		d.assignments[a.ID] = &ca
	}

	s.mu.Lock()
	s.data = d
	s.mu.Unlock()
}

// Clear drops every row.
func (s *State) Clear() {
	s.mu.Lock()
	s.data = newData()
	s.mu.Unlock()
}

// Mutate applies local optimistically, then runs remote. If remote fails the
// state is rolled back to what it was before local, with any change events
// received in the meantime re-applied on top.
func (s *State) Mutate(ctx context.Context, local func(*State), remote func(context.Context) error) error {
	s.mutating.Lock()
	defer s.mutating.Unlock()

	s.mu.Lock()
	before := s.data.clone()
	s.recording = true
	s.journal = nil
	s.mu.Unlock()

	local(s)
	err := remote(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	journal := s.journal
	s.recording = false
	s.journal = nil

	if err == nil {
		return nil
	}
	s.data = before
	for _, e := range journal {
		s.apply(e)
	}
	return err
}

// PutItem inserts or replaces an item.
func (s *State) PutItem(item models.Item) {
	s.mu.Lock()
	s.data.items[item.ID] = &item
	s.mu.Unlock()
}

// RemoveItem deletes an item and its assignments.
func (s *State) RemoveItem(itemID string) {
	s.mu.Lock()
	s.data.removeItem(itemID)
	s.mu.Unlock()
}

// SetTaxTip updates the session's tip and tax configuration.
func (s *State) SetTaxTip(tipType models.TaxTipType, tipValue float64, taxType models.TaxTipType, taxValue float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.session == nil {
		return
	}
	s.data.session.TipType, s.data.session.TipValue = tipType, tipValue
	s.data.session.TaxType, s.data.session.TaxValue = taxType, taxValue
}

// ToggleAssignment toggles a participant on an item locally with the same
// equal-split rule the server applies. A newly inserted assignment carries a
// temporary ID until the server's insert event replaces it.
func (s *State) ToggleAssignment(itemID, participantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.data.items[itemID]
	if !ok {
		return
	}

	var shares []calculator.Share
	for _, a := range s.data.itemAssignments(itemID) {
		shares = append(shares, calculator.Share{ID: a.ID, ItemID: a.ItemID, ParticipantID: a.ParticipantID, Fraction: a.ShareFraction})
	}
	plan := calculator.PlanToggle(shares, participantID)

	if plan.RemoveID != "" {
		delete(s.data.assignments, plan.RemoveID)
	}
	for _, id := range plan.UpdateIDs {
		s.data.assignments[id].ShareFraction = plan.Fraction
	}
	if plan.Insert {
		id := "local-" + uuid.NewString()
		s.data.assignments[id] = &models.Assignment{
			ID:            id,
			ItemID:        itemID,
			ParticipantID: participantID,
			ShareFraction: plan.Fraction,
		}
	}
	item.IsShared = plan.Shared
}

func (d *data) removeItem(itemID string) {
	delete(d.items, itemID)
	for id, a := range d.assignments {
		if a.ItemID == itemID {
			delete(d.assignments, id)
		}
	}
}

func (d *data) removeParticipant(participantID string) {
	delete(d.participants, participantID)
	for id, a := range d.assignments {
		if a.ParticipantID == participantID {
			delete(d.assignments, id)
		}
	}
}

// putAssignment stores a, replacing any other row for the same pair.
func (d *data) putAssignment(a *models.Assignment) {
	for id, existing := range d.assignments {
		if id != a.ID && existing.ItemID == a.ItemID && existing.ParticipantID == a.ParticipantID {
			delete(d.assignments, id)
		}
	}
	d.assignments[a.ID] = a
}

func (d *data) itemAssignments(itemID string) []*models.Assignment {
	var out []*models.Assignment
	for _, a := range d.assignments {
		if a.ItemID == itemID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}
