package replica

import (
	"fmt"

	"github.com/mmynk/splitcheck/internal/models"
	"github.com/mmynk/splitcheck/internal/realtime"
)

// Apply merges one change event into the state.
//
// Session closure or deletion clears the state and reports Closed. Deletion
// of the local participant clears the state and reports Kicked. Assignment
// events are kept only when their item belongs to the local item set.
func (s *State) Apply(e realtime.Event) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recording {
		s.journal = append(s.journal, e)
	}
	return s.apply(e)
}

func (s *State) apply(e realtime.Event) (Outcome, error) {
	d := s.data
	if d.session != nil && e.SessionID != "" && e.SessionID != d.session.ID {
		return Continue, nil
	}

	switch e.Table {
	case realtime.TableSessions:
		return s.applySession(e)

	case realtime.TableParticipants:
		if e.Type == realtime.Delete {
			var old models.Participant
			if err := e.DecodeOld(&old); err != nil {
				return Continue, err
			}
			if old.ID == s.identity {
				s.data = newData()
				return Kicked, nil
			}
			d.removeParticipant(old.ID)
			return Continue, nil
		}
		var p models.Participant
		if err := e.DecodeNew(&p); err != nil {
			return Continue, err
		}
		if d.session != nil && p.SessionID != d.session.ID {
			return Continue, nil
		}
		d.participants[p.ID] = &p

	case realtime.TableItems:
		if e.Type == realtime.Delete {
			var old models.Item
			if err := e.DecodeOld(&old); err != nil {
				return Continue, err
			}
			d.removeItem(old.ID)
			return Continue, nil
		}
		var item models.Item
		if err := e.DecodeNew(&item); err != nil {
			return Continue, err
		}
		if d.session != nil && item.SessionID != d.session.ID {
			return Continue, nil
		}
		d.items[item.ID] = &item

	case realtime.TableAssignments:
		if e.Type == realtime.Delete {
			var old models.Assignment
			if err := e.DecodeOld(&old); err != nil {
				return Continue, err
			}
			if _, ok := d.items[old.ItemID]; ok {
				delete(d.assignments, old.ID)
			}
			return Continue, nil
		}
		var a models.Assignment
		if err := e.DecodeNew(&a); err != nil {
			return Continue, err
		}
		if _, ok := d.items[a.ItemID]; !ok {
			return Continue, nil
		}
		d.putAssignment(&a)

	default:
		return Continue, fmt.Errorf("unknown table %q", e.Table)
	}
	return Continue, nil
}

func (s *State) applySession(e realtime.Event) (Outcome, error) {
	if e.Type == realtime.Delete {
		s.data = newData()
		return Closed, nil
	}

	var session models.Session
	if err := e.DecodeNew(&session); err != nil {
		return Continue, err
	}
	if s.data.session != nil && session.ID != s.data.session.ID {
		return Continue, nil
	}
	if session.Status != models.StatusActive {
		s.data = newData()
		return Closed, nil
	}
	s.data.session = &session
	return Continue, nil
}
