// Package realtime fans row-level change events out to the clients of a
// session.
package realtime

import (
	"encoding/json"
	"fmt"
)

// Table names the entity a change event refers to.
type Table string

const (
	TableSessions     Table = "sessions"
	TableParticipants Table = "participants"
	TableItems        Table = "items"
	TableAssignments  Table = "assignments"
)

// EventType is the kind of row change.
type EventType string

const (
	Insert EventType = "insert"
	Update EventType = "update"
	Delete EventType = "delete"
)

// Event is one row-level change. New carries the row image after an insert
// or update; Old carries it before an update or delete.
type Event struct {
	Table     Table           `json:"table"`
	Type      EventType       `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	New       json.RawMessage `json:"new,omitempty"`
	Old       json.RawMessage `json:"old,omitempty"`
}

// NewEvent encodes the row images of a change. Either row may be nil.
func NewEvent(table Table, typ EventType, sessionID string, newRow, oldRow any) (Event, error) {
	e := Event{Table: table, Type: typ, SessionID: sessionID}
	var err error
	if newRow != nil {
		if e.New, err = json.Marshal(newRow); err != nil {
			return Event{}, fmt.Errorf("marshal new row: %w", err)
		}
	}
	if oldRow != nil {
		if e.Old, err = json.Marshal(oldRow); err != nil {
			return Event{}, fmt.Errorf("marshal old row: %w", err)
		}
	}
	return e, nil
}

// DecodeNew unmarshals the new row image into v.
func (e Event) DecodeNew(v any) error {
	if len(e.New) == 0 {
		return fmt.Errorf("%s %s event has no new row", e.Table, e.Type)
	}
	return json.Unmarshal(e.New, v)
}

// DecodeOld unmarshals the old row image into v.
func (e Event) DecodeOld(v any) error {
	if len(e.Old) == 0 {
		return fmt.Errorf("%s %s event has no old row", e.Table, e.Type)
	}
	return json.Unmarshal(e.Old, v)
}

// Stream is a cancellable sequence of change events. C is closed when the
// stream ends, either by Close or by the underlying transport.
type Stream interface {
	C() <-chan Event
	Close()
}
