// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/splitcheck/internal/models"
)

var (
	// ErrNotFound is returned when a session, participant, item or assignment
	// does not exist. Implementations wrap it with context.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a conditional write loses against the
	// current row state, e.g. a status transition from a stale status.
	ErrConflict = errors.New("conflict")
)

// AssignmentChanges lists every row touched by an assignment-set change so
// callers can publish one change event per row.
type AssignmentChanges struct {
	Inserted []*models.Assignment
	Updated  []*models.Assignment
	Deleted  []*models.Assignment

	// Items are the items whose is_shared flag was recomputed.
	Items []*models.Item
}

// Store defines the interface for session storage operations.
// This abstraction allows swapping storage backends without changing the
// service layer.
type Store interface {
	// CreateSession persists a new session together with its owner.
	// IDs, the join code and timestamps are populated by the store when empty.
	CreateSession(ctx context.Context, session *models.Session, owner *models.Participant) error

	// GetSession retrieves a session by its ID.
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)

	// GetSessionByCode retrieves a session by its join code.
	GetSessionByCode(ctx context.Context, code string) (*models.Session, error)

	// UpdateSessionStatus moves a session from one status to another.
	// Returns ErrConflict if the session is no longer in status from.
	UpdateSessionStatus(ctx context.Context, sessionID string, from, to models.SessionStatus) error

	// UpdateTaxTip persists the session's tip and tax configuration.
	UpdateTaxTip(ctx context.Context, session *models.Session) error

	// SetReceiptImage stores the receipt image reference on the session.
	SetReceiptImage(ctx context.Context, sessionID, url string) error

	// DeleteSession removes a session and, by cascade, everything it owns.
	DeleteSession(ctx context.Context, sessionID string) error

	// AddParticipant adds a non-owner participant to a session.
	AddParticipant(ctx context.Context, participant *models.Participant) error

	// GetParticipant retrieves a participant by ID.
	GetParticipant(ctx context.Context, participantID string) (*models.Participant, error)

	// ListParticipants returns a session's participants in join order.
	ListParticipants(ctx context.Context, sessionID string) ([]*models.Participant, error)

	// DeleteParticipant removes a participant and rebalances the remaining
	// assignees of every item they were assigned to.
	DeleteParticipant(ctx context.Context, participantID string) (*AssignmentChanges, error)

	// CreateItems inserts items in one batch. Order indexes continue after
	// the session's existing items; total prices are derived.
	CreateItems(ctx context.Context, sessionID string, items []*models.Item) error

	// GetItem retrieves an item by ID.
	GetItem(ctx context.Context, itemID string) (*models.Item, error)

	// ListItems returns a session's items ordered by order index.
	ListItems(ctx context.Context, sessionID string) ([]*models.Item, error)

	// UpdateItem persists name, quantity and unit price, deriving the total.
	UpdateItem(ctx context.Context, item *models.Item) error

	// DeleteItem removes an item and, by cascade, its assignments.
	DeleteItem(ctx context.Context, itemID string) error

	// ListAssignments returns every assignment of the session's items.
	ListAssignments(ctx context.Context, sessionID string) ([]*models.Assignment, error)

	// ToggleAssignment adds or removes a participant from an item and
	// rebalances every remaining assignment to an equal share, atomically.
	ToggleAssignment(ctx context.Context, itemID, participantID string) (*AssignmentChanges, error)

	// Close releases any resources held by the store.
	Close() error
}
