package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitcheck/internal/calculator"
	"github.com/mmynk/splitcheck/internal/models"
	"github.com/mmynk/splitcheck/internal/storage"
)

const assignmentColumns = "id, item_id, participant_id, share_fraction, created_at"

// ListAssignments returns every assignment of the session's items.
func (s *SQLiteStore) ListAssignments(ctx context.Context, sessionID string) ([]*models.Assignment, error) {
	return queryAssignments(ctx, s.db,
		`SELECT a.id, a.item_id, a.participant_id, a.share_fraction, a.created_at
		FROM assignments a JOIN items i ON i.id = a.item_id
		WHERE i.session_id = ?
		ORDER BY i.order_index, a.created_at, a.rowid`,
		sessionID,
	)
}

// ToggleAssignment adds the participant to the item if absent, removes them
// otherwise, and rebalances every remaining assignment to 1/count. The read,
// the writes and the is_shared update share one transaction.
func (s *SQLiteStore) ToggleAssignment(ctx context.Context, itemID, participantID string) (*storage.AssignmentChanges, error) {
	changes := &storage.AssignmentChanges{}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		item, err := getItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		participant, err := getParticipant(ctx, tx, participantID)
		if err != nil {
			return err
		}
		if participant.SessionID != item.SessionID {
			return fmt.Errorf("participant %s does not belong to session %s", participantID, item.SessionID)
		}

		existing, err := queryAssignments(ctx, tx,
			"SELECT "+assignmentColumns+" FROM assignments WHERE item_id = ? ORDER BY created_at, rowid", itemID)
		if err != nil {
			return err
		}

		byID := make(map[string]*models.Assignment, len(existing))
		shares := make([]calculator.Share, len(existing))
		for i, a := range existing {
			byID[a.ID] = a
			shares[i] = calculator.Share{ID: a.ID, ItemID: a.ItemID, ParticipantID: a.ParticipantID, Fraction: a.ShareFraction}
		}
		plan := calculator.PlanToggle(shares, participantID)

		if plan.RemoveID != "" {
			if _, err := tx.ExecContext(ctx, "DELETE FROM assignments WHERE id = ?", plan.RemoveID); err != nil {
				return fmt.Errorf("failed to delete assignment: %w", err)
			}
			changes.Deleted = append(changes.Deleted, byID[plan.RemoveID])
		}

		for _, id := range plan.UpdateIDs {
			if err := setFraction(ctx, tx, id, plan.Fraction); err != nil {
				return err
			}
			a := byID[id]
			a.ShareFraction = plan.Fraction
			changes.Updated = append(changes.Updated, a)
		}

		if plan.Insert {
			a := &models.Assignment{
				ID:            uuid.New().String(),
				ItemID:        itemID,
				ParticipantID: participantID,
				ShareFraction: plan.Fraction,
				CreatedAt:     time.Now().Unix(),
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO assignments ("+assignmentColumns+") VALUES (?, ?, ?, ?, ?)",
				a.ID, a.ItemID, a.ParticipantID, a.ShareFraction, a.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert assignment: %w", err)
			}
			changes.Inserted = append(changes.Inserted, a)
		}

		if err := setShared(ctx, tx, item, plan.Shared); err != nil {
			return err
		}
		changes.Items = append(changes.Items, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// rebalanceItem resets every assignment of an item to an equal share and
// recomputes its is_shared flag.
func rebalanceItem(ctx context.Context, tx *sql.Tx, itemID string) ([]*models.Assignment, *models.Item, error) {
	item, err := getItem(ctx, tx, itemID)
	if err != nil {
		return nil, nil, err
	}
	remaining, err := queryAssignments(ctx, tx,
		"SELECT "+assignmentColumns+" FROM assignments WHERE item_id = ? ORDER BY created_at, rowid", itemID)
	if err != nil {
		return nil, nil, err
	}

	fraction := calculator.EqualShare(len(remaining))
	for _, a := range remaining {
		if err := setFraction(ctx, tx, a.ID, fraction); err != nil {
			return nil, nil, err
		}
		a.ShareFraction = fraction
	}

	if err := setShared(ctx, tx, item, len(remaining) >= 2); err != nil {
		return nil, nil, err
	}
	return remaining, item, nil
}

func setFraction(ctx context.Context, tx *sql.Tx, assignmentID string, fraction float64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE assignments SET share_fraction = ? WHERE id = ?", fraction, assignmentID)
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	return nil
}

func setShared(ctx context.Context, tx *sql.Tx, item *models.Item, shared bool) error {
	_, err := tx.ExecContext(ctx, "UPDATE items SET is_shared = ? WHERE id = ?", shared, item.ID)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	item.IsShared = shared
	return nil
}

func queryAssignments(ctx context.Context, q querier, query string, args ...any) ([]*models.Assignment, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*models.Assignment
	for rows.Next() {
		var a models.Assignment
		if err := rows.Scan(&a.ID, &a.ItemID, &a.ParticipantID, &a.ShareFraction, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assignments: %w", err)
	}
	return assignments, nil
}
