package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitcheck/internal/models"
	"github.com/mmynk/splitcheck/internal/storage"
)

const participantColumns = "id, session_id, name, color, is_owner, joined_at"

// AddParticipant adds a participant to an existing session.
func (s *SQLiteStore) AddParticipant(ctx context.Context, participant *models.Participant) error {
	return insertParticipant(ctx, s.db, participant)
}

func insertParticipant(ctx context.Context, q querier, p *models.Participant) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.JoinedAt == 0 {
		p.JoinedAt = time.Now().Unix()
	}
	if p.Color == "" {
		p.Color = models.RandomColor()
	}

	_, err := q.ExecContext(ctx,
		"INSERT INTO participants ("+participantColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		p.ID, p.SessionID, p.Name, p.Color, p.IsOwner, p.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert participant: %w", err)
	}
	return nil
}

// GetParticipant retrieves a participant by ID.
func (s *SQLiteStore) GetParticipant(ctx context.Context, participantID string) (*models.Participant, error) {
	return getParticipant(ctx, s.db, participantID)
}

func getParticipant(ctx context.Context, q querier, participantID string) (*models.Participant, error) {
	var p models.Participant
	err := q.QueryRowContext(ctx,
		"SELECT "+participantColumns+" FROM participants WHERE id = ?", participantID,
	).Scan(&p.ID, &p.SessionID, &p.Name, &p.Color, &p.IsOwner, &p.JoinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("participant %s: %w", participantID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return &p, nil
}

// ListParticipants returns a session's participants in join order.
func (s *SQLiteStore) ListParticipants(ctx context.Context, sessionID string) ([]*models.Participant, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+participantColumns+" FROM participants WHERE session_id = ? ORDER BY joined_at, rowid",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []*models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.SessionID, &p.Name, &p.Color, &p.IsOwner, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return participants, nil
}

// DeleteParticipant removes a participant. Each item they were assigned to
// has its remaining assignees rebalanced to an equal share.
func (s *SQLiteStore) DeleteParticipant(ctx context.Context, participantID string) (*storage.AssignmentChanges, error) {
	changes := &storage.AssignmentChanges{}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		held, err := queryAssignments(ctx, tx,
			"SELECT "+assignmentColumns+" FROM assignments WHERE participant_id = ?", participantID)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, "DELETE FROM participants WHERE id = ?", participantID)
		if err != nil {
			return fmt.Errorf("failed to delete participant: %w", err)
		}
		if err := checkAffected(res, "participant", participantID); err != nil {
			return err
		}
		changes.Deleted = held

		for _, a := range held {
			updated, item, err := rebalanceItem(ctx, tx, a.ItemID)
			if err != nil {
				return err
			}
			changes.Updated = append(changes.Updated, updated...)
			changes.Items = append(changes.Items, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}
