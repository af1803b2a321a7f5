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

// maxCodeAttempts bounds join-code generation when codes collide.
const maxCodeAttempts = 10

const sessionColumns = `id, short_code, name, status, receipt_image_url,
	tip_type, tip_value, tax_type, tax_value, created_at, expires_at`

// CreateSession persists a new session and its owner in one transaction.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *models.Session, owner *models.Participant) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if session.CreatedAt == 0 {
		session.CreatedAt = time.Now().Unix()
	}
	if session.Name == "" {
		session.Name = generateName(time.Unix(session.CreatedAt, 0))
	}
	if session.Status == "" {
		session.Status = models.StatusActive
	}
	if session.TipType == "" {
		session.TipType = models.TaxTipPercentage
	}
	if session.TaxType == "" {
		session.TaxType = models.TaxTipPercentage
	}

	owner.SessionID = session.ID
	owner.IsOwner = true

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if session.ShortCode == "" {
			code, err := uniqueCode(ctx, tx)
			if err != nil {
				return err
			}
			session.ShortCode = code
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			session.ID, session.ShortCode, session.Name, session.Status, session.ReceiptImageURL,
			session.TipType, session.TipValue, session.TaxType, session.TaxValue,
			session.CreatedAt, session.ExpiresAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}

		return insertParticipant(ctx, tx, owner)
	})
}

// uniqueCode generates a join code not used by any existing session.
func uniqueCode(ctx context.Context, q querier) (string, error) {
	for range maxCodeAttempts {
		code, err := models.GenerateCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		var exists int
		err = q.QueryRowContext(ctx, "SELECT 1 FROM sessions WHERE short_code = ?", code).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check code: %w", err)
		}
	}
	return "", fmt.Errorf("failed to generate a unique code after %d attempts", maxCodeAttempts)
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, sessionID)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", sessionID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// GetSessionByCode retrieves a session by its join code.
func (s *SQLiteStore) GetSessionByCode(ctx context.Context, code string) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE short_code = ?`, code)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session code %s: %w", code, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session by code: %w", err)
	}
	return session, nil
}

// UpdateSessionStatus performs a compare-and-set on the session status.
func (s *SQLiteStore) UpdateSessionStatus(ctx context.Context, sessionID string, from, to models.SessionStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET status = ? WHERE id = ? AND status = ?",
		to, sessionID, from,
	)
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}

	// Distinguish a missing session from a stale status.
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return err
	}
	return fmt.Errorf("session %s is not %s: %w", sessionID, from, storage.ErrConflict)
}

// UpdateTaxTip persists the tip and tax configuration.
func (s *SQLiteStore) UpdateTaxTip(ctx context.Context, session *models.Session) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET tip_type = ?, tip_value = ?, tax_type = ?, tax_value = ? WHERE id = ?",
		session.TipType, session.TipValue, session.TaxType, session.TaxValue, session.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update tax and tip: %w", err)
	}
	return checkAffected(res, "session", session.ID)
}

// SetReceiptImage stores the receipt image reference.
func (s *SQLiteStore) SetReceiptImage(ctx context.Context, sessionID, url string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET receipt_image_url = ? WHERE id = ?", url, sessionID)
	if err != nil {
		return fmt.Errorf("failed to set receipt image: %w", err)
	}
	return checkAffected(res, "session", sessionID)
}

// DeleteSession removes a session; participants, items and assignments cascade.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return checkAffected(res, "session", sessionID)
}

func scanSession(row scanner) (*models.Session, error) {
	var (
		session models.Session
		image   sql.NullString
		expires sql.NullInt64
	)
	err := row.Scan(
		&session.ID, &session.ShortCode, &session.Name, &session.Status, &image,
		&session.TipType, &session.TipValue, &session.TaxType, &session.TaxValue,
		&session.CreatedAt, &expires,
	)
	if err != nil {
		return nil, err
	}
	session.ReceiptImageURL = nullString(image)
	session.ExpiresAt = nullInt(expires)
	return &session, nil
}

// generateName creates a display name for a session created without one.
func generateName(createdAt time.Time) string {
	return fmt.Sprintf("Bill - %s", createdAt.Format("Jan 2, 2006"))
}
