package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/reliefnet/reliefnet/internal/services/relief/domain"
	"github.com/reliefnet/reliefnet/internal/services/relief/storage"
)

// RecordReconcileAttempt appends one reconciliation decision.
func (s *Store) RecordReconcileAttempt(ctx context.Context, attempt storage.ReconcileAttempt) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	donationID := strings.TrimSpace(attempt.DonationID)
	if donationID == "" {
		return fmt.Errorf("donation id is required")
	}
	if attempt.Outcome == "" {
		return fmt.Errorf("outcome is required")
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO reconcile_attempts (donation_id, outcome, reason, detail, confirmations, attempted_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		donationID,
		string(attempt.Outcome),
		string(attempt.Reason),
		attempt.Detail,
		attempt.Confirmations,
		toMillis(attempt.AttemptedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("record reconcile attempt: %w", err)
	}
	return nil
}

// ListReconcileAttempts returns the audit log of one donation, oldest first.
func (s *Store) ListReconcileAttempts(ctx context.Context, donationID string) ([]storage.ReconcileAttempt, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, donation_id, outcome, reason, detail, confirmations, attempted_at
		   FROM reconcile_attempts
		  WHERE donation_id = ?
		  ORDER BY id`,
		strings.TrimSpace(donationID),
	)
	if err != nil {
		return nil, fmt.Errorf("list reconcile attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]storage.ReconcileAttempt, 0)
	for rows.Next() {
		var (
			attempt     storage.ReconcileAttempt
			outcome     string
			reason      string
			attemptedAt int64
		)
		if err := rows.Scan(
			&attempt.ID,
			&attempt.DonationID,
			&outcome,
			&reason,
			&attempt.Detail,
			&attempt.Confirmations,
			&attemptedAt,
		); err != nil {
			return nil, fmt.Errorf("scan reconcile attempt: %w", err)
		}
		attempt.Outcome = storage.ReconcileOutcome(outcome)
		attempt.Reason = domain.FailureReason(reason)
		attempt.AttemptedAt = fromMillis(attemptedAt)
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reconcile attempts: %w", err)
	}
	return attempts, nil
}
