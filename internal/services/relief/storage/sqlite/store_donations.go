package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/reliefnet/reliefnet/internal/services/relief/domain"
	"github.com/reliefnet/reliefnet/internal/services/relief/storage"
)

const donationColumns = `id, campaign_id, donor_address, donor_account_id, amount, currency,
	chain_tx_ref, state, failure_reason, failure_detail, manual, resolved_by, resolution_note,
	oracle_attempts, not_found_polls, next_check_at, version, created_at, updated_at, resolved_at`

// CreateDonation inserts one donation. A reused chain reference yields
// storage.ErrAlreadyExists.
func (s *Store) CreateDonation(ctx context.Context, donation domain.Donation) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(donation.ID) == "" {
		return fmt.Errorf("donation id is required")
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO donations (`+donationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		donation.ID,
		donation.CampaignID,
		donation.DonorAddress,
		donation.DonorAccountID,
		donation.Amount.String(),
		donation.Currency,
		toNullString(donation.ChainTxRef),
		string(donation.State),
		string(donation.FailureReason),
		donation.FailureDetail,
		boolToInt(donation.Manual),
		donation.ResolvedBy,
		donation.ResolutionNote,
		donation.OracleAttempts,
		donation.NotFoundPolls,
		toMillis(donation.NextCheckAt),
		donation.Version,
		toMillis(donation.CreatedAt),
		toMillis(donation.UpdatedAt),
		toNullMillis(donation.ResolvedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("create donation: %w", err)
	}
	return nil
}

// GetDonation returns one donation by id.
func (s *Store) GetDonation(ctx context.Context, donationID string) (domain.Donation, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Donation{}, err
	}
	return getDonation(ctx, s.sqlDB, `WHERE id = ?`, strings.TrimSpace(donationID))
}

// GetDonationByChainTxRef returns the donation bound to a chain reference.
func (s *Store) GetDonationByChainTxRef(ctx context.Context, chainTxRef string) (domain.Donation, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Donation{}, err
	}
	chainTxRef = strings.TrimSpace(chainTxRef)
	if chainTxRef == "" {
		return domain.Donation{}, storage.ErrNotFound
	}
	return getDonation(ctx, s.sqlDB, `WHERE chain_tx_ref = ?`, chainTxRef)
}

func getDonation(ctx context.Context, q querier, where string, arg any) (domain.Donation, error) {
	row := q.QueryRowContext(ctx, `SELECT `+donationColumns+` FROM donations `+where, arg)
	donation, err := scanDonation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Donation{}, storage.ErrNotFound
		}
		return domain.Donation{}, fmt.Errorf("get donation: %w", err)
	}
	return donation, nil
}

// UpdateDonation writes a pending donation guarded by expectedVersion.
func (s *Store) UpdateDonation(ctx context.Context, donation domain.Donation, expectedVersion int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return updateDonation(ctx, s.sqlDB, donation, expectedVersion)
}

// UpdateDonationFenced writes a pending donation and bumps the fenced
// campaign in one transaction.
func (s *Store) UpdateDonationFenced(ctx context.Context, donation domain.Donation, expectedVersion int64, fence storage.CampaignFence) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := applyFence(ctx, tx, fence, donation.UpdatedAt); err != nil {
			return err
		}
		return updateDonation(ctx, tx, donation, expectedVersion)
	})
}

func updateDonation(ctx context.Context, q querier, donation domain.Donation, expectedVersion int64) error {
	res, err := q.ExecContext(ctx,
		`UPDATE donations
		    SET state = ?, failure_reason = ?, failure_detail = ?, resolved_by = ?,
		        resolution_note = ?, oracle_attempts = ?, not_found_polls = ?,
		        next_check_at = ?, version = ?, updated_at = ?, resolved_at = ?
		  WHERE id = ? AND version = ? AND state = 'pending'`,
		string(donation.State),
		string(donation.FailureReason),
		donation.FailureDetail,
		donation.ResolvedBy,
		donation.ResolutionNote,
		donation.OracleAttempts,
		donation.NotFoundPolls,
		toMillis(donation.NextCheckAt),
		expectedVersion+1,
		toMillis(donation.UpdatedAt),
		toNullMillis(donation.ResolvedAt),
		donation.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update donation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var state string
	err = q.QueryRowContext(ctx, `SELECT state FROM donations WHERE id = ?`, donation.ID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check donation version: %w", err)
	}
	if domain.DonationState(state) != domain.DonationPending {
		return storage.ErrImmutable
	}
	return storage.ErrConflict
}

// ListDonationsByCampaign returns every donation of a campaign in creation order.
func (s *Store) ListDonationsByCampaign(ctx context.Context, campaignID string) ([]domain.Donation, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+donationColumns+` FROM donations WHERE campaign_id = ? ORDER BY created_at, id`,
		strings.TrimSpace(campaignID),
	)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	return collectDonations(rows)
}

// ListDueDonations returns chain-backed pending donations due for a check.
func (s *Store) ListDueDonations(ctx context.Context, now time.Time, limit int) ([]domain.Donation, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+donationColumns+` FROM donations
		  WHERE state = 'pending' AND manual = 0 AND chain_tx_ref IS NOT NULL AND next_check_at <= ?
		  ORDER BY next_check_at, id
		  LIMIT ?`,
		toMillis(now), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list due donations: %w", err)
	}
	return collectDonations(rows)
}

func collectDonations(rows *sql.Rows) ([]domain.Donation, error) {
	defer rows.Close()
	donations := make([]domain.Donation, 0)
	for rows.Next() {
		donation, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		donations = append(donations, donation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate donations: %w", err)
	}
	return donations, nil
}

func scanDonation(row rowScanner) (domain.Donation, error) {
	var (
		donation      domain.Donation
		chainTxRef    sql.NullString
		state         string
		failureReason string
		manual        int
		nextCheckAt   int64
		createdAt     int64
		updatedAt     int64
		resolvedAt    sql.NullInt64
	)
	if err := row.Scan(
		&donation.ID,
		&donation.CampaignID,
		&donation.DonorAddress,
		&donation.DonorAccountID,
		&donation.Amount,
		&donation.Currency,
		&chainTxRef,
		&state,
		&failureReason,
		&donation.FailureDetail,
		&manual,
		&donation.ResolvedBy,
		&donation.ResolutionNote,
		&donation.OracleAttempts,
		&donation.NotFoundPolls,
		&nextCheckAt,
		&donation.Version,
		&createdAt,
		&updatedAt,
		&resolvedAt,
	); err != nil {
		return domain.Donation{}, err
	}
	donation.ChainTxRef = chainTxRef.String
	donation.State = domain.DonationState(state)
	donation.FailureReason = domain.FailureReason(failureReason)
	donation.Manual = manual != 0
	donation.NextCheckAt = fromMillis(nextCheckAt)
	donation.CreatedAt = fromMillis(createdAt)
	donation.UpdatedAt = fromMillis(updatedAt)
	donation.ResolvedAt = fromNullMillis(resolvedAt)
	return donation, nil
}
