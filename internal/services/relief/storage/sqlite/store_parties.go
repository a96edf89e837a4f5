package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/reliefnet/reliefnet/internal/services/relief/domain"
	"github.com/reliefnet/reliefnet/internal/services/relief/storage"
)

const partyColumns = `id, role, name, subject, wallet_address, status, supersedes_id,
	reviewed_by, review_note, version, created_at, updated_at, reviewed_at`

// CreateParty inserts one party.
func (s *Store) CreateParty(ctx context.Context, party domain.Party) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(party.ID) == "" {
		return fmt.Errorf("party id is required")
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO parties (`+partyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		party.ID,
		string(party.Role),
		party.Name,
		party.Subject,
		party.WalletAddress,
		string(party.Status),
		party.SupersedesID,
		party.ReviewedBy,
		party.ReviewNote,
		party.Version,
		toMillis(party.CreatedAt),
		toMillis(party.UpdatedAt),
		toNullMillis(party.ReviewedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create party: %w", err)
	}
	return nil
}

// GetParty returns one party by id.
func (s *Store) GetParty(ctx context.Context, partyID string) (domain.Party, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Party{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+partyColumns+` FROM parties WHERE id = ?`,
		strings.TrimSpace(partyID),
	)
	party, err := scanParty(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Party{}, storage.ErrNotFound
		}
		return domain.Party{}, fmt.Errorf("get party: %w", err)
	}
	return party, nil
}

// UpdateParty writes review fields guarded by expectedVersion.
func (s *Store) UpdateParty(ctx context.Context, party domain.Party, expectedVersion int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE parties
		    SET name = ?, wallet_address = ?, status = ?, reviewed_by = ?, review_note = ?,
		        version = ?, updated_at = ?, reviewed_at = ?
		  WHERE id = ? AND version = ?`,
		party.Name,
		party.WalletAddress,
		string(party.Status),
		party.ReviewedBy,
		party.ReviewNote,
		expectedVersion+1,
		toMillis(party.UpdatedAt),
		toNullMillis(party.ReviewedAt),
		party.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update party: %w", err)
	}
	return checkVersionedWrite(ctx, s.sqlDB, res, "parties", party.ID)
}

func scanParty(row rowScanner) (domain.Party, error) {
	var (
		party      domain.Party
		role       string
		status     string
		createdAt  int64
		updatedAt  int64
		reviewedAt sql.NullInt64
	)
	if err := row.Scan(
		&party.ID,
		&role,
		&party.Name,
		&party.Subject,
		&party.WalletAddress,
		&status,
		&party.SupersedesID,
		&party.ReviewedBy,
		&party.ReviewNote,
		&party.Version,
		&createdAt,
		&updatedAt,
		&reviewedAt,
	); err != nil {
		return domain.Party{}, err
	}
	party.Role = domain.PartyRole(role)
	party.Status = domain.PartyStatus(status)
	party.CreatedAt = fromMillis(createdAt)
	party.UpdatedAt = fromMillis(updatedAt)
	party.ReviewedAt = fromNullMillis(reviewedAt)
	return party, nil
}
