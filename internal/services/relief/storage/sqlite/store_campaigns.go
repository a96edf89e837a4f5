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

const campaignColumns = `id, name, currency, receiving_address, target, status, created_by,
	version, created_at, updated_at, closed_at`

// CreateCampaign inserts one campaign.
func (s *Store) CreateCampaign(ctx context.Context, campaign domain.Campaign) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(campaign.ID) == "" {
		return fmt.Errorf("campaign id is required")
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO campaigns (`+campaignColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		campaign.ID,
		campaign.Name,
		campaign.Currency,
		campaign.ReceivingAddress,
		campaign.Target.String(),
		string(campaign.Status),
		campaign.CreatedBy,
		campaign.Version,
		toMillis(campaign.CreatedAt),
		toMillis(campaign.UpdatedAt),
		toNullMillis(campaign.ClosedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

// GetCampaign returns one campaign by id.
func (s *Store) GetCampaign(ctx context.Context, campaignID string) (domain.Campaign, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Campaign{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`,
		strings.TrimSpace(campaignID),
	)
	campaign, err := scanCampaign(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Campaign{}, storage.ErrNotFound
		}
		return domain.Campaign{}, fmt.Errorf("get campaign: %w", err)
	}
	return campaign, nil
}

// UpdateCampaign writes mutable campaign fields guarded by expectedVersion.
func (s *Store) UpdateCampaign(ctx context.Context, campaign domain.Campaign, expectedVersion int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE campaigns
		    SET name = ?, receiving_address = ?, target = ?, status = ?,
		        version = ?, updated_at = ?, closed_at = ?
		  WHERE id = ? AND version = ?`,
		campaign.Name,
		campaign.ReceivingAddress,
		campaign.Target.String(),
		string(campaign.Status),
		expectedVersion+1,
		toMillis(campaign.UpdatedAt),
		toNullMillis(campaign.ClosedAt),
		campaign.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	return checkVersionedWrite(ctx, s.sqlDB, res, "campaigns", campaign.ID)
}

func scanCampaign(row rowScanner) (domain.Campaign, error) {
	var (
		campaign  domain.Campaign
		status    string
		createdAt int64
		updatedAt int64
		closedAt  sql.NullInt64
	)
	if err := row.Scan(
		&campaign.ID,
		&campaign.Name,
		&campaign.Currency,
		&campaign.ReceivingAddress,
		&campaign.Target,
		&status,
		&campaign.CreatedBy,
		&campaign.Version,
		&createdAt,
		&updatedAt,
		&closedAt,
	); err != nil {
		return domain.Campaign{}, err
	}
	campaign.Status = domain.CampaignStatus(status)
	campaign.CreatedAt = fromMillis(createdAt)
	campaign.UpdatedAt = fromMillis(updatedAt)
	campaign.ClosedAt = fromNullMillis(closedAt)
	return campaign, nil
}
