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

const packageColumns = `id, campaign_id, beneficiary_id, category, amount, status, issued_by,
	received_by, failure_reason, expires_at, version, created_at, updated_at, received_at`

// CreatePackage inserts one package and bumps the fenced campaign in the
// same transaction.
func (s *Store) CreatePackage(ctx context.Context, pkg domain.ReliefPackage, fence storage.CampaignFence) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(pkg.ID) == "" {
		return fmt.Errorf("package id is required")
	}
	if fence.CampaignID != pkg.CampaignID {
		return fmt.Errorf("fence campaign %q does not match package campaign %q", fence.CampaignID, pkg.CampaignID)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := applyFence(ctx, tx, fence, pkg.CreatedAt); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO relief_packages (`+packageColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			pkg.ID,
			pkg.CampaignID,
			pkg.BeneficiaryID,
			pkg.Category,
			pkg.Amount.String(),
			string(pkg.Status),
			pkg.IssuedBy,
			pkg.ReceivedBy,
			string(pkg.FailureReason),
			toMillis(pkg.ExpiresAt),
			pkg.Version,
			toMillis(pkg.CreatedAt),
			toMillis(pkg.UpdatedAt),
			toNullMillis(pkg.ReceivedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return storage.ErrAlreadyExists
			}
			if isForeignKeyViolation(err) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("create package: %w", err)
		}
		return nil
	})
}

// GetPackage returns one package by id.
func (s *Store) GetPackage(ctx context.Context, packageID string) (domain.ReliefPackage, error) {
	if err := s.ready(ctx); err != nil {
		return domain.ReliefPackage{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+packageColumns+` FROM relief_packages WHERE id = ?`,
		strings.TrimSpace(packageID),
	)
	pkg, err := scanPackage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ReliefPackage{}, storage.ErrNotFound
		}
		return domain.ReliefPackage{}, fmt.Errorf("get package: %w", err)
	}
	return pkg, nil
}

// UpdatePackage writes package status fields guarded by expectedVersion.
func (s *Store) UpdatePackage(ctx context.Context, pkg domain.ReliefPackage, expectedVersion int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE relief_packages
		    SET status = ?, received_by = ?, failure_reason = ?, version = ?,
		        updated_at = ?, received_at = ?
		  WHERE id = ? AND version = ?`,
		string(pkg.Status),
		pkg.ReceivedBy,
		string(pkg.FailureReason),
		expectedVersion+1,
		toMillis(pkg.UpdatedAt),
		toNullMillis(pkg.ReceivedAt),
		pkg.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update package: %w", err)
	}
	return checkVersionedWrite(ctx, s.sqlDB, res, "relief_packages", pkg.ID)
}

// ListPackagesByCampaign returns every package of a campaign in creation order.
func (s *Store) ListPackagesByCampaign(ctx context.Context, campaignID string) ([]domain.ReliefPackage, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+packageColumns+` FROM relief_packages WHERE campaign_id = ? ORDER BY created_at, id`,
		strings.TrimSpace(campaignID),
	)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	return collectPackages(rows)
}

// ListExpiredPackages returns issued packages whose redemption window closed.
func (s *Store) ListExpiredPackages(ctx context.Context, now time.Time, limit int) ([]domain.ReliefPackage, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+packageColumns+` FROM relief_packages
		  WHERE status = 'issued' AND expires_at <= ?
		  ORDER BY expires_at, id
		  LIMIT ?`,
		toMillis(now), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list expired packages: %w", err)
	}
	return collectPackages(rows)
}

func collectPackages(rows *sql.Rows) ([]domain.ReliefPackage, error) {
	defer rows.Close()
	packages := make([]domain.ReliefPackage, 0)
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan package: %w", err)
		}
		packages = append(packages, pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate packages: %w", err)
	}
	return packages, nil
}

func scanPackage(row rowScanner) (domain.ReliefPackage, error) {
	var (
		pkg           domain.ReliefPackage
		status        string
		failureReason string
		expiresAt     int64
		createdAt     int64
		updatedAt     int64
		receivedAt    sql.NullInt64
	)
	if err := row.Scan(
		&pkg.ID,
		&pkg.CampaignID,
		&pkg.BeneficiaryID,
		&pkg.Category,
		&pkg.Amount,
		&status,
		&pkg.IssuedBy,
		&pkg.ReceivedBy,
		&failureReason,
		&expiresAt,
		&pkg.Version,
		&createdAt,
		&updatedAt,
		&receivedAt,
	); err != nil {
		return domain.ReliefPackage{}, err
	}
	pkg.Status = domain.PackageStatus(status)
	pkg.FailureReason = domain.FailureReason(failureReason)
	pkg.ExpiresAt = fromMillis(expiresAt)
	pkg.CreatedAt = fromMillis(createdAt)
	pkg.UpdatedAt = fromMillis(updatedAt)
	pkg.ReceivedAt = fromNullMillis(receivedAt)
	return pkg, nil
}
