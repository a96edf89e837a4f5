package storage

import (
	"errors"

	apperrors "github.com/reliefnet/reliefnet/internal/platform/errors"
)

// AppError translates storage sentinels into coded errors for callers above
// the service layer. Coded and unrelated errors pass through unchanged.
func AppError(err error, entity string) error {
	var coded *apperrors.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &coded):
		return err
	case errors.Is(err, ErrNotFound):
		return apperrors.Wrap(apperrors.CodeNotFound, entity+" not found", err)
	case errors.Is(err, ErrConflict):
		return apperrors.Wrap(apperrors.CodeVersionConflict, entity+" changed concurrently", err)
	case errors.Is(err, ErrImmutable):
		return apperrors.Wrap(apperrors.CodeDonationNotPending, entity+" is no longer pending", err)
	default:
		return err
	}
}
