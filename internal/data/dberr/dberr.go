package dberr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yungbote/counselbridge-backend/internal/platform/apierr"
	"gorm.io/gorm"
)

// ErrStaleVersion marks a compare-and-set write that matched no row.
var ErrStaleVersion = errors.New("stale row version")

const (
	CodeNotFound        = "not_found"
	CodeConflict        = "conflict"
	CodeVersionConflict = "session_version_conflict"
	CodeRetryable       = "retryable"
	CodeInternal        = "database_error"
)

// MapError maps gorm and postgres failures onto api errors, prefixed by op.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return err
	}
	wrapped := fmt.Errorf("%s: %w", op, err)
	switch {
	case errors.Is(err, ErrStaleVersion):
		return apierr.New(http.StatusConflict, CodeVersionConflict, wrapped)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apierr.New(http.StatusNotFound, CodeNotFound, wrapped)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apierr.New(http.StatusInternalServerError, CodeRetryable, wrapped)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return apierr.New(http.StatusConflict, CodeConflict, wrapped) // unique_violation
		case "40001", "40P01", "55P03":
			return apierr.New(http.StatusInternalServerError, CodeRetryable, wrapped) // serialization/deadlock/lock_not_available
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "duplicate key"), strings.Contains(msg, "unique constraint"):
		return apierr.New(http.StatusConflict, CodeConflict, wrapped)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "timeout"):
		return apierr.New(http.StatusInternalServerError, CodeRetryable, wrapped)
	default:
		return apierr.New(http.StatusInternalServerError, CodeInternal, wrapped)
	}
}

// IsRetryable reports whether err was classified as transient.
func IsRetryable(err error) bool {
	return apierr.CodeOf(err) == CodeRetryable
}
