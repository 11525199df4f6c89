package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/termbase-backend/internal/domain/glossary"
)

// IsUniqueViolation reports whether err is a unique-index violation from either
// supported driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.TrimSpace(pgErr.Code) == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "duplicate key")
}

// MapError maps storage failures into glossary error codes. Unique violations
// become conflicts tagged with the offending tier when the index name reveals it.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ge *glossary.Error
	if errors.As(err, &ge) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return glossary.Wrap(glossary.CodeNotFound, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return glossary.Wrap(glossary.CodeInternal, op, err)
	case IsUniqueViolation(err):
		return &glossary.Error{
			Code:    glossary.CodeConflict,
			Reason:  conflictReason(err),
			Op:      op,
			Message: err.Error(),
			Cause:   err,
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.TrimSpace(pgErr.Code) == "23503" {
		return glossary.Wrap(glossary.CodeNotFound, op, err)
	}
	return glossary.Wrap(glossary.CodeInternal, op, err)
}

func conflictReason(err error) string {
	msg := strings.ToLower(err.Error())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		msg = strings.ToLower(pgErr.ConstraintName + " " + pgErr.Message)
	}
	switch {
	case strings.Contains(msg, "cleaned_text"):
		return "duplicate_cleaned_text"
	case strings.Contains(msg, "stemmed_text"):
		return "duplicate_stemmed_text"
	case strings.Contains(msg, "raw_text"):
		return "duplicate_raw_text"
	case strings.Contains(msg, "topic") && strings.Contains(msg, "name"):
		return "duplicate_topic_name"
	case strings.Contains(msg, "term_id"), strings.Contains(msg, "idx_description_term"):
		return "description_exists"
	default:
		return "duplicate"
	}
}
