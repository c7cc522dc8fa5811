package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes the import path reports distinctly.
const (
	codeUniqueViolation  = "23505"
	codeDeadlockDetected = "40P01"
	codeQueryCanceled    = "57014"
	codeCannotConnect    = "08006"
)

// translateError rewords driver errors so the user-facing error mapper
// recognizes them. The original error stays wrapped.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("duplicate key (%s): %w", pgErr.ConstraintName, err)
		case codeDeadlockDetected:
			return fmt.Errorf("deadlock detected: %w", err)
		case codeQueryCanceled:
			return fmt.Errorf("statement timeout: %w", err)
		case codeCannotConnect:
			return fmt.Errorf("connection reset: %w", err)
		}
		return err
	}

	if pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("database timeout: %w", err)
	}
	return err
}
