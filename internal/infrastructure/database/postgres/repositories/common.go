// Package repositories provides PostgreSQL-backed implementations of the
// domain repository interfaces.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/propsignal/propsignal/pkg/errors"
)

// queryExecutor abstracts sql.DB and sql.Tx so repository methods run
// unchanged inside and outside transactions.
type queryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// nullInt converts a nullable column to *int.
func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

// nullFloat converts a nullable column to *float64.
func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// intArg converts *int to a nullable bind parameter.
func intArg(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// floatArg converts *float64 to a nullable bind parameter.
func floatArg(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// marshalJSON serializes a value for a jsonb column.
func marshalJSON(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal jsonb column")
	}
	return b, nil
}

// unmarshalJSON deserializes a jsonb column.
func unmarshalJSON(data []byte, dest interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal jsonb column")
	}
	return nil
}

// inTx runs fn inside a transaction, rolling back on error.
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit transaction")
	}
	return nil
}
