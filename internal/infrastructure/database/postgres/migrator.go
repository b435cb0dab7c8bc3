package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file" // file:// source

	"github.com/propsignal/propsignal/internal/infrastructure/monitoring/logging"
	apperrors "github.com/propsignal/propsignal/pkg/errors"
)

// Migrator applies schema migrations from a directory of versioned SQL
// files.
type Migrator struct {
	m      *migrate.Migrate
	logger logging.Logger
}

// NewMigrator builds a migrator over an open database handle.
func NewMigrator(db *sql.DB, migrationPath string, logger logging.Logger) (*Migrator, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to init migration driver")
	}
	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationPath), "postgres", driver)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to init migrator")
	}
	return &Migrator{m: m, logger: logger}, nil
}

// Up applies all pending migrations.  An already-current schema is not an
// error.
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "migration up failed")
	}
	version, dirty, _ := mg.m.Version()
	mg.logger.Info("migrations applied",
		logging.Int("version", int(version)),
		logging.Bool("dirty", dirty),
	)
	return nil
}

// Down rolls back a single migration step.
func (mg *Migrator) Down() error {
	if err := mg.m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "migration down failed")
	}
	return nil
}

// Version reports the current schema version.
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, apperrors.Wrap(err, apperrors.ErrCodeDatabaseError, "failed to read migration version")
	}
	return version, dirty, nil
}
