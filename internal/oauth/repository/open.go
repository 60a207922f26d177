package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lunchpaillola/docusign-voice/internal/db"
	"github.com/lunchpaillola/docusign-voice/internal/db/migrate"
)

// Drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Stores bundles the repositories for one backing store.
type Stores struct {
	States StateRepository
	Tokens TokenRepository
	// Close releases the underlying connection. Never nil.
	Close func() error
}

// Open returns repositories for driver. For postgres, autoMigrate applies the embedded
// migrations first. The memory driver ignores dsn.
func Open(driver, dsn string, autoMigrate bool) (*Stores, error) {
	switch driver {
	case DriverMemory, "":
		return &Stores{
			States: NewMemoryStateRepository(),
			Tokens: NewMemoryTokenRepository(),
			Close:  func() error { return nil },
		}, nil
	case DriverPostgres:
		if autoMigrate {
			if err := migrate.Run(dsn, migrate.DirectionUp); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		conn, err := db.Open(dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return sqlStores(conn, db.Postgres), nil
	case DriverSQLite:
		conn, err := db.OpenSQLite(dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return sqlStores(conn, db.SQLite), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func sqlStores(conn *sql.DB, dialect db.Dialect) *Stores {
	return &Stores{
		States: NewSQLStateRepository(conn, dialect),
		Tokens: NewSQLTokenRepository(conn, dialect),
		Close:  conn.Close,
	}
}
