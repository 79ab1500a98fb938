package pgengine

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/stripe/pg-schema-fx/internal/pgidentifier"
)

// DB is a database created on an Engine.
type DB struct {
	connOpts ConnectionOptions
	dropped  bool
}

func (d *DB) GetName() string {
	return d.connOpts[ConnectionOptionDatabase]
}

func (d *DB) GetConnOpts() ConnectionOptions {
	return d.connOpts
}

func (d *DB) GetDSN() string {
	return d.connOpts.ToDSN()
}

// Open opens a connection pool to the database. The caller must close it.
func (d *DB) Open() (*sql.DB, error) {
	return sql.Open("pgx", d.GetDSN())
}

// ApplyDDL runs each statement against the database, in order.
func (d *DB) ApplyDDL(ddl ...string) error {
	conn, err := d.Open()
	if err != nil {
		return err
	}
	defer conn.Close()

	for _, stmt := range ddl {
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("DDL %q: %w", stmt, err)
		}
	}
	return nil
}

// DropDB terminates the database's connections and drops it. It is idempotent.
func (d *DB) DropDB() error {
	if d.dropped {
		return nil
	}

	conn, err := sql.Open("pgx", d.connOpts.With(ConnectionOptionDatabase, "postgres").ToDSN())
	if err != nil {
		return err
	}
	defer conn.Close()

	quotedName := pgidentifier.ForceQuoteIdentifier(d.GetName())
	// Only superusers may connect from here on
	if _, err := conn.Exec("ALTER DATABASE " + quotedName + " CONNECTION LIMIT 0"); err != nil {
		return fmt.Errorf("blocking connections to %s: %w", d.GetName(), err)
	}
	if _, err := conn.Exec("SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1", d.GetName()); err != nil {
		return fmt.Errorf("terminating connections to %s: %w", d.GetName(), err)
	}
	if _, err := conn.Exec("DROP DATABASE " + quotedName); err != nil {
		return fmt.Errorf("dropping database %s: %w", d.GetName(), err)
	}
	d.dropped = true
	return nil
}
