package sqldb

import (
	"context"
	"database/sql"
)

// Queryable represents a queryable database. *sql.DB, *sql.Conn and *sql.Tx all satisfy it.
// Migrations should pass the *sql.Tx of the migration step, so that every statement issued by the
// adapter runs inside the caller's transaction.
type Queryable interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}
