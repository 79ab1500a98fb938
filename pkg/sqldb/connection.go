package sqldb

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/lib/pq"
	"github.com/stripe/pg-schema-fx/internal/pgidentifier"
)

// Connection is the narrow capability the adapter needs to issue DDL. It never opens, pools or closes
// connections; the caller owns the underlying connection for the duration of a call.
type Connection interface {
	// Execute runs a single SQL statement.
	Execute(ctx context.Context, sql string) error
	// QuoteIdentifier renders a (possibly schema-qualified) name so it can be interpolated into SQL.
	QuoteIdentifier(name string) string
}

type queryableConnection struct {
	q Queryable
}

// NewConnection adapts a Queryable into a Connection.
func NewConnection(q Queryable) Connection {
	return &queryableConnection{q: q}
}

func (c *queryableConnection) Execute(ctx context.Context, sql string) error {
	_, err := c.q.ExecContext(ctx, sql)
	return err
}

func (c *queryableConnection) QuoteIdentifier(name string) string {
	return pgidentifier.QuoteQualifiedName(name)
}

// SQLState codes the adapter classifies.
const (
	SQLStateDuplicateTable    = "42P07"
	SQLStateDuplicateObject   = "42710"
	SQLStateDuplicateFunction = "42723"
	SQLStateUndefinedTable    = "42P01"
	SQLStateUndefinedObject   = "42704"
	SQLStateUndefinedFunction = "42883"
	SQLStateUndefinedColumn   = "42703"
)

// SQLState returns the Postgres SQLSTATE of err if it originates from either the pgx or the lib/pq driver.
// It returns an empty string otherwise.
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// IsAlreadyExists reports whether err is Postgres refusing to create an object that already exists.
func IsAlreadyExists(err error) bool {
	switch SQLState(err) {
	case SQLStateDuplicateTable, SQLStateDuplicateObject, SQLStateDuplicateFunction:
		return true
	}
	return false
}

// IsDoesNotExist reports whether err is Postgres failing to find the referenced object.
func IsDoesNotExist(err error) bool {
	switch SQLState(err) {
	case SQLStateUndefinedTable, SQLStateUndefinedObject, SQLStateUndefinedFunction:
		return true
	}
	return false
}
