package sqldb

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestSQLState(t *testing.T) {
	for _, tc := range []struct {
		name                string
		err                 error
		expectedState       string
		expectAlreadyExists bool
		expectDoesNotExist  bool
	}{
		{
			name:                "pgx duplicate table",
			err:                 &pgconn.PgError{Code: SQLStateDuplicateTable, Message: `relation "foo" already exists`},
			expectedState:       SQLStateDuplicateTable,
			expectAlreadyExists: true,
		},
		{
			name:               "wrapped pgx undefined table",
			err:                fmt.Errorf("executing: %w", &pgconn.PgError{Code: SQLStateUndefinedTable}),
			expectedState:      SQLStateUndefinedTable,
			expectDoesNotExist: true,
		},
		{
			name:                "lib/pq duplicate function",
			err:                 &pq.Error{Code: SQLStateDuplicateFunction},
			expectedState:       SQLStateDuplicateFunction,
			expectAlreadyExists: true,
		},
		{
			name:               "lib/pq undefined function",
			err:                fmt.Errorf("wrapped: %w", &pq.Error{Code: SQLStateUndefinedFunction}),
			expectedState:      SQLStateUndefinedFunction,
			expectDoesNotExist: true,
		},
		{
			name:          "undefined column is neither",
			err:           &pgconn.PgError{Code: SQLStateUndefinedColumn},
			expectedState: SQLStateUndefinedColumn,
		},
		{
			name: "non-postgres error",
			err:  errors.New("connection reset"),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expectedState, SQLState(tc.err))
			assert.Equal(t, tc.expectAlreadyExists, IsAlreadyExists(tc.err))
			assert.Equal(t, tc.expectDoesNotExist, IsDoesNotExist(tc.err))
		})
	}
}

func TestConnectionQuoteIdentifier(t *testing.T) {
	conn := NewConnection(nil)
	assert.Equal(t, "active_users", conn.QuoteIdentifier("active_users"))
	assert.Equal(t, `reporting."ActiveUsers"`, conn.QuoteIdentifier("reporting.ActiveUsers"))
	assert.Equal(t, `"left"`, conn.QuoteIdentifier("left"))
	assert.Equal(t, `reporting."verbose"`, conn.QuoteIdentifier("reporting.verbose"))
	assert.Equal(t, `"int"`, conn.QuoteIdentifier("int"))
}
