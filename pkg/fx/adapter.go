package fx

import (
	"context"
	"fmt"

	internalschema "github.com/stripe/pg-schema-fx/internal/schema"
	"github.com/stripe/pg-schema-fx/pkg/log"
	"github.com/stripe/pg-schema-fx/pkg/schema"
	"github.com/stripe/pg-schema-fx/pkg/sqldb"
)

// Catalog is the read side of the adapter. The catalog is the only source of truth; implementations must not cache.
type Catalog interface {
	// IndexesOn returns the indexes on the relation in a stable order. It returns an empty slice if the relation does
	// not exist.
	IndexesOn(ctx context.Context, relation string) ([]schema.Index, error)
	// RelationKind returns the kind of the relation, or an empty kind if it does not exist.
	RelationKind(ctx context.Context, relation string) (schema.RelationKind, error)
	Functions(ctx context.Context, opts ...schema.GetOpt) ([]schema.Function, error)
	Views(ctx context.Context, opts ...schema.GetOpt) ([]schema.View, error)
}

type (
	// Config is the adapter's configuration. It is passed explicitly to New; there is no process-wide adapter.
	Config struct {
		logger log.Logger
	}

	Opt func(*Config)
)

// WithLogger sets the logger used to report replayed indexes. Defaults to log.SimpleLogger().
func WithLogger(logger log.Logger) Opt {
	return func(c *Config) {
		c.logger = logger
	}
}

// Adapter manages views, materialized views and functions over a single, caller-owned connection. It never opens
// transactions: every statement runs in whatever transaction the connection is in.
type Adapter struct {
	conn    sqldb.Connection
	catalog Catalog
	config  Config
}

func New(conn sqldb.Connection, catalog Catalog, opts ...Opt) *Adapter {
	config := Config{
		logger: log.SimpleLogger(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Adapter{
		conn:    conn,
		catalog: catalog,
		config:  config,
	}
}

// NewFromQueryable builds an adapter that both reads the catalog and issues DDL through the queryable. Pass the
// *sql.Tx of a migration step to keep everything in the step's transaction.
func NewFromQueryable(queryable sqldb.Queryable, opts ...Opt) *Adapter {
	return New(sqldb.NewConnection(queryable), internalschema.NewCatalogReader(queryable), opts...)
}

// classifyExecErr maps the driver error of a DDL statement to the adapter's error taxonomy.
func classifyExecErr(operation, name string, err error) error {
	switch {
	case sqldb.IsAlreadyExists(err):
		return &ObjectAlreadyExistsError{Operation: operation, Name: name, Err: err}
	case sqldb.IsDoesNotExist(err):
		return &ObjectDoesNotExistError{Operation: operation, Name: name, Err: err}
	}
	return fmt.Errorf("%s %s: %w", operation, name, err)
}
