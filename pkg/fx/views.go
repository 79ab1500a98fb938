package fx

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/pg-schema-fx/pkg/schema"
)

type (
	// DDLOpt tweaks the statement issued by a view or function operation. Options that do not apply to an
	// operation are ignored by it.
	DDLOpt func(*ddlOptions)

	ddlOptions struct {
		materialized bool
		noData       bool
		ifExists     bool
		concurrently bool
	}
)

// Materialized targets a materialized view rather than a plain view.
func Materialized() DDLOpt {
	return func(o *ddlOptions) {
		o.materialized = true
	}
}

// WithNoData creates a materialized view without populating it.
func WithNoData() DDLOpt {
	return func(o *ddlOptions) {
		o.noData = true
	}
}

// IfExists makes a drop succeed silently when the object is missing.
func IfExists() DDLOpt {
	return func(o *ddlOptions) {
		o.ifExists = true
	}
}

// Concurrently refreshes a materialized view without locking out reads. The view needs a unique index.
func Concurrently() DDLOpt {
	return func(o *ddlOptions) {
		o.concurrently = true
	}
}

func buildDDLOptions(opts []DDLOpt) ddlOptions {
	options := ddlOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// CreateView issues `CREATE [MATERIALIZED] VIEW <name> AS <sqlDefinition>;`.
func (a *Adapter) CreateView(ctx context.Context, name, sqlDefinition string, opts ...DDLOpt) error {
	options := buildDDLOptions(opts)

	var sb strings.Builder
	sb.WriteString("CREATE ")
	if options.materialized {
		sb.WriteString("MATERIALIZED ")
	}
	sb.WriteString(fmt.Sprintf("VIEW %s AS %s", a.conn.QuoteIdentifier(name), trimStatement(sqlDefinition)))
	if options.materialized && options.noData {
		sb.WriteString(" WITH NO DATA")
	}
	sb.WriteString(";")

	if err := a.conn.Execute(ctx, sb.String()); err != nil {
		return classifyExecErr("create view", name, err)
	}
	return nil
}

// UpdateView replaces the definition of a view by dropping and recreating it, keeping its materialized-ness. The
// drop and create run inside WithIndexReapplication, so the indexes of a materialized view survive the update.
//
// CREATE OR REPLACE VIEW is not used: it can only append columns.
func (a *Adapter) UpdateView(ctx context.Context, name, sqlDefinition string, opts ...ReapplyOpt) error {
	kind, err := a.catalog.RelationKind(ctx, name)
	if err != nil {
		return &IntrospectionError{Target: "relation " + name, Err: err}
	}

	var viewOpts []DDLOpt
	switch kind {
	case schema.RelationKindMaterializedView:
		viewOpts = append(viewOpts, Materialized())
	case schema.RelationKindView, schema.RelationKindNone:
		// A missing relation is treated as a plain view; the drop reports it.
	default:
		return fmt.Errorf("update view %s: relation is a %s", name, kind)
	}

	return a.WithIndexReapplication(ctx, name, func(ctx context.Context) error {
		if err := a.DropView(ctx, name, viewOpts...); err != nil {
			return err
		}
		return a.CreateView(ctx, name, sqlDefinition, viewOpts...)
	}, opts...)
}

// DropView issues `DROP [MATERIALIZED] VIEW [IF EXISTS] <name>;`.
func (a *Adapter) DropView(ctx context.Context, name string, opts ...DDLOpt) error {
	options := buildDDLOptions(opts)

	var sb strings.Builder
	sb.WriteString("DROP ")
	if options.materialized {
		sb.WriteString("MATERIALIZED ")
	}
	sb.WriteString("VIEW ")
	if options.ifExists {
		sb.WriteString("IF EXISTS ")
	}
	sb.WriteString(a.conn.QuoteIdentifier(name))
	sb.WriteString(";")

	if err := a.conn.Execute(ctx, sb.String()); err != nil {
		return classifyExecErr("drop view", name, err)
	}
	return nil
}

// RefreshMaterializedView issues `REFRESH MATERIALIZED VIEW [CONCURRENTLY] <name>;`.
func (a *Adapter) RefreshMaterializedView(ctx context.Context, name string, opts ...DDLOpt) error {
	options := buildDDLOptions(opts)

	stmt := "REFRESH MATERIALIZED VIEW "
	if options.concurrently {
		stmt += "CONCURRENTLY "
	}
	stmt += a.conn.QuoteIdentifier(name) + ";"

	if err := a.conn.Execute(ctx, stmt); err != nil {
		return classifyExecErr("refresh materialized view", name, err)
	}
	return nil
}

// Views lists the user-defined views and materialized views, e.g., to dump them.
func (a *Adapter) Views(ctx context.Context, opts ...schema.GetOpt) ([]schema.View, error) {
	views, err := a.catalog.Views(ctx, opts...)
	if err != nil {
		return nil, &IntrospectionError{Target: "views", Err: err}
	}
	return views, nil
}

// trimStatement strips the whitespace and the terminating semicolon definitions are usually written with.
func trimStatement(sql string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sql), ";"))
}
