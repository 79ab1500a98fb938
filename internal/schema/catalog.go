package schema

import (
	"context"
	"fmt"

	"github.com/stripe/pg-schema-fx/internal/pgidentifier"
	"github.com/stripe/pg-schema-fx/internal/queries"
)

type (
	GetOpt func(*getOptions)

	getOptions struct {
		// includeSchemas is a list of schemas to include. If empty, then all schemas are included.
		includeSchemas []string
		// excludeSchemas is the exclude analog of includeSchemas.
		excludeSchemas []string
	}
)

// WithIncludeSchemas filters the listing to only include the given schemas. This unions with any schemas that are
// already included. If empty, then all schemas are included.
func WithIncludeSchemas(schemas ...string) GetOpt {
	return func(o *getOptions) {
		o.includeSchemas = append(o.includeSchemas, schemas...)
	}
}

// WithExcludeSchemas filters the listing to exclude the given schemas. This unions with any schemas that are already
// excluded. If empty, then no schemas are excluded.
func WithExcludeSchemas(schemas ...string) GetOpt {
	return func(o *getOptions) {
		o.excludeSchemas = append(o.excludeSchemas, schemas...)
	}
}

// CatalogReader reads index, view and function definitions from the Postgres system catalogs. It holds no state
// between calls: the catalog is always the source of truth.
type CatalogReader struct {
	q *queries.Queries
}

func NewCatalogReader(db queries.DBTX) *CatalogReader {
	return &CatalogReader{q: queries.New(db)}
}

// IndexesOn returns a snapshot of every index on the relation, in creation order. A relation that does not exist
// has no indexes, so it yields an empty slice rather than an error.
func (c *CatalogReader) IndexesOn(ctx context.Context, relation string) ([]Index, error) {
	rawIndexes, err := c.q.GetIndexesOnRelation(ctx, pgidentifier.QuoteQualifiedName(relation))
	if err != nil {
		return nil, fmt.Errorf("GetIndexesOnRelation(%q): %w", relation, err)
	}

	var idxs []Index
	for _, rawIndex := range rawIndexes {
		idxs = append(idxs, Index{
			Name:            rawIndex.IndexName,
			OwningRelation:  buildNameFromUnescaped(rawIndex.TableName, rawIndex.TableSchemaName),
			GetIndexDefStmt: GetIndexDefStatement(rawIndex.DefStmt),
		})
	}
	return idxs, nil
}

// RelationKind returns the kind of the relation, or RelationKindNone if it does not exist.
func (c *CatalogReader) RelationKind(ctx context.Context, relation string) (RelationKind, error) {
	relKind, err := c.q.GetRelationKind(ctx, pgidentifier.QuoteQualifiedName(relation))
	if err != nil {
		return RelationKindNone, fmt.Errorf("GetRelationKind(%q): %w", relation, err)
	}
	return RelationKind(relKind), nil
}

// Functions lists the user-defined functions, i.e., excluding system and extension functions.
func (c *CatalogReader) Functions(ctx context.Context, opts ...GetOpt) ([]Function, error) {
	filter, err := buildFilter(opts)
	if err != nil {
		return nil, err
	}

	rawFunctions, err := c.q.GetFunctions(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetFunctions: %w", err)
	}

	var functions []Function
	for _, rawFunction := range rawFunctions {
		args, err := parseFunctionArguments(rawFunction.FuncArguments, rawFunction.ArgNames, rawFunction.ArgModes)
		if err != nil {
			return nil, fmt.Errorf("function (%s.%s): %w", rawFunction.FuncSchemaName, rawFunction.FuncName, err)
		}
		functions = append(functions, Function{
			SchemaQualifiedName: buildNameFromUnescaped(rawFunction.FuncName, rawFunction.FuncSchemaName),
			Arguments:           args,
			Returns:             rawFunction.FuncResult,
			Language:            rawFunction.FuncLang,
			FunctionDef:         rawFunction.FuncDef,
		})
	}

	return filterSliceByName(
		functions,
		func(function Function) SchemaQualifiedName {
			return function.SchemaQualifiedName
		},
		filter,
	), nil
}

// Views lists the user-defined views and materialized views.
func (c *CatalogReader) Views(ctx context.Context, opts ...GetOpt) ([]View, error) {
	filter, err := buildFilter(opts)
	if err != nil {
		return nil, err
	}

	rawViews, err := c.q.GetViews(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetViews: %w", err)
	}

	var views []View
	for _, v := range rawViews {
		views = append(views, View{
			SchemaQualifiedName: buildNameFromUnescaped(v.ViewName, v.SchemaName),
			ViewDefinition:      v.ViewDefinition,
			Materialized:        v.IsMaterialized,
		})
	}

	return filterSliceByName(
		views,
		func(view View) SchemaQualifiedName {
			return view.SchemaQualifiedName
		},
		filter,
	), nil
}

func buildFilter(opts []GetOpt) (nameFilter, error) {
	options := getOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	filter, err := buildNameFilter(options)
	if err != nil {
		return nil, fmt.Errorf("building name filter: %w", err)
	}
	return filter, nil
}
