package schema

import (
	"context"
	"fmt"

	internalschema "github.com/stripe/pg-schema-fx/internal/schema"
	"github.com/stripe/pg-schema-fx/pkg/sqldb"
)

type (
	GetOpt = internalschema.GetOpt

	SchemaQualifiedName  = internalschema.SchemaQualifiedName
	Index                = internalschema.Index
	GetIndexDefStatement = internalschema.GetIndexDefStatement
	Function             = internalschema.Function
	FunctionArgument     = internalschema.FunctionArgument
	View                 = internalschema.View
	RelationKind         = internalschema.RelationKind
)

const (
	RelationKindNone             = internalschema.RelationKindNone
	RelationKindTable            = internalschema.RelationKindTable
	RelationKindView             = internalschema.RelationKindView
	RelationKindMaterializedView = internalschema.RelationKindMaterializedView
	RelationKindIndex            = internalschema.RelationKindIndex
)

var (
	WithIncludeSchemas = internalschema.WithIncludeSchemas
	WithExcludeSchemas = internalschema.WithExcludeSchemas
)

// GetIndexes returns the snapshot of every index on the relation, in creation order. It is empty if the relation does
// not exist.
func GetIndexes(ctx context.Context, queryable sqldb.Queryable, relation string) ([]Index, error) {
	indexes, err := internalschema.NewCatalogReader(queryable).IndexesOn(ctx, relation)
	if err != nil {
		return nil, fmt.Errorf("getting indexes on %q: %w", relation, err)
	}
	return indexes, nil
}

// GetIndexesHash gets the fingerprint of the indexes on the relation. It can be stored alongside a migration and
// compared later to detect indexes that were added or removed out-of-band.
func GetIndexesHash(ctx context.Context, queryable sqldb.Queryable, relation string) (string, error) {
	indexes, err := GetIndexes(ctx, queryable, relation)
	if err != nil {
		return "", err
	}
	hash, err := internalschema.IndexesHash(indexes)
	if err != nil {
		return "", fmt.Errorf("hashing indexes: %w", err)
	}
	return hash, nil
}
