package fx

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/stripe/pg-schema-fx/internal/pgidentifier"
	"github.com/stripe/pg-schema-fx/pkg/log"
	"github.com/stripe/pg-schema-fx/pkg/schema"
)

// fakeConnection records every executed statement. Statements matching a key of errsByPrefix fail with its error.
type fakeConnection struct {
	executed     []string
	errsByPrefix map[string]error
}

func (f *fakeConnection) Execute(_ context.Context, sql string) error {
	f.executed = append(f.executed, sql)
	for prefix, err := range f.errsByPrefix {
		if strings.HasPrefix(sql, prefix) {
			return err
		}
	}
	return nil
}

func (f *fakeConnection) QuoteIdentifier(name string) string {
	return pgidentifier.QuoteQualifiedName(name)
}

type fakeCatalog struct {
	indexesByRelation map[string][]schema.Index
	// replayedIndexesByRelation, if set, is returned by IndexesOn after the first call for the relation
	replayedIndexesByRelation map[string][]schema.Index
	kindsByRelation           map[string]schema.RelationKind
	functions                 []schema.Function
	views                     []schema.View
	err                       error

	indexesOnCalls    []string
	relationKindCalls []string
}

func (f *fakeCatalog) IndexesOn(_ context.Context, relation string) ([]schema.Index, error) {
	if f.err != nil {
		return nil, f.err
	}
	alreadyCalled := false
	for _, c := range f.indexesOnCalls {
		if c == relation {
			alreadyCalled = true
		}
	}
	f.indexesOnCalls = append(f.indexesOnCalls, relation)
	if replayed, ok := f.replayedIndexesByRelation[relation]; ok && alreadyCalled {
		return replayed, nil
	}
	return f.indexesByRelation[relation], nil
}

func (f *fakeCatalog) RelationKind(_ context.Context, relation string) (schema.RelationKind, error) {
	f.relationKindCalls = append(f.relationKindCalls, relation)
	if f.err != nil {
		return "", f.err
	}
	return f.kindsByRelation[relation], nil
}

func (f *fakeCatalog) Functions(context.Context, ...schema.GetOpt) ([]schema.Function, error) {
	return f.functions, f.err
}

func (f *fakeCatalog) Views(context.Context, ...schema.GetOpt) ([]schema.View, error) {
	return f.views, f.err
}

func newFakeAdapter(conn *fakeConnection, catalog *fakeCatalog) *Adapter {
	return New(conn, catalog, WithLogger(log.NoopLogger()))
}

func pgError(code string) error {
	return fmt.Errorf("exec: %w", &pgconn.PgError{Code: code, Message: "sqlstate " + code})
}

func strPtr(s string) *string {
	return &s
}

func activeUsersIndex(name, columns string) schema.Index {
	return schema.Index{
		Name:            name,
		OwningRelation:  schema.SchemaQualifiedName{SchemaName: "public", EscapedName: `"active_users"`},
		GetIndexDefStmt: schema.GetIndexDefStatement(fmt.Sprintf("CREATE INDEX %s ON active_users USING btree (%s)", name, columns)),
	}
}
