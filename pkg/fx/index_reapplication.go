package fx

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/go-cmp/cmp"
	"github.com/stripe/pg-schema-fx/internal/pgidentifier"
	internalschema "github.com/stripe/pg-schema-fx/internal/schema"
	"github.com/stripe/pg-schema-fx/internal/set"
	"github.com/stripe/pg-schema-fx/pkg/schema"
)

type (
	ReapplyOpt func(*reapplyOptions)

	reapplyOptions struct {
		replayTarget string
		verify       bool
	}
)

// WithReplayTarget replays the indexes onto another relation, for operations that rename the relation. The
// `ON <relation>` clause of every captured definition is rewritten to the target.
func WithReplayTarget(relation string) ReapplyOpt {
	return func(o *reapplyOptions) {
		o.replayTarget = relation
	}
}

// WithVerifyReplay re-reads the catalog once every index is replayed and fails if the indexes on the relation are not
// the captured ones.
func WithVerifyReplay() ReapplyOpt {
	return func(o *reapplyOptions) {
		o.verify = true
	}
}

// WithIndexReapplication snapshots the indexes on the relation, runs op (usually a drop followed by a create) and
// replays the snapshot.
//
// The operation runs only if the snapshot was taken. Its error is returned as-is and nothing is replayed. Replay
// uses the captured CREATE INDEX statements verbatim, in snapshot order, and stops at the first failure; indexes
// replayed before it are not removed. There is no IF NOT EXISTS: running twice without an intervening drop fails on
// the duplicate index.
func (a *Adapter) WithIndexReapplication(ctx context.Context, relation string, op func(ctx context.Context) error, opts ...ReapplyOpt) error {
	options := reapplyOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	indexes, err := a.catalog.IndexesOn(ctx, relation)
	if err != nil {
		return &IntrospectionError{Target: "indexes on " + relation, Err: err}
	}
	if len(indexes) == 0 {
		return op(ctx)
	}

	if err := op(ctx); err != nil {
		return err
	}

	target := relation
	if options.replayTarget != "" {
		target = options.replayTarget
	}
	for _, idx := range indexes {
		if err := a.replayIndex(ctx, target, options, idx); err != nil {
			return err
		}
	}

	if options.verify {
		return a.verifyReplay(ctx, target, indexes)
	}
	return nil
}

func (a *Adapter) replayIndex(ctx context.Context, target string, options reapplyOptions, idx schema.Index) error {
	stmt := idx.GetIndexDefStmt
	if options.replayTarget != "" {
		var err error
		stmt, err = stmt.OnRelation(a.conn.QuoteIdentifier(options.replayTarget))
		if err != nil {
			return &IndexReapplicationError{Relation: target, Index: idx, Err: fmt.Errorf("retargeting index: %w", err)}
		}
	}

	name := replayedIndexName(idx, options.replayTarget)
	kind, err := a.catalog.RelationKind(ctx, name)
	if err != nil {
		return &IndexReapplicationError{
			Relation: target,
			Index:    idx,
			Err:      &IntrospectionError{Target: "relation " + name, Err: err},
		}
	}
	if kind.Exists() {
		return &IndexReapplicationError{
			Relation:  target,
			Index:     idx,
			Collision: kind,
			Err:       fmt.Errorf("relation %s already exists", name),
		}
	}

	if err := a.conn.Execute(ctx, stmt.ToSQL()); err != nil {
		return &IndexReapplicationError{Relation: target, Index: idx, Err: err}
	}
	a.config.logger.Infof("Reapplied index %s on %s", idx.Name, target)
	return nil
}

// replayedIndexName is the quoted name the index will have once replayed. An index always lives in the schema of
// its relation; an unqualified replay target resolves through the search_path, just like the CREATE INDEX will.
func replayedIndexName(idx schema.Index, replayTarget string) string {
	indexName := pgidentifier.ForceQuoteIdentifier(idx.Name)
	schemaName := idx.OwningRelation.SchemaName
	if replayTarget != "" {
		parts := pgidentifier.SplitQualifiedName(replayTarget)
		if len(parts) < 2 {
			return indexName
		}
		schemaName = pgidentifier.Unquote(parts[len(parts)-2])
	}
	return pgidentifier.ForceQuoteIdentifier(schemaName) + "." + indexName
}

func (a *Adapter) verifyReplay(ctx context.Context, target string, snapshot []schema.Index) error {
	replayed, err := a.catalog.IndexesOn(ctx, target)
	if err != nil {
		return &IntrospectionError{Target: "indexes on " + target, Err: err}
	}

	expected, err := relationIndependentIndexes(snapshot)
	if err != nil {
		return &IndexReapplicationError{Relation: target, Err: err}
	}
	actual, err := relationIndependentIndexes(replayed)
	if err != nil {
		return &IndexReapplicationError{Relation: target, Err: err}
	}

	expectedHash, err := internalschema.IndexesHash(expected)
	if err != nil {
		return err
	}
	actualHash, err := internalschema.IndexesHash(actual)
	if err != nil {
		return err
	}
	if expectedHash == actualHash {
		a.config.logger.Infof("Verified %d indexes on %s (fingerprint %s)", len(replayed), target, actualHash)
		return nil
	}

	getStmt := func(idx schema.Index) string {
		return string(idx.GetIndexDefStmt)
	}
	expectedSet := set.NewWithKey(getStmt, expected...)
	actualSet := set.NewWithKey(getStmt, actual...)

	// Report the first captured index that did not come back. If every captured index came back, report the first
	// unexpected one instead.
	var culprit schema.Index
	if missing := set.Difference(expectedSet, actualSet); len(missing) > 0 {
		culprit = missing[0]
	} else if unexpected := set.Difference(actualSet, expectedSet); len(unexpected) > 0 {
		culprit = unexpected[0]
	}
	return &IndexReapplicationError{
		Relation: target,
		Index:    culprit,
		Err: fmt.Errorf("indexes differ from the snapshot (-snapshot +replayed):\n%s",
			cmp.Diff(sortedStmts(expected), sortedStmts(actual))),
	}
}

const relationPlaceholder = "<relation>"

// relationIndependentIndexes strips the relation from the index definitions, so a snapshot can be compared with the
// indexes replayed onto a renamed relation.
func relationIndependentIndexes(indexes []schema.Index) ([]schema.Index, error) {
	var out []schema.Index
	for _, idx := range indexes {
		stmt, err := idx.GetIndexDefStmt.OnRelation(relationPlaceholder)
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", idx.Name, err)
		}
		out = append(out, schema.Index{
			Name:            idx.Name,
			GetIndexDefStmt: stmt,
		})
	}
	return out, nil
}

func sortedStmts(indexes []schema.Index) []string {
	var stmts []string
	for _, idx := range indexes {
		stmts = append(stmts, string(idx.GetIndexDefStmt))
	}
	sort.Strings(stmts)
	return stmts
}
