package schema

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/mitchellh/hashstructure/v2"
)

type (
	// Object represents a schema object read from the catalog (index, view, function...)
	Object interface {
		// GetName identifies the object. It should be qualified with the schema name.
		GetName() string
	}

	// SchemaQualifiedName represents a schema object name scoped within a schema
	SchemaQualifiedName struct {
		SchemaName string
		// EscapedName is the name of the object. It should already be escaped
		EscapedName string
	}
)

func (o SchemaQualifiedName) GetName() string {
	return o.GetFQEscapedName()
}

// GetFQEscapedName gets the fully-qualified, escaped name of the schema object, including the schema name
func (o SchemaQualifiedName) GetFQEscapedName() string {
	return fmt.Sprintf("%s.%s", EscapeIdentifier(o.SchemaName), o.EscapedName)
}

// RelationKind is pg_class.relkind of a relation.
type RelationKind string

const (
	RelationKindNone             RelationKind = ""
	RelationKindTable            RelationKind = "r"
	RelationKindPartitionedTable RelationKind = "p"
	RelationKindView             RelationKind = "v"
	RelationKindMaterializedView RelationKind = "m"
	RelationKindIndex            RelationKind = "i"
	RelationKindPartitionedIndex RelationKind = "I"
	RelationKindSequence         RelationKind = "S"
)

func (k RelationKind) Exists() bool {
	return k != RelationKindNone
}

func (k RelationKind) String() string {
	switch k {
	case RelationKindNone:
		return "nonexistent relation"
	case RelationKindTable:
		return "table"
	case RelationKindPartitionedTable:
		return "partitioned table"
	case RelationKindView:
		return "view"
	case RelationKindMaterializedView:
		return "materialized view"
	case RelationKindIndex, RelationKindPartitionedIndex:
		return "index"
	case RelationKindSequence:
		return "sequence"
	}
	return fmt.Sprintf("relation (relkind=%q)", string(k))
}

var (
	// The first matching group is everything up to and including "ON [ONLY] ", the second is the relation the index is
	// built on and the third is the rest of the statement, starting at " USING".
	//
	// Identifiers are either double-quoted (with "" escapes) or bare, so an index named "CREATE INDEX x ON y" does
	// not confuse the match.
	idxOnRelationRegex = regexp.MustCompile(
		`(?s)^(CREATE (?:UNIQUE )?INDEX (?:` + identifierPattern + `) ON (?:ONLY )?)` +
			`((?:` + identifierPattern + `)(?:\.(?:` + identifierPattern + `))?)` +
			`( USING .*)$`,
	)
)

const identifierPattern = `"(?:[^"]|"")*"|[^\s".]+`

// GetIndexDefStatement is the output of pg_get_indexdef. It is a `CREATE INDEX` statement that will re-create
// the index. It is never rewritten into `IF NOT EXISTS`, so replaying it twice fails loudly.
type GetIndexDefStatement string

// ToSQL renders the statement ready to be executed.
func (i GetIndexDefStatement) ToSQL() string {
	return string(i) + ";"
}

// Relation returns the (escaped, usually schema-qualified) relation the index is defined on.
func (i GetIndexDefStatement) Relation() (string, error) {
	matches := idxOnRelationRegex.FindStringSubmatch(string(i))
	if matches == nil {
		return "", fmt.Errorf("%s follows an unexpected structure", i)
	}
	return matches[2], nil
}

// OnRelation returns the statement re-targeted to the given (already escaped) relation.
func (i GetIndexDefStatement) OnRelation(escapedRelation string) (GetIndexDefStatement, error) {
	matches := idxOnRelationRegex.FindStringSubmatch(string(i))
	if matches == nil {
		return "", fmt.Errorf("%s follows an unexpected structure", i)
	}
	return GetIndexDefStatement(matches[1] + escapedRelation + matches[3]), nil
}

// Index is the snapshot of a single index: everything required to rebuild it after the relation it
// belongs to has been dropped and recreated.
type Index struct {
	// Name is the unescaped name of the index. Indexes always live in the schema of their relation.
	Name           string
	OwningRelation SchemaQualifiedName

	// GetIndexDefStmt is the output of pg_get_indexdef
	GetIndexDefStmt GetIndexDefStatement
}

func (i Index) GetName() string {
	return i.GetSchemaQualifiedName().GetFQEscapedName()
}

func (i Index) GetSchemaQualifiedName() SchemaQualifiedName {
	return SchemaQualifiedName{
		SchemaName:  i.OwningRelation.SchemaName,
		EscapedName: EscapeIdentifier(i.Name),
	}
}

// IndexesHash fingerprints a set of index snapshots. The input order does not matter.
func IndexesHash(indexes []Index) (string, error) {
	hashVal, err := hashstructure.Hash(sortSchemaObjectsByName(indexes), hashstructure.FormatV2, nil)
	if err != nil {
		return "", fmt.Errorf("hashing indexes: %w", err)
	}
	return fmt.Sprintf("%x", hashVal), nil
}

type (
	// FunctionArgument is one argument of a function signature.
	FunctionArgument struct {
		// Mode is empty for IN arguments; otherwise OUT, INOUT or VARIADIC.
		Mode string
		// Name may be empty, since Postgres allows unnamed arguments.
		Name string
		Type string
		// Default is the default expression. nil means the argument has no default. A non-nil pointer to "0" or
		// "" is a present default.
		Default *string
	}

	Function struct {
		SchemaQualifiedName
		Arguments []FunctionArgument
		// Returns is the output of pg_get_function_result, e.g., "integer" or "SETOF record"
		Returns string
		// Language is the language of the function, e.g., "sql" or "plpgsql"
		Language string
		// FunctionDef is the statement required to completely (re)create
		// the function, as returned by `pg_get_functiondef`. It is a CREATE OR REPLACE
		// statement
		FunctionDef string
	}
)

func (a FunctionArgument) HasDefault() bool {
	return a.Default != nil
}

type View struct {
	SchemaQualifiedName
	// ViewDefinition is the select query that defines the view. It is derived from pg_get_viewdef.
	ViewDefinition string
	Materialized   bool
}

// sortSchemaObjectsByName returns a (copied) sorted list of schema objects.
func sortSchemaObjectsByName[S Object](vals []S) []S {
	return sortByKey(vals, func(v S) string {
		return v.GetName()
	})
}

func sortByKey[S any](vals []S, getValFn func(S) string) []S {
	clonedVals := make([]S, len(vals))
	copy(clonedVals, vals)
	sort.Slice(clonedVals, func(i, j int) bool {
		return getValFn(clonedVals[i]) < getValFn(clonedVals[j])
	})
	return clonedVals
}

func buildNameFromUnescaped(unescapedName, schemaName string) SchemaQualifiedName {
	return SchemaQualifiedName{
		EscapedName: EscapeIdentifier(unescapedName),
		SchemaName:  schemaName,
	}
}

func EscapeIdentifier(name string) string {
	return fmt.Sprintf("\"%s\"", name)
}
