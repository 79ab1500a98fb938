package queries

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

const getIndexesOnRelation = `
SELECT
    c.relname::TEXT AS index_name,
    table_c.relname::TEXT AS table_name,
    table_namespace.nspname::TEXT AS table_schema_name,
    pg_catalog.pg_get_indexdef(c.oid)::TEXT AS def_stmt
FROM pg_catalog.pg_index AS i
INNER JOIN pg_catalog.pg_class AS c ON c.oid = i.indexrelid
INNER JOIN pg_catalog.pg_class AS table_c ON table_c.oid = i.indrelid
INNER JOIN
    pg_catalog.pg_namespace AS table_namespace
    ON table_namespace.oid = table_c.relnamespace
WHERE i.indrelid = pg_catalog.to_regclass($1)
ORDER BY c.oid
`

type GetIndexesOnRelationRow struct {
	IndexName       string
	TableName       string
	TableSchemaName string
	DefStmt         string
}

// GetIndexesOnRelation returns the indexes of the relation in creation (OID) order. The relation is resolved with
// to_regclass, so an unknown relation yields no rows rather than an error.
func (q *Queries) GetIndexesOnRelation(ctx context.Context, relation string) ([]GetIndexesOnRelationRow, error) {
	rows, err := q.db.QueryContext(ctx, getIndexesOnRelation, relation)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetIndexesOnRelationRow
	for rows.Next() {
		var i GetIndexesOnRelationRow
		if err := rows.Scan(
			&i.IndexName,
			&i.TableName,
			&i.TableSchemaName,
			&i.DefStmt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getRelationKind = `
SELECT c.relkind::TEXT AS rel_kind
FROM pg_catalog.pg_class AS c
WHERE c.oid = pg_catalog.to_regclass($1)
`

// GetRelationKind returns pg_class.relkind of the relation, or an empty string if it does not exist.
func (q *Queries) GetRelationKind(ctx context.Context, relation string) (string, error) {
	row := q.db.QueryRowContext(ctx, getRelationKind, relation)
	var relKind string
	if err := row.Scan(&relKind); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return relKind, nil
}

const getFunctions = `
SELECT
    p.proname::TEXT AS func_name,
    n.nspname::TEXT AS func_schema_name,
    pg_catalog.pg_get_function_arguments(p.oid)::TEXT AS func_arguments,
    COALESCE(pg_catalog.pg_get_function_result(p.oid), '')::TEXT AS func_result,
    pg_catalog.pg_get_functiondef(p.oid)::TEXT AS func_def,
    l.lanname::TEXT AS func_lang,
    COALESCE(p.proargnames, '{}'::TEXT [])::TEXT [] AS arg_names,
    COALESCE(p.proargmodes::TEXT [], '{}'::TEXT []) AS arg_modes
FROM pg_catalog.pg_proc AS p
INNER JOIN pg_catalog.pg_namespace AS n ON n.oid = p.pronamespace
INNER JOIN pg_catalog.pg_language AS l ON l.oid = p.prolang
WHERE
    p.prokind = 'f'
    AND n.nspname NOT IN ('pg_catalog', 'information_schema')
    AND n.nspname !~ '^pg_toast'
    AND n.nspname !~ '^pg_temp'
    -- Exclude functions belonging to extensions
    AND NOT EXISTS (
        SELECT 1
        FROM pg_catalog.pg_depend AS d
        WHERE
            d.classid = 'pg_catalog.pg_proc'::REGCLASS
            AND d.objid = p.oid
            AND d.deptype = 'e'
    )
ORDER BY n.nspname, p.proname, p.oid
`

type GetFunctionsRow struct {
	FuncName       string
	FuncSchemaName string
	FuncArguments  string
	FuncResult     string
	FuncDef        string
	FuncLang       string
	ArgNames       []string
	ArgModes       []string
}

func (q *Queries) GetFunctions(ctx context.Context) ([]GetFunctionsRow, error) {
	rows, err := q.db.QueryContext(ctx, getFunctions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetFunctionsRow
	for rows.Next() {
		var i GetFunctionsRow
		if err := rows.Scan(
			&i.FuncName,
			&i.FuncSchemaName,
			&i.FuncArguments,
			&i.FuncResult,
			&i.FuncDef,
			&i.FuncLang,
			pq.Array(&i.ArgNames),
			pq.Array(&i.ArgModes),
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getViews = `
SELECT
    c.relname::TEXT AS view_name,
    n.nspname::TEXT AS schema_name,
    pg_catalog.pg_get_viewdef(c.oid)::TEXT AS view_definition,
    (c.relkind = 'm') AS is_materialized
FROM pg_catalog.pg_class AS c
INNER JOIN pg_catalog.pg_namespace AS n ON n.oid = c.relnamespace
WHERE
    c.relkind IN ('v', 'm')
    AND n.nspname NOT IN ('pg_catalog', 'information_schema')
    AND n.nspname !~ '^pg_toast'
    AND n.nspname !~ '^pg_temp'
    -- Exclude views belonging to extensions
    AND NOT EXISTS (
        SELECT 1
        FROM pg_catalog.pg_depend AS d
        WHERE
            d.classid = 'pg_catalog.pg_class'::REGCLASS
            AND d.objid = c.oid
            AND d.deptype = 'e'
    )
ORDER BY n.nspname, c.relname
`

type GetViewsRow struct {
	ViewName       string
	SchemaName     string
	ViewDefinition string
	IsMaterialized bool
}

func (q *Queries) GetViews(ctx context.Context) ([]GetViewsRow, error) {
	rows, err := q.db.QueryContext(ctx, getViews)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetViewsRow
	for rows.Next() {
		var i GetViewsRow
		if err := rows.Scan(
			&i.ViewName,
			&i.SchemaName,
			&i.ViewDefinition,
			&i.IsMaterialized,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
