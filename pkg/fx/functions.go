package fx

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/pg-schema-fx/internal/pgidentifier"
	"github.com/stripe/pg-schema-fx/pkg/schema"
)

// CreateFunction creates or replaces a function:
//
//	CREATE OR REPLACE FUNCTION <name> (<arg> <type> [DEFAULT <expr>], ...) [RETURNS <returns>] AS <sqlDefinition>;
//
// RETURNS is omitted when returns is empty, e.g., when sqlDefinition carries it or the function has OUT arguments.
// The arguments are validated before any SQL is issued.
func (a *Adapter) CreateFunction(ctx context.Context, name string, args []schema.FunctionArgument, returns, sqlDefinition string) error {
	if err := validateArguments(name, args); err != nil {
		return err
	}

	stmt := fmt.Sprintf("CREATE OR REPLACE FUNCTION %s (%s)", a.conn.QuoteIdentifier(name), renderArguments(args))
	if returns = strings.TrimSpace(returns); returns != "" {
		stmt += " RETURNS " + returns
	}
	stmt += " AS " + trimStatement(sqlDefinition) + ";"

	if err := a.conn.Execute(ctx, stmt); err != nil {
		return classifyExecErr("create function", name, err)
	}
	return nil
}

// Functions lists the user-defined functions, e.g., to dump them. It issues no DDL.
func (a *Adapter) Functions(ctx context.Context, opts ...schema.GetOpt) ([]schema.Function, error) {
	functions, err := a.catalog.Functions(ctx, opts...)
	if err != nil {
		return nil, &IntrospectionError{Target: "functions", Err: err}
	}
	return functions, nil
}

// DropFunction issues `DROP FUNCTION [IF EXISTS] <name>;`. The name must not be overloaded.
func (a *Adapter) DropFunction(ctx context.Context, name string, opts ...DDLOpt) error {
	options := buildDDLOptions(opts)

	stmt := "DROP FUNCTION "
	if options.ifExists {
		stmt += "IF EXISTS "
	}
	stmt += a.conn.QuoteIdentifier(name) + ";"

	if err := a.conn.Execute(ctx, stmt); err != nil {
		return classifyExecErr("drop function", name, err)
	}
	return nil
}

// validateArguments enforces the calling convention Postgres enforces, so the error can name the argument: once an
// input argument has a default, every following input argument needs one. Presence of the default counts, not its
// value; "0" and "" are defaults.
func validateArguments(function string, args []schema.FunctionArgument) error {
	seenNames := make(map[string]bool)
	var lastDefaulted string
	for i, arg := range args {
		if arg.Type == "" {
			return &InvalidArgumentError{Function: function, Argument: argumentLabel(i, arg), Reason: "type is required"}
		}
		if arg.Name != "" {
			if seenNames[arg.Name] {
				return &InvalidArgumentError{Function: function, Argument: arg.Name, Reason: "name is used more than once"}
			}
			seenNames[arg.Name] = true
		}

		if arg.Mode == "OUT" {
			if arg.HasDefault() {
				return &InvalidArgumentError{Function: function, Argument: argumentLabel(i, arg), Reason: "OUT arguments cannot have a default"}
			}
			continue
		}
		if arg.HasDefault() {
			lastDefaulted = argumentLabel(i, arg)
		} else if lastDefaulted != "" {
			return &InvalidArgumentOrderError{Function: function, Argument: argumentLabel(i, arg), AfterDefaulted: lastDefaulted}
		}
	}
	return nil
}

func argumentLabel(position int, arg schema.FunctionArgument) string {
	if arg.Name != "" {
		return arg.Name
	}
	return fmt.Sprintf("$%d", position+1)
}

// renderArguments renders the arguments in order, e.g., "a integer, b integer DEFAULT 0".
func renderArguments(args []schema.FunctionArgument) string {
	var rendered []string
	for _, arg := range args {
		var parts []string
		if arg.Mode != "" {
			parts = append(parts, arg.Mode)
		}
		if arg.Name != "" {
			parts = append(parts, pgidentifier.QuoteIdentifier(arg.Name))
		}
		parts = append(parts, arg.Type)
		if arg.HasDefault() {
			parts = append(parts, "DEFAULT", *arg.Default)
		}
		rendered = append(rendered, strings.Join(parts, " "))
	}
	return strings.Join(rendered, ", ")
}
