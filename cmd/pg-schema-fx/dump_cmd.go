package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stripe/pg-schema-fx/pkg/fx"
	"github.com/stripe/pg-schema-fx/pkg/log"
	"github.com/stripe/pg-schema-fx/pkg/schema"
)

func buildDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump the views and functions of a database as SQL",
	}

	connFlags := createConnectionFlags(cmd)
	filterFlags := createSchemaFilterFlags(cmd)
	var skipViews, skipFunctions bool
	cmd.Flags().BoolVar(&skipViews, "skip-views", false, "Do not dump views and materialized views")
	cmd.Flags().BoolVar(&skipFunctions, "skip-functions", false, "Do not dump functions")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		connConfig, err := parseConnectionFlags(connFlags)
		if err != nil {
			return err
		}
		connPool, err := openDbWithPgxConfig(connConfig)
		if err != nil {
			return err
		}
		defer connPool.Close()

		adapter := fx.NewFromQueryable(connPool, fx.WithLogger(log.NoopLogger()))
		opts := filterFlags.toGetOpts()

		var stmts []string
		if !skipViews {
			views, err := adapter.Views(cmd.Context(), opts...)
			if err != nil {
				return err
			}
			for _, v := range views {
				stmts = append(stmts, viewToSQL(v))
			}
		}
		if !skipFunctions {
			functions, err := adapter.Functions(cmd.Context(), opts...)
			if err != nil {
				return err
			}
			for _, f := range functions {
				stmts = append(stmts, functionToSQL(f))
			}
		}

		if len(stmts) == 0 {
			cmdPrintln(cmd, "-- Nothing to dump")
			return nil
		}
		cmdPrintln(cmd, strings.Join(stmts, "\n\n"))
		return nil
	}

	return cmd
}

func viewToSQL(v schema.View) string {
	kind := "VIEW"
	if v.Materialized {
		kind = "MATERIALIZED VIEW"
	}
	return fmt.Sprintf("CREATE %s %s AS\n%s", kind, v.GetFQEscapedName(), withSemicolon(v.ViewDefinition))
}

func functionToSQL(f schema.Function) string {
	return withSemicolon(f.FunctionDef)
}

func withSemicolon(stmt string) string {
	stmt = strings.TrimRight(stmt, " \t\n")
	if strings.HasSuffix(stmt, ";") {
		return stmt
	}
	return stmt + ";"
}
