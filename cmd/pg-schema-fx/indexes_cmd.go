package main

import (
	"fmt"

	"github.com/kr/pretty"
	"github.com/spf13/cobra"
	"github.com/stripe/pg-schema-fx/pkg/schema"
)

func buildIndexesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indexes <relation>",
		Short: "Print the indexes that would be reapplied if the relation were dropped and recreated, with their fingerprint",
		Args:  cobra.ExactArgs(1),
	}

	connFlags := createConnectionFlags(cmd)
	var verbose bool
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Print the full snapshot of every index")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		relation := args[0]
		connConfig, err := parseConnectionFlags(connFlags)
		if err != nil {
			return err
		}
		connPool, err := openDbWithPgxConfig(connConfig)
		if err != nil {
			return err
		}
		defer connPool.Close()

		indexes, err := schema.GetIndexes(cmd.Context(), connPool, relation)
		if err != nil {
			return err
		}
		hash, err := schema.GetIndexesHash(cmd.Context(), connPool, relation)
		if err != nil {
			return err
		}

		cmdPrintln(cmd, header(fmt.Sprintf("Indexes on %s", resolvedRelation(relation, indexes))))
		if len(indexes) == 0 {
			cmdPrintln(cmd, "No indexes")
		}
		for _, idx := range indexes {
			if verbose {
				cmdPrintf(cmd, "%# v\n", pretty.Formatter(idx))
				continue
			}
			cmdPrintln(cmd, idx.GetIndexDefStmt.ToSQL())
		}
		cmdPrintf(cmd, "fingerprint: %s\n", hash)
		return nil
	}

	return cmd
}

// resolvedRelation is the schema-qualified relation the indexes are defined on, as rendered by pg_get_indexdef. It
// falls back to the name given on the command line when there are no indexes to resolve it from.
func resolvedRelation(relation string, indexes []schema.Index) string {
	if len(indexes) == 0 {
		return relation
	}
	resolved, err := indexes[0].GetIndexDefStmt.Relation()
	if err != nil {
		return relation
	}
	return resolved
}
