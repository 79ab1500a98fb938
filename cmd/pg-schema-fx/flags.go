package main

import (
	"fmt"
	"strings"

	"github.com/go-logfmt/logfmt"
	"github.com/jackc/pgx/v4"
	"github.com/spf13/cobra"
	"github.com/stripe/pg-schema-fx/pkg/schema"
)

type connectionFlags struct {
	dsn string
}

func createConnectionFlags(cmd *cobra.Command) *connectionFlags {
	var c connectionFlags
	cmd.Flags().StringVar(&c.dsn, "dsn", "", "Connection string for the database (DB password can be specified through PGPASSWORD environment variable)")
	mustMarkFlagAsRequired(cmd, "dsn")
	return &c
}

func parseConnectionFlags(flags *connectionFlags) (*pgx.ConnConfig, error) {
	connConfig, err := pgx.ParseConfig(flags.dsn)
	if err != nil {
		return nil, fmt.Errorf("could not parse connection string: %w", err)
	}
	return connConfig, nil
}

type schemaFilterFlags struct {
	includeSchemas []string
	excludeSchemas []string
}

func createSchemaFilterFlags(cmd *cobra.Command) *schemaFilterFlags {
	var f schemaFilterFlags
	cmd.Flags().StringArrayVar(&f.includeSchemas, "include-schema", nil, "Include the specified schema. Can be repeated. Defaults to every schema outside of pg_catalog and information_schema")
	cmd.Flags().StringArrayVar(&f.excludeSchemas, "exclude-schema", nil, "Exclude the specified schema. Can be repeated")
	return &f
}

func (f *schemaFilterFlags) toGetOpts() []schema.GetOpt {
	var opts []schema.GetOpt
	if len(f.includeSchemas) > 0 {
		opts = append(opts, schema.WithIncludeSchemas(f.includeSchemas...))
	}
	if len(f.excludeSchemas) > 0 {
		opts = append(opts, schema.WithExcludeSchemas(f.excludeSchemas...))
	}
	return opts
}

func mustMarkFlagAsRequired(cmd *cobra.Command, flagName string) {
	if err := cmd.MarkFlagRequired(flagName); err != nil {
		panic(err)
	}
}

// logFmtToMap parses every logfmt key/value pair in the string. A key may only appear once.
func logFmtToMap(logFmt string) (map[string]string, error) {
	logMap := make(map[string]string)
	decoder := logfmt.NewDecoder(strings.NewReader(logFmt))
	for decoder.ScanRecord() {
		for decoder.ScanKeyval() {
			key := string(decoder.Key())
			if _, ok := logMap[key]; ok {
				return nil, fmt.Errorf("duplicate key %q in logfmt", key)
			}
			logMap[key] = string(decoder.Value())
		}
	}
	if err := decoder.Err(); err != nil {
		return nil, err
	}
	return logMap, nil
}
