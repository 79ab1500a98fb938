package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/pg-schema-fx/internal/migrate"
	"github.com/stripe/pg-schema-fx/pkg/schema"
)

func TestHeader(t *testing.T) {
	assert.Equal(t, strings.Repeat("#", 80), header(""))

	h := header("Review")
	assert.Len(t, h, 80)
	assert.Contains(t, h, " Review ")
	assert.True(t, strings.HasPrefix(h, "###"))

	long := strings.Repeat("x", 81)
	assert.Equal(t, long, header(long))
}

func TestPlanToPrettyS(t *testing.T) {
	assert.Equal(t, "No steps\n", planToPrettyS(nil))
	assert.Equal(t,
		"1. update_view active_users (v02)\n"+
			"\tSELECT id\n"+
			"\tFROM users\n"+
			"2. drop_function add\n",
		planToPrettyS([]migrate.PlannedStep{
			{
				Step: migrate.Step{Action: migrate.ActionUpdateView, Name: "active_users", Version: 2},
				SQL:  "SELECT id\nFROM users",
			},
			{Step: migrate.Step{Action: migrate.ActionDropFunction, Name: "add"}},
		}),
	)
}

func TestViewToSQL(t *testing.T) {
	name := schema.SchemaQualifiedName{SchemaName: "public", EscapedName: `"active_users"`}
	assert.Equal(t,
		"CREATE VIEW \"public\".\"active_users\" AS\n SELECT users.id\n   FROM users;",
		viewToSQL(schema.View{SchemaQualifiedName: name, ViewDefinition: " SELECT users.id\n   FROM users;"}),
	)
	assert.Equal(t,
		"CREATE MATERIALIZED VIEW \"public\".\"active_users\" AS\n SELECT 1;",
		viewToSQL(schema.View{SchemaQualifiedName: name, ViewDefinition: " SELECT 1", Materialized: true}),
	)
}

func TestFunctionToSQL(t *testing.T) {
	assert.Equal(t,
		"CREATE OR REPLACE FUNCTION public.add(a integer)\n RETURNS integer\n LANGUAGE sql\nAS $function$ SELECT a $function$;",
		functionToSQL(schema.Function{FunctionDef: "CREATE OR REPLACE FUNCTION public.add(a integer)\n RETURNS integer\n LANGUAGE sql\nAS $function$ SELECT a $function$\n"}),
	)
}

func TestResolvedRelation(t *testing.T) {
	assert.Equal(t, "active_users", resolvedRelation("active_users", nil))
	assert.Equal(t, "public.active_users", resolvedRelation("active_users", []schema.Index{
		{Name: "idx", GetIndexDefStmt: "CREATE INDEX idx ON public.active_users USING btree (id)"},
	}))
	assert.Equal(t, "active_users", resolvedRelation("active_users", []schema.Index{
		{Name: "idx", GetIndexDefStmt: "not an index definition"},
	}))
}
