package migrate

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/stripe/pg-schema-fx/internal/definition"
	"github.com/stripe/pg-schema-fx/internal/pgengine"
	"github.com/stripe/pg-schema-fx/pkg/fx"
	"github.com/stripe/pg-schema-fx/pkg/log"
	"github.com/stripe/pg-schema-fx/pkg/schema"
)

var testDefinitions = fstest.MapFS{
	"views/active_users_v01.sql":   {Data: []byte("SELECT id, email FROM users WHERE active;\n")},
	"views/active_users_v02.sql":   {Data: []byte("SELECT id, email, lower(email) AS normalized_email FROM users WHERE active;\n")},
	"views/inactive_users_v01.sql": {Data: []byte("SELECT id FROM users WHERE NOT active")},
	"functions/add_v01.sql":        {Data: []byte("$$ SELECT a + b $$ LANGUAGE sql IMMUTABLE")},
}

func TestPlan(t *testing.T) {
	runner := NewRunner(nil, definition.NewStore(testDefinitions), WithLogger(log.NoopLogger()))
	manifest, err := Parse(strings.NewReader(updateActiveUsersManifest))
	require.NoError(t, err)

	planned, err := runner.Plan(manifest, DirectionUp)
	require.NoError(t, err)
	require.Len(t, planned, 2)
	assert.Equal(t, "SELECT id, email, lower(email) AS normalized_email FROM users WHERE active;", planned[0].SQL)
	assert.Equal(t, "$$ SELECT a + b $$ LANGUAGE sql IMMUTABLE", planned[1].SQL)

	planned, err = runner.Plan(manifest, DirectionDown)
	require.NoError(t, err)
	require.Len(t, planned, 2)
	assert.Empty(t, planned[0].SQL, "drops have no definition")
	assert.Equal(t, "SELECT id, email FROM users WHERE active;", planned[1].SQL)
}

func TestPlanMissingDefinition(t *testing.T) {
	runner := NewRunner(nil, definition.NewStore(testDefinitions))
	_, err := runner.Plan(Manifest{
		Name: "missing",
		Up:   []Step{{Action: ActionUpdateView, Name: "active_users", Version: 3}},
	}, DirectionUp)
	assert.ErrorIs(t, err, definition.ErrNotFound)
}

type runnerTestSuite struct {
	suite.Suite

	engine *pgengine.Engine
	db     *pgengine.DB
	conn   *sql.DB
}

func (suite *runnerTestSuite) SetupSuite() {
	engine, err := pgengine.StartEngine()
	if errors.Is(err, pgengine.ErrPostgresNotFound) {
		suite.T().Skip(err.Error())
	}
	suite.Require().NoError(err)
	suite.engine = engine
}

func (suite *runnerTestSuite) TearDownSuite() {
	if suite.engine != nil {
		suite.engine.Close()
	}
}

func (suite *runnerTestSuite) SetupTest() {
	db, err := suite.engine.CreateDatabase()
	suite.Require().NoError(err)
	suite.db = db
	suite.Require().NoError(db.ApplyDDL(`
		CREATE TABLE users(id INT PRIMARY KEY, email TEXT NOT NULL, active BOOLEAN NOT NULL);
		CREATE MATERIALIZED VIEW active_users AS SELECT id, email FROM users WHERE active;
		CREATE UNIQUE INDEX idx_active_users_id ON active_users(id);
	`))

	conn, err := db.Open()
	suite.Require().NoError(err)
	suite.conn = conn
}

func (suite *runnerTestSuite) TearDownTest() {
	suite.Require().NoError(suite.conn.Close())
	suite.Require().NoError(suite.db.DropDB())
}

func (suite *runnerTestSuite) newRunner(opts ...Opt) *Runner {
	return NewRunner(suite.conn, definition.NewStore(testDefinitions), append([]Opt{WithLogger(log.SimpleLogger())}, opts...)...)
}

func (suite *runnerTestSuite) parse(manifest string) Manifest {
	m, err := Parse(strings.NewReader(manifest))
	suite.Require().NoError(err)
	return m
}

func (suite *runnerTestSuite) columnCount(relation string) int {
	var count int
	suite.Require().NoError(suite.conn.QueryRow(
		"SELECT count(*) FROM pg_attribute WHERE attrelid = to_regclass($1) AND attnum > 0", relation,
	).Scan(&count))
	return count
}

func (suite *runnerTestSuite) TestUpAndDown() {
	manifest := suite.parse(updateActiveUsersManifest)
	runner := suite.newRunner(WithSessionSettings(map[string]string{"lock_timeout": "5s"}))

	suite.Require().NoError(runner.Run(context.Background(), manifest, DirectionUp))
	suite.Equal(3, suite.columnCount("active_users"))
	indexes, err := schema.GetIndexes(context.Background(), suite.conn, "active_users")
	suite.Require().NoError(err)
	suite.Require().Len(indexes, 1)
	suite.Equal("idx_active_users_id", indexes[0].Name)

	var sum int
	suite.Require().NoError(suite.conn.QueryRow("SELECT add(1)").Scan(&sum))
	suite.Equal(1, sum)

	// lock_timeout was local to the migration's transaction
	var lockTimeout string
	suite.Require().NoError(suite.conn.QueryRow("SHOW lock_timeout").Scan(&lockTimeout))
	suite.Equal("0", lockTimeout)

	suite.Require().NoError(runner.Run(context.Background(), manifest, DirectionDown))
	suite.Equal(2, suite.columnCount("active_users"))
	indexes, err = schema.GetIndexes(context.Background(), suite.conn, "active_users")
	suite.Require().NoError(err)
	suite.Len(indexes, 1)
}

func (suite *runnerTestSuite) TestDryRun() {
	manifest := suite.parse(updateActiveUsersManifest)
	suite.Require().NoError(suite.newRunner(WithDryRun(true)).Run(context.Background(), manifest, DirectionUp))
	suite.Equal(2, suite.columnCount("active_users"))
}

func (suite *runnerTestSuite) TestFailingStepRollsBackEarlierSteps() {
	manifest := suite.parse(`
name: failing
up:
  - action: create_view
    name: inactive_users
    version: 1
  - action: drop_view
    name: missing_view
`)
	err := suite.newRunner().Run(context.Background(), manifest, DirectionUp)
	var doesNotExistErr *fx.ObjectDoesNotExistError
	suite.Require().ErrorAs(err, &doesNotExistErr)
	suite.ErrorContains(err, "up step 1 (drop_view missing_view)")

	// inactive_users was created in the rolled back transaction
	suite.Equal(0, suite.columnCount("inactive_users"))
}

func TestRunnerSuite(t *testing.T) {
	suite.Run(t, new(runnerTestSuite))
}
