package pgengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/stripe/pg-schema-fx/internal/pgidentifier"
	"github.com/stripe/pg-schema-fx/internal/util"
)

type ConnectionOption string

const (
	ConnectionOptionDatabase ConnectionOption = "dbname"
	ConnectionOptionHost     ConnectionOption = "host"
	ConnectionOptionPort     ConnectionOption = "port"
	ConnectionOptionUser     ConnectionOption = "user"
	ConnectionOptionSSLMode  ConnectionOption = "sslmode"
)

type ConnectionOptions map[ConnectionOption]string

// With returns a copy of the options with the option set.
func (c ConnectionOptions) With(option ConnectionOption, value string) ConnectionOptions {
	clone := make(ConnectionOptions, len(c)+1)
	for k, v := range c {
		clone[k] = v
	}
	clone[option] = value
	return clone
}

// ToDSN renders the options as a keyword/value connection string. Keys are sorted so the DSN is deterministic.
func (c ConnectionOptions) ToDSN() string {
	var pairs []string
	for k, v := range c {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, " ")
}

// ErrPostgresNotFound is returned by StartEngine when no postgres binary is on the PATH. Test suites use it to skip.
var ErrPostgresNotFound = errors.New("postgres executable not found in path")

const (
	superuser = "postgres"
	port      = 5432

	startupTimeout      = 10 * time.Second
	startupPollInterval = 250 * time.Millisecond
)

type (
	EngineOpt func(*engineOptions)

	engineOptions struct {
		serverSettings map[string]string
	}
)

// WithServerSetting passes a "-c name=value" setting to the server, e.g., to lower max_connections.
func WithServerSetting(name, value string) EngineOpt {
	return func(o *engineOptions) {
		o.serverSettings[name] = value
	}
}

// Engine is a throwaway Postgres cluster for tests. It listens on a unix socket only.
type Engine struct {
	process  *os.Process
	dataDir  string
	sockDir  string
	cleanups []func()
	closed   bool
}

// StartEngine starts a cluster using the postgres binary on the PATH. initdb must sit next to it.
func StartEngine(opts ...EngineOpt) (*Engine, error) {
	postgresPath, err := exec.LookPath("postgres")
	if err != nil {
		return nil, ErrPostgresNotFound
	}
	return StartEngineUsingPgDir(filepath.Dir(postgresPath), opts...)
}

func StartEngineUsingPgDir(pgDir string, opts ...EngineOpt) (_ *Engine, retErr error) {
	options := engineOptions{
		serverSettings: map[string]string{
			"fsync":           "off",
			"log_checkpoints": "false",
		},
	}
	for _, opt := range opts {
		opt(&options)
	}

	e := &Engine{}
	defer util.DoOnErrOrPanic(&retErr, func() {
		_ = e.Close()
	})

	var err error
	if e.dataDir, err = e.tempDir("postgresql-"); err != nil {
		return nil, err
	}
	if e.sockDir, err = e.tempDir("pgsock-"); err != nil {
		return nil, err
	}

	initdb := exec.Command(filepath.Join(pgDir, "initdb"), "-U", superuser, "-D", e.dataDir, "-A", "trust")
	if output, err := initdb.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("running initdb: %w\n%s", err, output)
	}

	args := []string{"-D", e.dataDir, "-k", e.sockDir, "-p", strconv.Itoa(port), "-h", ""}
	for name, value := range options.serverSettings {
		args = append(args, "-c", fmt.Sprintf("%s=%s", name, value))
	}
	server := exec.Command(filepath.Join(pgDir, "postgres"), args...)
	server.Stdout = os.Stdout
	server.Stderr = os.Stderr
	if err := server.Start(); err != nil {
		return nil, fmt.Errorf("starting postgres: %w", err)
	}
	e.process = server.Process

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	if err := e.waitUntilReady(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) tempDir(pattern string) (string, error) {
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		return "", err
	}
	e.cleanups = append(e.cleanups, func() { _ = os.RemoveAll(dir) })
	return dir, nil
}

func (e *Engine) waitUntilReady(ctx context.Context) error {
	connConfig, err := pgx.ParseConfig(e.GetPostgresDatabaseDSN())
	if err != nil {
		return err
	}
	for {
		conn, err := pgx.ConnectConfig(ctx, connConfig)
		if err == nil {
			return conn.Close(ctx)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres did not start serving traffic: %w", err)
		case <-time.After(startupPollInterval):
		}
	}
}

func (e *Engine) GetPostgresDatabaseConnOpts() ConnectionOptions {
	return ConnectionOptions{
		ConnectionOptionDatabase: "postgres",
		ConnectionOptionHost:     e.sockDir,
		ConnectionOptionUser:     superuser,
		ConnectionOptionPort:     strconv.Itoa(port),
		ConnectionOptionSSLMode:  "disable",
	}
}

func (e *Engine) GetPostgresDatabaseDSN() string {
	return e.GetPostgresDatabaseConnOpts().ToDSN()
}

// Close stops the server and removes its directories. It is idempotent and best effort.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	if e.process != nil {
		_ = e.process.Signal(os.Interrupt)
		_, _ = e.process.Wait()
	}
	for i := len(e.cleanups) - 1; i >= 0; i-- {
		e.cleanups[i]()
	}
	return nil
}

// CreateDatabase creates a database with a random name.
func (e *Engine) CreateDatabase() (*DB, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("generating uuid: %w", err)
	}
	return e.CreateDatabaseWithName("pgtestdb_" + id.String())
}

func (e *Engine) CreateDatabaseWithName(name string) (*DB, error) {
	conn, err := sql.Open("pgx", e.GetPostgresDatabaseDSN())
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if _, err := conn.Exec("CREATE DATABASE " + pgidentifier.ForceQuoteIdentifier(name)); err != nil {
		return nil, fmt.Errorf("creating database %s: %w", name, err)
	}
	return &DB{
		connOpts: e.GetPostgresDatabaseConnOpts().With(ConnectionOptionDatabase, name),
	}, nil
}
