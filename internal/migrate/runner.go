package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/stripe/pg-schema-fx/internal/definition"
	"github.com/stripe/pg-schema-fx/internal/util"
	"github.com/stripe/pg-schema-fx/pkg/fx"
	"github.com/stripe/pg-schema-fx/pkg/log"
	"github.com/stripe/pg-schema-fx/pkg/schema"
)

type (
	Opt func(*Runner)

	// Runner applies manifests. All the steps of a manifest run in one transaction: a failing step rolls back the
	// steps before it, including the indexes they replayed.
	Runner struct {
		db              *sql.DB
		definitions     *definition.Store
		logger          log.Logger
		dryRun          bool
		sessionSettings map[string]string
	}
)

func WithLogger(logger log.Logger) Opt {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithDryRun applies the steps and rolls the transaction back instead of committing it.
func WithDryRun(dryRun bool) Opt {
	return func(r *Runner) {
		r.dryRun = dryRun
	}
}

// WithSessionSettings sets the given settings, e.g., statement_timeout, for the duration of the transaction.
func WithSessionSettings(settings map[string]string) Opt {
	return func(r *Runner) {
		r.sessionSettings = settings
	}
}

func NewRunner(db *sql.DB, definitions *definition.Store, opts ...Opt) *Runner {
	r := &Runner{
		db:          db,
		definitions: definitions,
		logger:      log.SimpleLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PlannedStep is a step with its definition resolved.
type PlannedStep struct {
	Step
	// SQL is the view query or function body read from the definition. It is empty for steps without a definition.
	SQL string
}

// Plan resolves the definitions of every step without touching the database, so a missing file fails the migration
// before anything runs.
func (r *Runner) Plan(manifest Manifest, direction Direction) ([]PlannedStep, error) {
	steps, err := manifest.Steps(direction)
	if err != nil {
		return nil, err
	}

	var planned []PlannedStep
	for i, step := range steps {
		p := PlannedStep{Step: step}
		if kind, ok := definitionKind(step.Action); ok {
			def, err := r.definitions.Load(kind, step.Name, step.Version)
			if err != nil {
				return nil, fmt.Errorf("%s step %d: %w", direction, i, err)
			}
			p.SQL = def.SQL
		}
		planned = append(planned, p)
	}
	return planned, nil
}

func definitionKind(action Action) (definition.Kind, bool) {
	switch action {
	case ActionCreateView, ActionUpdateView:
		return definition.KindView, true
	case ActionCreateFunction:
		return definition.KindFunction, true
	}
	return "", false
}

// Run applies the manifest in the given direction.
func (r *Runner) Run(ctx context.Context, manifest Manifest, direction Direction) (retErr error) {
	planned, err := r.Plan(manifest, direction)
	if err != nil {
		return fmt.Errorf("planning: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer util.DoOnErrOrPanic(&retErr, func() {
		_ = tx.Rollback()
	})

	if err := r.applySessionSettings(ctx, tx); err != nil {
		return err
	}

	adapter := fx.NewFromQueryable(tx, fx.WithLogger(r.logger))
	for i, step := range planned {
		r.logger.Infof("Running %s step %d/%d of %s: %s %s", direction, i+1, len(planned), manifest.Name, step.Action, step.Name)
		if err := applyStep(ctx, adapter, step); err != nil {
			return fmt.Errorf("%s step %d (%s %s): %w", direction, i, step.Action, step.Name, err)
		}
	}

	if r.dryRun {
		r.logger.Infof("Dry run: rolling back %s", manifest.Name)
		if err := tx.Rollback(); err != nil {
			return fmt.Errorf("rolling back dry run: %w", err)
		}
		return nil
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

func (r *Runner) applySessionSettings(ctx context.Context, tx *sql.Tx) error {
	var keys []string
	for k := range r.sessionSettings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		// Equivalent to SET LOCAL, which does not accept bind parameters
		if _, err := tx.ExecContext(ctx, "SELECT pg_catalog.set_config($1, $2, true)", k, r.sessionSettings[k]); err != nil {
			return fmt.Errorf("setting %s: %w", k, err)
		}
	}
	return nil
}

func applyStep(ctx context.Context, adapter *fx.Adapter, step PlannedStep) error {
	var ddlOpts []fx.DDLOpt
	if step.Materialized {
		ddlOpts = append(ddlOpts, fx.Materialized())
	}
	if step.NoData {
		ddlOpts = append(ddlOpts, fx.WithNoData())
	}
	if step.IfExists {
		ddlOpts = append(ddlOpts, fx.IfExists())
	}
	if step.Concurrently {
		ddlOpts = append(ddlOpts, fx.Concurrently())
	}

	switch step.Action {
	case ActionCreateView:
		return adapter.CreateView(ctx, step.Name, step.SQL, ddlOpts...)
	case ActionUpdateView:
		var reapplyOpts []fx.ReapplyOpt
		if step.VerifyIndexes {
			reapplyOpts = append(reapplyOpts, fx.WithVerifyReplay())
		}
		return adapter.UpdateView(ctx, step.Name, step.SQL, reapplyOpts...)
	case ActionDropView:
		return adapter.DropView(ctx, step.Name, ddlOpts...)
	case ActionRefreshMaterializedView:
		return adapter.RefreshMaterializedView(ctx, step.Name, ddlOpts...)
	case ActionCreateFunction:
		return adapter.CreateFunction(ctx, step.Name, toFunctionArguments(step.Arguments), step.Returns, step.SQL)
	case ActionDropFunction:
		return adapter.DropFunction(ctx, step.Name, ddlOpts...)
	}
	return fmt.Errorf("unknown action %q", step.Action)
}

func toFunctionArguments(args []Argument) []schema.FunctionArgument {
	var out []schema.FunctionArgument
	for _, arg := range args {
		out = append(out, schema.FunctionArgument{
			Mode:    arg.Mode,
			Name:    arg.Name,
			Type:    arg.Type,
			Default: arg.Default,
		})
	}
	return out
}
