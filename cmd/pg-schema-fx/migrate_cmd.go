package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/stripe/pg-schema-fx/internal/definition"
	"github.com/stripe/pg-schema-fx/internal/migrate"
	"github.com/stripe/pg-schema-fx/pkg/log"
)

type migrateFlags struct {
	manifestPath      string
	definitionsDir    string
	direction         string
	dryRun            bool
	skipConfirmPrompt bool
	statementTimeout  time.Duration
	lockTimeout       time.Duration
	sessionSettings   string
}

func buildMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply a migration manifest. Indexes on updated views are reapplied in the same transaction",
	}

	connFlags := createConnectionFlags(cmd)
	var flags migrateFlags
	cmd.Flags().StringVar(&flags.manifestPath, "manifest", "", "Path to the migration manifest (YAML)")
	mustMarkFlagAsRequired(cmd, "manifest")
	cmd.Flags().StringVar(&flags.definitionsDir, "definitions-dir", ".", "Directory containing the views/ and functions/ definition files")
	cmd.Flags().StringVar(&flags.direction, "direction", string(migrate.DirectionUp), "Direction to run the manifest in: up or down")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Apply the migration and roll it back instead of committing")
	cmd.Flags().BoolVar(&flags.skipConfirmPrompt, "skip-confirm-prompt", false, "Skips prompt asking for user to confirm before applying")
	cmd.Flags().DurationVar(&flags.statementTimeout, "statement-timeout", 0, "statement_timeout for the migration's transaction. Zero leaves the server setting")
	cmd.Flags().DurationVar(&flags.lockTimeout, "lock-timeout", 0, "lock_timeout for the migration's transaction. Zero leaves the server setting")
	cmd.Flags().StringVar(&flags.sessionSettings, "session-settings", "", "Additional settings for the migration's transaction in logfmt format, e.g., 'work_mem=64MB search_path=app'")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		connConfig, err := parseConnectionFlags(connFlags)
		if err != nil {
			return err
		}
		direction := migrate.Direction(flags.direction)
		if direction != migrate.DirectionUp && direction != migrate.DirectionDown {
			return fmt.Errorf("invalid direction %q: must be %s or %s", flags.direction, migrate.DirectionUp, migrate.DirectionDown)
		}
		settings, err := flags.buildSessionSettings()
		if err != nil {
			return err
		}

		manifest, err := migrate.LoadFile(flags.manifestPath)
		if err != nil {
			return err
		}

		connPool, err := openDbWithPgxConfig(connConfig)
		if err != nil {
			return err
		}
		defer connPool.Close()

		runner := migrate.NewRunner(connPool,
			definition.NewStore(os.DirFS(flags.definitionsDir)),
			migrate.WithLogger(log.SimpleLogger()),
			migrate.WithDryRun(flags.dryRun),
			migrate.WithSessionSettings(settings),
		)
		planned, err := runner.Plan(manifest, direction)
		if err != nil {
			return err
		}
		cmdPrintln(cmd, header(fmt.Sprintf("Review %s (%s)", manifest.Name, direction)))
		cmdPrintln(cmd, planToPrettyS(planned))

		if !flags.skipConfirmPrompt {
			if err := mustContinuePrompt(fmt.Sprintf("Apply %d step(s)?", len(planned))); err != nil {
				return err
			}
		}

		if err := runner.Run(cmd.Context(), manifest, direction); err != nil {
			return err
		}
		if flags.dryRun {
			cmdPrintln(cmd, "Dry run complete. Nothing was committed")
		} else {
			cmdPrintln(cmd, "Migration applied")
		}
		return nil
	}

	return cmd
}

func (f migrateFlags) buildSessionSettings() (map[string]string, error) {
	settings, err := logFmtToMap(f.sessionSettings)
	if err != nil {
		return nil, fmt.Errorf("parsing session settings: %w", err)
	}
	for key, timeout := range map[string]time.Duration{
		"statement_timeout": f.statementTimeout,
		"lock_timeout":      f.lockTimeout,
	} {
		if timeout <= 0 {
			continue
		}
		if _, ok := settings[key]; ok {
			return nil, fmt.Errorf("%s is set both by its flag and in the session settings", key)
		}
		settings[key] = fmt.Sprintf("%dms", timeout.Milliseconds())
	}
	return settings, nil
}

func planToPrettyS(planned []migrate.PlannedStep) string {
	sb := strings.Builder{}
	if len(planned) == 0 {
		sb.WriteString("No steps\n")
	}
	for i, step := range planned {
		sb.WriteString(fmt.Sprintf("%d. %s %s", i+1, step.Action, step.Name))
		if step.Version > 0 {
			sb.WriteString(fmt.Sprintf(" (v%02d)", step.Version))
		}
		sb.WriteString("\n")
		if len(step.SQL) > 0 {
			for _, line := range strings.Split(step.SQL, "\n") {
				sb.WriteString("\t" + line + "\n")
			}
		}
	}
	return sb.String()
}
