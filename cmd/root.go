package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"virtuoso-ci/internal/app"
	"virtuoso-ci/internal/config"
	"virtuoso-ci/internal/reporting"

	"github.com/spf13/cobra"
)

// rootOptions holds the flag values of the root command.
type rootOptions struct {
	token           string
	goalID          int64
	planID          int64
	snapshotID      int64
	environment     string
	debug           bool
	configPath      string
	timeout         time.Duration
	pollConcurrency int
}

// exitError carries the exit code of a run whose outcome was already
// reported on stdout.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// rootCmd represents the base command when called without any subcommands
var rootCmd *cobra.Command

func init() {
	rootCmd = newRootCmd()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "virtuoso-ci",
		Short: "Execute Virtuoso goals, snapshots and plans from CI/CD pipelines",
		Long: `virtuoso-ci triggers the execution of a Virtuoso goal, goal snapshot or
plan, waits until every job it started has finished, and exits with
0 when all jobs passed, 2 when at least one job failed and 1 when the
run could not be completed.`,
		Example: `  virtuoso-ci --token $VIRTUOSO_TOKEN --goal_id 42
  virtuoso-ci --token $VIRTUOSO_TOKEN --goal_id 42 --snapshot_id 7 --env staging
  virtuoso-ci --token $VIRTUOSO_TOKEN --plan_id 9 --poll-concurrency 4`,
		Args: cobra.NoArgs,
		// Execute prints errors that the run has not reported; usage only via --help
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.token, "token", "", "Virtuoso API token")
	flags.Int64Var(&opts.goalID, "goal_id", 0, "ID of the Virtuoso goal to execute")
	flags.Int64Var(&opts.planID, "plan_id", 0, "ID of the Virtuoso plan to execute")
	flags.Int64Var(&opts.snapshotID, "snapshot_id", 0, "Snapshot ID of the Virtuoso goal to execute")
	flags.StringVar(&opts.environment, "env", config.DefaultEnvironment, "Virtuoso environment")
	flags.BoolVar(&opts.debug, "debug", false, "Enable HTTP request and response debugging")
	flags.StringVar(&opts.configPath, "config", "", "Configuration file layered over the user and project configuration")
	flags.DurationVar(&opts.timeout, "timeout", 0, "Abort the run after this duration (overrides polling.timeout)")
	flags.IntVar(&opts.pollConcurrency, "poll-concurrency", 0, "Parallel job status requests per plan pass (overrides polling.concurrency)")

	_ = cmd.MarkFlagRequired("token")
	cmd.MarkFlagsOneRequired("goal_id", "plan_id")
	cmd.MarkFlagsMutuallyExclusive("goal_id", "plan_id")

	cmd.SetVersionTemplate(`{{printf "virtuoso-ci version %s\n" .Version}}`)
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newSelfUpdateCmd())

	return cmd
}

func runRoot(cmd *cobra.Command, opts *rootOptions) error {
	flags := cmd.Flags()

	cfg := app.NewConfig(opts.token, opts.environment, opts.debug)
	cfg.GoalID, cfg.HasGoalID = opts.goalID, flags.Changed("goal_id")
	cfg.PlanID, cfg.HasPlanID = opts.planID, flags.Changed("plan_id")
	cfg.SnapshotID, cfg.HasSnapshotID = opts.snapshotID, flags.Changed("snapshot_id")
	cfg.ConfigPath = opts.configPath
	cfg.Timeout = opts.timeout
	cfg.PollConcurrency = opts.pollConcurrency
	cfg.Stdout = cmd.OutOrStdout()
	cfg.Stderr = cmd.ErrOrStderr()

	application, err := app.NewApplication(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := application.Run(ctx)
	if code := reporting.ExitCode(result, err); code != reporting.ExitSuccess {
		return &exitError{code: code, err: err}
	}
	return nil
}

// exitCode maps the error returned by the root command to a process exit code.
func exitCode(err error) int {
	if err == nil {
		return reporting.ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return reporting.ExitError
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the root command and exits the process with the code of its outcome.
// This is called by main.main(). It is the only place that exits the process.
func Execute() {
	err := rootCmd.Execute()
	var ee *exitError
	if err != nil && !errors.As(err, &ee) {
		// Flag, configuration and bootstrap errors have not been reported yet
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
	}
	os.Exit(exitCode(err))
}
