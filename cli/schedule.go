package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gate-labs/qualgate"
	"github.com/gate-labs/qualgate/daemon"
	"github.com/gate-labs/qualgate/report"
)

// NewScheduleCmd creates the "schedule" subcommand.
func NewScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule <cron-expression>",
		Short: "Run quality checks on a UTC cron schedule",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedule,
	}

	cmd.Flags().StringP("config", "c", "", "Path to a qualgate YAML configuration file")
	cmd.Flags().StringP("mode", "m", "full", "Mode preset for each scheduled run")
	cmd.Flags().StringP("scope", "s", "", "Scope to check: all | frontend | backend")
	cmd.Flags().String("dir", "", "Project directory (default: current directory)")
	cmd.Flags().Duration("timeout", 30*time.Minute, "Bound each scheduled run")
	cmd.Flags().Bool("immediate", false, "Run once immediately before waiting for the schedule")
	cmd.Flags().String("store-path", "", "Path to the tool definition store (default: ~/.qualgate/qualgate.db)")

	return cmd
}

func runSchedule(cmd *cobra.Command, args []string) error {
	engine, store, err := buildEngine(cmd)
	if err != nil {
		return err
	}
	if store != nil {
		defer closeStore(store)
	}

	mode, _ := cmd.Flags().GetString("mode")
	scopeName, _ := cmd.Flags().GetString("scope")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	immediate, _ := cmd.Flags().GetBool("immediate")

	out := cmd.OutOrStdout()
	scheduler, err := daemon.NewScheduler(daemon.SchedulerConfig{
		Runner:     engine,
		Expression: args[0],
		Logger:     resolveLogger(cmd),
		Options: qualgate.Options{
			Mode:       mode,
			Scope:      scopeName,
			RunTimeout: timeout,
		},
		OnResult: func(rep report.Report, err error) {
			if err != nil {
				fmt.Fprintf(out, "scheduled run failed: %v\n", err)
				return
			}
			fmt.Fprintf(out, "scheduled run %s: %s (%d/%d passed)\n",
				rep.Meta.RunID, rep.Classification, rep.Summary.Passed, rep.Summary.Total)
		},
	})
	if err != nil {
		return exitError(exitFailure, "%v", err)
	}

	if immediate {
		if _, err := scheduler.RunOnce(cmd.Context()); err != nil {
			fmt.Fprintf(out, "initial run failed: %v\n", err)
		}
	}

	if err := scheduler.Start(cmd.Context()); err != nil {
		return exitError(exitFailure, "starting scheduler: %v", err)
	}
	defer scheduler.Stop()

	next, err := scheduler.NextRun(time.Now())
	if err == nil {
		fmt.Fprintf(out, "Next run at %s. Press Ctrl-C to stop.\n", next.Format(time.RFC3339))
	}
	<-cmd.Context().Done()
	return nil
}
