package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gate-labs/qualgate"
	"github.com/gate-labs/qualgate/daemon"
)

// NewWatchCmd creates the "watch" subcommand.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run fast checks whenever project files change",
		RunE:  runWatch,
	}

	cmd.Flags().StringP("config", "c", "", "Path to a qualgate YAML configuration file")
	cmd.Flags().StringP("mode", "m", "fast", "Mode preset to run on each change")
	cmd.Flags().StringP("scope", "s", "", "Scope to check: all | frontend | backend")
	cmd.Flags().String("dir", "", "Project directory (default: current directory)")
	cmd.Flags().Duration("debounce", 500*time.Millisecond, "Quiet period before a change batch triggers a run")
	cmd.Flags().Duration("timeout", 0, "Bound each triggered run")
	cmd.Flags().String("store-path", "", "Path to the tool definition store (default: ~/.qualgate/qualgate.db)")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
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
	debounce, _ := cmd.Flags().GetDuration("debounce")
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = "."
	}

	out := cmd.OutOrStdout()
	watcher, err := daemon.NewWatcher(daemon.WatcherConfig{
		Dir:      dir,
		Debounce: debounce,
		Logger:   resolveLogger(cmd),
		OnChange: func(files []string) {
			rep, err := engine.Run(cmd.Context(), qualgate.Options{
				Mode:         mode,
				Scope:        scopeName,
				ChangedFiles: files,
				RunTimeout:   timeout,
			})
			if err != nil {
				fmt.Fprintf(out, "run failed: %v\n", err)
				return
			}
			fmt.Fprintf(out, "%d files changed: %s (%d passed, %d warnings, %d failed, %d skipped)\n",
				len(files), rep.Classification, rep.Summary.Passed,
				rep.Summary.Warnings, rep.Summary.Failed, rep.Summary.Skipped)
		},
	})
	if err != nil {
		return exitError(exitFailure, "creating watcher: %v", err)
	}

	if err := watcher.Start(); err != nil {
		return exitError(exitFailure, "starting watcher: %v", err)
	}
	defer func() { _ = watcher.Stop() }()

	fmt.Fprintf(out, "Watching %s (%d directories). Press Ctrl-C to stop.\n", dir, watcher.WatchedPaths())
	<-cmd.Context().Done()
	return nil
}
