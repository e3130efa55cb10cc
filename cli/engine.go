package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gate-labs/qualgate"
	"github.com/gate-labs/qualgate/config"
	"github.com/gate-labs/qualgate/tool"
)

// buildEngine assembles an engine from the command's flags. The store
// is returned separately so callers can close it after the run.
func buildEngine(cmd *cobra.Command) (*qualgate.Engine, tool.Store, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir, err = os.Getwd()
		if err != nil {
			return nil, nil, exitError(exitFailure, "resolving working directory: %v", err)
		}
	}

	store, err := resolveStore(cmd)
	if err != nil {
		return nil, nil, err
	}

	engine, err := qualgate.NewEngine(qualgate.EngineConfig{
		Config: cfg,
		Dir:    dir,
		Logger: resolveLogger(cmd),
		Store:  store,
	})
	if err != nil {
		closeStore(store)
		return nil, nil, exitError(exitFailure, "configuring engine: %v", err)
	}
	return engine, store, nil
}

func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, exitError(exitFailure, "loading configuration: %v", err)
	}
	return cfg, nil
}

// resolveLogger honors the root --verbose and --quiet flags. Logs go to
// stderr so stdout stays parseable.
func resolveLogger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	quiet, _ := cmd.Flags().GetBool("quiet")

	if quiet {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
