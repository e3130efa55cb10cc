package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gate-labs/qualgate/tool"
)

// resolveStore opens the tool-definition store selected by --store-path.
// A .json path gets the file backend, anything else SQLite. The default
// lives under the user's home directory.
func resolveStore(cmd *cobra.Command) (tool.Store, error) {
	path, _ := cmd.Flags().GetString("store-path")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, exitError(exitFailure, "resolving home directory: %v", err)
		}
		path = filepath.Join(home, ".qualgate", "qualgate.db")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, exitError(exitFailure, "creating store directory: %v", err)
	}

	if strings.HasSuffix(path, ".json") {
		store, err := tool.NewFileStore(path)
		if err != nil {
			return nil, exitError(exitFailure, "opening tool store: %v", err)
		}
		return store, nil
	}

	store, err := tool.NewSQLiteStore(tool.SQLiteStoreConfig{DSN: path})
	if err != nil {
		return nil, exitError(exitFailure, "opening tool store: %v", err)
	}
	return store, nil
}

func closeStore(store tool.Store) {
	if closer, ok := store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}
