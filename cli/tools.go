package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gate-labs/qualgate/core"
	"github.com/gate-labs/qualgate/tool"
)

// NewToolsCmd creates the "tools" command group.
func NewToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Manage persisted tool definitions",
	}
	cmd.PersistentFlags().String("store-path", "", "Path to the tool definition store (default: ~/.qualgate/qualgate.db)")

	cmd.AddCommand(newToolsListCmd())
	cmd.AddCommand(newToolsInspectCmd())
	cmd.AddCommand(newToolsRegisterCmd())
	cmd.AddCommand(newToolsUnregisterCmd())

	return cmd
}

func newToolsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered tool definitions",
		RunE:  runToolsList,
	}
}

func runToolsList(cmd *cobra.Command, args []string) error {
	store, err := resolveStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore(store)

	defs, err := store.List(cmd.Context())
	if err != nil {
		return exitError(exitFailure, "listing tool definitions: %v", err)
	}
	if len(defs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No tool definitions registered.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDIMENSION\tCRITICAL\tARGS")
	for _, def := range defs {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n",
			def.Name, def.Dimension, def.Critical, strings.Join(def.Args, " "))
	}
	return tw.Flush()
}

func newToolsInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <name>",
		Short: "Show one tool definition as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runToolsInspect,
	}
}

func runToolsInspect(cmd *cobra.Command, args []string) error {
	store, err := resolveStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore(store)

	def, found, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return exitError(exitFailure, "loading tool definition: %v", err)
	}
	if !found {
		return exitError(exitFailure, "tool %q is not registered", args[0])
	}

	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return exitError(exitFailure, "encoding tool definition: %v", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func newToolsRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register <name>",
		Short: "Register a tool definition in the local store",
		Args:  cobra.ExactArgs(1),
		RunE:  runToolsRegister,
	}
	cmd.Flags().StringP("dimension", "d", "", "Dimension the tool serves (required)")
	cmd.Flags().StringArray("arg", nil, "Tool argument (repeatable)")
	cmd.Flags().Int("timeout-ms", 0, "Per-tool timeout in milliseconds")
	cmd.Flags().StringArray("prerequisite", nil, "Required companion tool (repeatable)")
	cmd.Flags().StringArray("alternative", nil, "Substitute tool when this one is missing (repeatable)")
	cmd.Flags().Bool("critical", false, "Treat absence of this tool as critical")
	_ = cmd.MarkFlagRequired("dimension")
	return cmd
}

func runToolsRegister(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(args[0])
	dimension, _ := cmd.Flags().GetString("dimension")
	toolArgs, _ := cmd.Flags().GetStringArray("arg")
	timeoutMS, _ := cmd.Flags().GetInt("timeout-ms")
	prereqs, _ := cmd.Flags().GetStringArray("prerequisite")
	alternatives, _ := cmd.Flags().GetStringArray("alternative")
	critical, _ := cmd.Flags().GetBool("critical")

	if !validDimension(dimension) {
		return exitError(exitFailure, "unknown dimension %q", dimension)
	}

	def := tool.Definition{
		Name:          name,
		Dimension:     dimension,
		Args:          toolArgs,
		TimeoutMS:     timeoutMS,
		Prerequisites: prereqs,
		Alternatives:  alternatives,
		Critical:      critical,
	}
	if err := def.Validate(); err != nil {
		return exitError(exitFailure, "%v", err)
	}

	store, err := resolveStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore(store)

	if err := store.Upsert(cmd.Context(), def); err != nil {
		return exitError(exitFailure, "saving tool definition: %v", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Registered tool: %s (dimension=%s)\n", def.Name, def.Dimension)
	return nil
}

func newToolsUnregisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unregister <name>",
		Short: "Remove a tool definition from the local store",
		Args:  cobra.ExactArgs(1),
		RunE:  runToolsUnregister,
	}
}

func runToolsUnregister(cmd *cobra.Command, args []string) error {
	store, err := resolveStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore(store)

	if err := store.Delete(cmd.Context(), args[0]); err != nil {
		if errors.Is(err, tool.ErrDefinitionNotFound) {
			return exitError(exitFailure, "tool %q is not registered", args[0])
		}
		return exitError(exitFailure, "removing tool definition: %v", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Unregistered tool: %s\n", args[0])
	return nil
}

func validDimension(name string) bool {
	for _, dim := range core.KnownDimensions() {
		if string(dim) == name {
			return true
		}
	}
	return false
}
