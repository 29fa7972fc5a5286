package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	jsonOutput bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "chroniclectl <command>",
		Short:         "Operator tooling for chronicles issuance deployments",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output as JSON")

	root.AddGroup(
		&cobra.Group{ID: "deployment", Title: "Deployment:"},
		&cobra.Group{ID: "access", Title: "Access:"},
		&cobra.Group{ID: "data", Title: "Data:"},
	)

	root.AddCommand(newDeriveCmd(opts))
	root.AddCommand(newInitDeploymentCmd(opts))
	root.AddCommand(newValidateCmd(opts))
	root.AddCommand(newKeygenCmd(opts))
	root.AddCommand(newTokenCmd(opts))
	root.AddCommand(newExportCmd(opts))
	return root
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "chroniclectl:", err)
		os.Exit(1)
	}
}
