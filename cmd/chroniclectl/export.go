package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"chronicles/services/issuanced/index"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		driver string
		dsn    string
		out    string
		role   string
		owner  string
		since  string
		until  string
	)
	cmd := &cobra.Command{
		Use:     "export",
		Short:   "Export projected mints to a parquet file",
		GroupID: "data",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := index.Query{Role: role, Owner: owner}
			var err error
			if q.Since, err = parseBound("since", since); err != nil {
				return err
			}
			if q.Until, err = parseBound("until", until); err != nil {
				return err
			}
			store, err := index.Open(driver, dsn, nil)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()
			rows, err := store.ExportParquet(ctx, out, q)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]any{"path": out, "rows": rows})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d mints to %s\n", rows, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&driver, "index-driver", "sqlite", "index database driver (sqlite or postgres)")
	cmd.Flags().StringVar(&dsn, "index-dsn", "", "index database DSN")
	cmd.Flags().StringVar(&out, "out", "mints.parquet", "output path")
	cmd.Flags().StringVar(&role, "role", "", "only export this collection role")
	cmd.Flags().StringVar(&owner, "owner", "", "only export mints owned by this identity")
	cmd.Flags().StringVar(&since, "since", "", "inclusive RFC3339 lower bound")
	cmd.Flags().StringVar(&until, "until", "", "exclusive RFC3339 upper bound")
	_ = cmd.MarkFlagRequired("index-dsn")
	return cmd
}

func parseBound(name, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return parsed, nil
}
