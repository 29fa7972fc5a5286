package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chronicles/config"
	"chronicles/crypto"
	"chronicles/native/issuance"
)

func newDeriveCmd(opts *rootOptions) *cobra.Command {
	var (
		program string
		seed    uint64
	)
	cmd := &cobra.Command{
		Use:     "derive-authority",
		Short:   "Print the derived identities and canonical bumps of a deployment",
		GroupID: "deployment",
		RunE: func(cmd *cobra.Command, args []string) error {
			programID, err := crypto.ParseIdentity(program)
			if err != nil {
				return fmt.Errorf("--program: %w", err)
			}
			derived, err := issuance.DeriveAuthorities(programID, seed)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return printJSON(out, derived)
			}
			fmt.Fprintf(out, "config     %s  bump %d\n", derived.Config, derived.Bumps.Config)
			fmt.Fprintf(out, "authority  %s  bump %d\n", derived.Authority, derived.Bumps.Authority)
			fmt.Fprintf(out, "treasury   %s  bump %d\n", derived.Treasury, derived.Bumps.Treasury)
			fmt.Fprintf(out, "antiscam   %s  bump %d\n", derived.Antiscam, derived.Bumps.Antiscam)
			return nil
		},
	}
	cmd.Flags().StringVar(&program, "program", "", "program identity (base58)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "deployment seed")
	_ = cmd.MarkFlagRequired("program")
	return cmd
}

func newInitDeploymentCmd(opts *rootOptions) *cobra.Command {
	var (
		program string
		admin   string
		seed    uint64
		out     string
		force   bool
	)
	cmd := &cobra.Command{
		Use:     "init-deployment",
		Short:   "Write a deployment file with launch defaults and canonical bumps",
		GroupID: "deployment",
		RunE: func(cmd *cobra.Command, args []string) error {
			programID, err := crypto.ParseIdentity(program)
			if err != nil {
				return fmt.Errorf("--program: %w", err)
			}
			adminID, err := crypto.ParseIdentity(admin)
			if err != nil {
				return fmt.Errorf("--admin: %w", err)
			}
			if !force {
				if _, err := os.Stat(out); err == nil {
					return fmt.Errorf("%s exists; pass --force to overwrite", out)
				}
			}
			deployment, err := config.Default(programID, adminID, seed)
			if err != nil {
				return err
			}
			if err := config.Persist(out, deployment); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]string{"path": out})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&program, "program", "", "program identity (base58)")
	cmd.Flags().StringVar(&admin, "admin", "", "initial admin identity (base58)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "deployment seed")
	cmd.Flags().StringVar(&out, "out", "deployment.toml", "output path")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	_ = cmd.MarkFlagRequired("program")
	_ = cmd.MarkFlagRequired("admin")
	return cmd
}

type deploymentSummary struct {
	Program     crypto.Identity      `json:"program"`
	Seed        uint64               `json:"seed"`
	Admin       crypto.Identity      `json:"admin"`
	Authorities issuance.Authorities `json:"authorities"`
	Fees        issuance.FeeSettings `json:"fees"`
	Collections int                  `json:"collections"`
	Allocations int                  `json:"allocations"`
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "validate-deployment <path>",
		Short:   "Check a deployment file and print what it resolves to",
		GroupID: "deployment",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deployment, err := config.Load(args[0])
			if err != nil {
				return err
			}
			resolved, err := deployment.Resolve()
			if err != nil {
				return err
			}
			derived, err := issuance.VerifyAuthorities(resolved.Program, resolved.Seed, resolved.Params.Bumps)
			if err != nil {
				return err
			}
			fees := issuance.DefaultFeeSettings()
			if resolved.Params.Fees != nil {
				fees = *resolved.Params.Fees
			}
			summary := deploymentSummary{
				Program:     resolved.Program,
				Seed:        resolved.Seed,
				Admin:       resolved.Admin,
				Authorities: derived,
				Fees:        fees,
				Collections: len(resolved.Collections),
				Allocations: len(resolved.Allocations),
			}
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return printJSON(out, summary)
			}
			fmt.Fprintf(out, "deployment ok: config %s, %d collections, %d allocations, fee %d bps (%d/%d)\n",
				derived.Config, summary.Collections, summary.Allocations,
				fees.RateBps, fees.TreasuryPercent, fees.AntiscamPercent)
			return nil
		},
	}
}

func newKeygenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "keygen",
		Short:   "Generate a signing key and print its identity",
		GroupID: "access",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := crypto.GeneratePrivateKey()
			if err != nil {
				return err
			}
			identity := key.Identity()
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return printJSON(out, map[string]any{"identity": identity})
			}
			fmt.Fprintln(out, identity)
			return nil
		},
	}
}
