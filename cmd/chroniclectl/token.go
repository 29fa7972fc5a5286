package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"chronicles/cmd/internal/secret"
	"chronicles/crypto"
	"chronicles/gateway/middleware"
)

const secretEnv = "CHRONICLES_AUTH_SECRET"

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		subject  string
		issuer   string
		audience string
		scopes   []string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:     "token",
		Short:   "Sign a bearer token for a caller identity",
		GroupID: "access",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := crypto.ParseIdentity(subject)
			if err != nil {
				return fmt.Errorf("--subject: %w", err)
			}
			key, err := secret.NewSource(secretEnv, "auth secret").Get()
			if err != nil {
				return err
			}
			token, err := middleware.IssueToken(key, middleware.TokenRequest{
				Subject:  id,
				Issuer:   issuer,
				Audience: audience,
				Scopes:   scopes,
				TTL:      ttl,
			}, time.Now())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return printJSON(out, map[string]string{"token": token})
			}
			fmt.Fprintln(out, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "caller identity (base58)")
	cmd.Flags().StringVar(&issuer, "issuer", "chronicles", "token issuer")
	cmd.Flags().StringVar(&audience, "audience", "", "token audience")
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "scopes to grant (repeatable)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
