package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	authsvc "github.com/wonlinemenu/refadmin/internal/service/auth"
)

func newUserCmd(env Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage admin accounts",
	}
	cmd.AddCommand(newUserCreateCmd(env))
	return cmd
}

func newUserCreateCmd(env Env) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAccounts(cmd, env, func(ctx context.Context, accounts Accounts) error {
				u, err := accounts.CreateUser(ctx, authsvc.CreateUserInput{Email: email, Password: password})
				if err != nil {
					return fmt.Errorf("user create: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created %s\t%s\n", u.ID, u.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (8 to 72 characters)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newTokensCmd(env Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Maintain refresh tokens",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired and revoked refresh tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAccounts(cmd, env, func(ctx context.Context, accounts Accounts) error {
				n, err := accounts.CleanupExpiredTokens(ctx)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired or revoked refresh tokens\n", n)
				return nil
			})
		},
	})
	return cmd
}
