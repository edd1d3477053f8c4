package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coreflow-cms/internal/app"
	"coreflow-cms/internal/auth"

	"github.com/spf13/cobra"
)

func usersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}

	var role, password, email string
	create := &cobra.Command{
		Use:   "create <username>",
		Short: "Create an account, or reset the password and role of an existing one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !auth.IsValidRole(role) {
				return fmt.Errorf("users create: unknown role %q", role)
			}
			if len(password) < 8 {
				return errors.New("users create: --password must be at least 8 characters")
			}
			return withApp(time.Minute, func(ctx context.Context, a *app.App) error {
				user, err := a.Accounts.Ensure(ctx, args[0], email, password, role)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "user %s (%s) ready with role %s\n", user.Username, user.ID, user.Role)
				return nil
			})
		},
	}
	create.Flags().StringVar(&role, "role", auth.RoleUser, "user, moderator or admin")
	create.Flags().StringVar(&password, "password", "", "account password")
	create.Flags().StringVar(&email, "email", "", "contact email")
	_ = create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}
