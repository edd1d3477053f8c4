package main

import (
	"context"
	"fmt"
	"time"

	"coreflow-cms/internal/app"
	"coreflow-cms/internal/auth"

	"github.com/spf13/cobra"
)

func commentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Moderate comments",
	}
	cmd.AddCommand(
		moderateCommand("approve", "Make the given comments public", true),
		moderateCommand("disapprove", "Hide the given comments", false),
	)
	return cmd
}

func moderateCommand(use, short string, approve bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(time.Minute, func(ctx context.Context, a *app.App) error {
				apply := a.Comments.Disapprove
				if approve {
					apply = a.Comments.Approve
				}
				n, err := apply(ctx, auth.Operator(), args)
				if err != nil {
					return err
				}
				a.InvalidatePublic(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "%d comment(s) updated\n", n)
				cacheNotice(cmd.OutOrStdout(), a)
				return nil
			})
		},
	}
}
