package main

import (
	"context"
	"fmt"
	"time"

	"coreflow-cms/internal/app"
	"coreflow-cms/internal/seed"

	"github.com/spf13/cobra"
)

func seedCommand() *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the bundled case studies",
		Long:  "Seed upserts the bundled case studies by slug and creates the client, location and industry terms they reference.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(2*time.Minute, func(ctx context.Context, a *app.App) error {
				entries, err := seed.Bundled()
				if err != nil {
					return err
				}
				res, err := seed.Run(ctx, a.Terms, a.CaseStudies, entries, reset)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seed completed: %d created, %d updated, %d removed\n", res.Created, res.Updated, res.Removed)
				cacheNotice(cmd.OutOrStdout(), a)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "delete every case study (and its comments) first")
	return cmd
}
