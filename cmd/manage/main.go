// Command manage runs operator tasks against the configured store.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"coreflow-cms/internal/app"
	"coreflow-cms/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "manage",
		Short:         "CoreFlow CMS management commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(seedCommand(), imagesCommand(), commentsCommand(), usersCommand())
	return root
}

// withApp loads the configuration, opens the store and runs fn with a bounded context.
func withApp(timeout time.Duration, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a, err := app.New(ctx, cfg, app.NewLogger(cfg.LogLevel))
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	return fn(ctx, a)
}

// cacheNotice tells the operator when the server's in-process cache will keep serving the
// old pages until it expires.
func cacheNotice(w io.Writer, a *app.App) {
	if a.SharedCache() {
		return
	}
	fmt.Fprintf(w, "note: running servers use an in-process cache and show this change within %s; set REDIS_URL to share invalidation\n", a.Cfg.CacheTTL())
}
