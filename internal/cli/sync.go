package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"offline-quiz-service/internal/config"
)

// NewSyncCmd runs one question sync and reports the cache state.
func NewSyncCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Sync the local question cache with the remote bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(*configPath)
			if err != nil {
				return err
			}
			return runSync(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
}

func runSync(ctx context.Context, cfg config.Config, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	deps, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	updated, _ := deps.syncer.Refresh(ctx)
	status := deps.syncer.Status()
	count, err := deps.cache.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "updated: %t\nversion: %d\nquestions: %d\n", updated, status.LocalVersion, count)
	if status.LastError != "" {
		fmt.Fprintf(out, "last error: %s\n", status.LastError)
	}
	return nil
}
