package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/terratensor/geohierarchy/internal/adapters/repositories/manticore"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the Manticore relation index",
}

var indexDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop the hierarchy table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client := manticore.NewClient(cfg.ManticoreHost, cfg.ManticorePort, cfg.ManticoreConnTimeout)
		_, err := dropIndex(ctx, client)
		return err
	},
}

func init() {
	indexCmd.AddCommand(indexDropCmd)
	rootCmd.AddCommand(indexCmd)
}

// dropIndex removes the hierarchy table and reports whether there was one to drop.
func dropIndex(ctx context.Context, client *manticore.ManticoreClient) (bool, error) {
	exists, err := client.TableExists(ctx, manticore.TableHierarchy)
	if err != nil {
		return false, eris.Wrap(err, "index drop: check table")
	}
	if !exists {
		zap.L().Info("table does not exist, skipping", zap.String("table", manticore.TableHierarchy))
		return false, nil
	}

	if err := client.DropRelations(ctx); err != nil {
		return false, eris.Wrap(err, "index drop")
	}
	zap.L().Info("table dropped", zap.String("table", manticore.TableHierarchy))
	return true, nil
}
