package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/terratensor/geohierarchy/internal/adapters/downloader"
	"github.com/terratensor/geohierarchy/internal/adapters/exporters"
	"github.com/terratensor/geohierarchy/internal/adapters/repositories/manticore"
	"github.com/terratensor/geohierarchy/internal/app/services"
	"github.com/terratensor/geohierarchy/internal/core/ports"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Download, parse and build the hierarchy documents",
	RunE:  runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dl := downloader.New(cfg)

	// Интерфейс должен остаться nil, если индекс выключен
	var relations ports.RelationRepository
	if cfg.ManticoreEnabled {
		relations = manticore.NewClient(cfg.ManticoreHost, cfg.ManticorePort, cfg.ManticoreConnTimeout)
	}

	importer := services.NewImporter(cfg, dl, dl, exporters.NewWriterFactory(), relations)

	res, err := importer.Run(ctx)
	if err != nil {
		return err
	}

	zap.L().Info("hierarchy build completed",
		zap.Int("hierarchy_nodes", res.Hierarchy.Len()),
		zap.Int("unparented_buckets", res.Unparented.Len()),
		zap.String("data_dir", cfg.DataDir),
	)
	return nil
}
