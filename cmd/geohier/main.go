package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/terratensor/geohierarchy/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "geohier",
	Short: "Build a GeoNames administrative hierarchy",
	Long: "Downloads the GeoNames gazetteer and alternate names dumps and writes " +
		"hierarchy.json and unparented_cities.json into the data directory.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	// Без подкоманды выполняем полное построение
	RunE: runBuild,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		zap.L().Error("geohier failed", zap.Error(err))
		os.Exit(1)
	}
}
