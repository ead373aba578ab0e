package main

import (
	"context"
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mag7qa/internal/config"
)

func main() {
	var configPath string
	var envPath string

	rootCmd := &cobra.Command{
		Use:   "mag7qa",
		Short: "question answering over Magnificent 7 SEC filings",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			return nil
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json or config.yaml")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", ".env", "path to a dotenv file")

	rootCmd.AddCommand(
		newChatCmd(&configPath),
		newServeCmd(&configPath),
		newTokenCmd(&configPath),
	)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func initLogger(cfg *config.Config) {
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
}
