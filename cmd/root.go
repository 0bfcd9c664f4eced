package cmd

import (
	"fmt"
	"os"

	"newsmint/config"
	"newsmint/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var flagEnvFile string

var rootCmd = &cobra.Command{
	Use:   "newsmint",
	Short: "News submission and NFT minting service",
	Long: "newsmint crawls submitted news URLs into a MongoDB collection, serves them over HTTP " +
		"and mints them as NFTs on a Constellation metagraph.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional; real environment variables win
		_ = godotenv.Load(flagEnvFile)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "path to an optional .env file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importFeedCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger every command shares
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	gin.SetMode(cfg.GinMode)

	log, err := logger.New(cfg.LogLevel, cfg.GinMode == gin.DebugMode)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, log, nil
}
