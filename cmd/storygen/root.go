package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"adventure-server/internal/config"
	"adventure-server/internal/logger"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "storygen",
	Short:         "Choose-your-own-adventure story generator",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to .env file (optional)")
	rootCmd.AddCommand(generateCmd, workerCmd)
}

// bootstrap загружает .env, конфигурацию и создает логгер для команды cmd.
func bootstrap(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	envErr := godotenv.Load(envFile)

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.LogLevel,
		Encoding:   cfg.LogEncoding,
		OutputPath: cfg.LogOutput,
		Service:    rootCmd.Name(),
		Command:    cmd.Name(),
	})
	if err != nil {
		return nil, nil, err
	}

	if envErr != nil {
		if errors.Is(envErr, fs.ErrNotExist) {
			log.Debug(".env file not found, using environment only", zap.String("path", envFile))
		} else {
			log.Warn("Failed to load .env file", zap.String("path", envFile), zap.Error(envErr))
		}
	}
	cfg.LogSummary(log)
	return cfg, log, nil
}
