package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"adventure-server/internal/metrics"
)

var (
	generateTheme   string
	generateSession string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one story and print it as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		m := metrics.New()
		defer m.NewPusher(cfg.PushgatewayURL, log).Push()

		store, closeStore, err := openStoryStore(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer closeStore()

		engine, _, err := newEngine(cfg, store, m, log)
		if err != nil {
			return err
		}

		sessionID := generateSession
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		story, err := engine.Generate(ctx, generateTheme, sessionID)
		if err != nil {
			return fmt.Errorf("generation failed: %w", err)
		}
		log.Info("Story ready", zap.Int64("story_id", story.ID), zap.String("title", story.Title))

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(story)
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateTheme, "theme", "", "Story theme (default \"fantasy\")")
	generateCmd.Flags().StringVar(&generateSession, "session", "", "Session id (generated when empty)")
}
