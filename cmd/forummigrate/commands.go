package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"tg-forum-migrator/internal/directory"
	"tg-forum-migrator/internal/httpserver"
	"tg-forum-migrator/internal/logging"
	"tg-forum-migrator/internal/migrate"
	"tg-forum-migrator/internal/notify"
	"tg-forum-migrator/internal/stats"
	"tg-forum-migrator/internal/statusmcp"
	"tg-forum-migrator/internal/telegram"
)

func runCommand(cmd *cobra.Command, ov overrides) error {
	cfg, err := loadConfig(ov)
	if err != nil {
		return err
	}
	logger, closer, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer closer.Close()

	tracker := stats.NewTracker(time.Now())
	if cfg.StatusAddr != "" {
		mcpHandler := statusmcp.NewHandler(statusmcp.NewServer(tracker), "/mcp")
		srv := httpserver.NewServer(cfg.StatusAddr, tracker, mcpHandler)
		go func() {
			logger.Info("status server listening", "addr", cfg.StatusAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status server stopped", "err", err)
			}
		}()
		defer srv.Close()
	}

	notifier := notify.NewNotifier(cfg.NotifyBase, cfg.NotifyBotToken, cfg.NotifyChatID)

	logger.Info("starting migration",
		"source", cfg.SourceChannelID,
		"target", cfg.TargetChannelID,
		"start", cfg.StartPostID,
		"max", cfg.MaxPostID,
	)
	return telegram.Run(cmd.Context(), cfg, logger.WithPrefix("telegram"), func(ctx context.Context, c *telegram.Client) error {
		sum, err := migrate.New(cfg, c, tracker, logger).Run(ctx)
		if err != nil {
			return err
		}

		nctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := notifier(nctx, sum); err != nil {
			logger.Error("summary notification failed", "err", err)
		}
		return nil
	})
}

func topicsCommand(cmd *cobra.Command, ov overrides) error {
	cfg, err := loadConfig(ov)
	if err != nil {
		return err
	}
	logger, closer, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer closer.Close()

	return telegram.Run(cmd.Context(), cfg, logger.WithPrefix("telegram"), func(ctx context.Context, c *telegram.Client) error {
		dir, err := directory.Load(ctx, c, cfg.TopicListLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, t := range dir.Topics() {
			fmt.Fprintf(out, "%d\t%s\n", t.AnchorID, t.Title)
		}
		fmt.Fprintf(out, "%d topics\n", dir.Len())
		return nil
	})
}
