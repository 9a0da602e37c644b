package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tg-forum-migrator/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "ERR:", err)
		os.Exit(1)
	}
}

type overrides struct {
	startID int
	maxID   int
}

func newRootCommand() *cobra.Command {
	var ov overrides

	rootCmd := &cobra.Command{
		Use:           "forummigrate",
		Short:         "copy channel posts and their comment media into forum topics",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, ov)
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().IntVar(&ov.startID, "start-id", 0, "first source post id (overrides POST_ID)")
	rootCmd.PersistentFlags().IntVar(&ov.maxID, "max-id", 0, "last source post id to scan (overrides MAX_POST_ID)")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "migrate posts starting at the configured post id",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCommand(cmd, ov)
			},
		},
		&cobra.Command{
			Use:   "topics",
			Short: "list the topics already present in the target forum",
			RunE: func(cmd *cobra.Command, args []string) error {
				return topicsCommand(cmd, ov)
			},
		},
	)
	return rootCmd
}

func loadConfig(ov overrides) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if ov.startID > 0 {
		cfg.StartPostID = ov.startID
	}
	if ov.maxID > 0 {
		cfg.MaxPostID = ov.maxID
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
