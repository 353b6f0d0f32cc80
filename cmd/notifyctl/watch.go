package main

import (
	"context"
	"fmt"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/garrettladley/chirp/internal/client/socket"
	"github.com/garrettladley/chirp/internal/config"
	"github.com/garrettladley/chirp/internal/storage"
	"github.com/garrettladley/chirp/internal/tui"
	"github.com/garrettladley/chirp/internal/xslog"
)

func watchCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Full-screen live notification feed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Read()
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}
			if userID == "" {
				userID = cfg.UserID
			}
			if userID == "" {
				return fmt.Errorf("--%s is required", flagUser)
			}

			// the terminal belongs to the TUI
			client, err := socket.NewClient(cfg.ServerURL, cfg.APIKey, userID, xslog.Discard())
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			model := tui.New(tui.Deps{
				Ctx:              ctx,
				Cancel:           cancel,
				UserID:           userID,
				Client:           client,
				NotificationChan: make(chan storage.Notification, 64),
			})

			p := tea.NewProgram(&model)
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("failed to run TUI: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, flagUser, "", "user id to register as (default $CHIRP_USER_ID)")

	return cmd
}
