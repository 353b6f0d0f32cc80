package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garrettladley/chirp/internal/config"
	"github.com/garrettladley/chirp/internal/inbox"
	"github.com/garrettladley/chirp/internal/paths"
)

func inboxCmd() *cobra.Command {
	var (
		userID    string
		limit     int
		inboxPath string
	)

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "List notifications cached by listen --inbox",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

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

			box, err := openInbox(ctx, inboxPath)
			if err != nil {
				return err
			}
			defer func() { _ = box.Close() }()

			entries, err := box.List(ctx, userID, limit)
			if err != nil {
				return err
			}
			unread, err := box.Unread(ctx, userID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%d unread\n", unread)
			for _, e := range entries {
				printNotification(out, e.Notification)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, flagUser, "", "user id (default $CHIRP_USER_ID)")
	cmd.Flags().IntVar(&limit, "limit", inbox.DefaultLimit, "maximum entries to show")
	cmd.Flags().StringVar(&inboxPath, "inbox-path", "", "inbox database path (default $CHIRP_HOME/inbox.db or <config dir>/chirp/inbox.db)")

	return cmd
}

func openInbox(ctx context.Context, path string) (*inbox.Inbox, error) {
	if path == "" {
		if _, err := paths.EnsureDir(); err != nil {
			return nil, err
		}
		var err error
		if path, err = paths.DB(); err != nil {
			return nil, err
		}
	}

	box, err := inbox.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open inbox: %w", err)
	}
	return box, nil
}
