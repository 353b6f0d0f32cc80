package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/garrettladley/chirp/internal/client/socket"
	"github.com/garrettladley/chirp/internal/config"
	"github.com/garrettladley/chirp/internal/inbox"
	"github.com/garrettladley/chirp/internal/storage"
	"github.com/garrettladley/chirp/internal/xslog"
)

const (
	flagUser  = "user"
	flagInbox = "inbox"
)

func listenCmd() *cobra.Command {
	var (
		userID    string
		useInbox  bool
		inboxPath string
	)

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Stream notifications for a user",
		Long:  "Registers over the socket, prints each notification and acknowledges it. Reconnects until interrupted.",
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

			logger := xslog.NewLoggerFromEnv(os.Stderr)
			out := cmd.OutOrStdout()

			var opts []socket.Option
			var box *inbox.Inbox
			if useInbox {
				box, err = openInbox(ctx, inboxPath)
				if err != nil {
					return err
				}
				defer func() { _ = box.Close() }()

				opts = append(opts, socket.WithAckHook(func(ctx context.Context, n storage.Notification) {
					if err := box.MarkAcked(ctx, n.ID); err != nil {
						logger.WarnContext(ctx, "failed to update inbox", xslog.NotificationID(n.ID), xslog.Error(err))
					}
				}))
			}

			client, err := socket.NewClient(cfg.ServerURL, cfg.APIKey, userID, logger, opts...)
			if err != nil {
				return err
			}

			err = client.Connect(ctx, func(ctx context.Context, n storage.Notification) {
				printNotification(out, n)
				if box == nil {
					return
				}
				if err := box.Save(ctx, n); err != nil {
					logger.WarnContext(ctx, "failed to save to inbox", xslog.NotificationID(n.ID), xslog.Error(err))
				}
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&userID, flagUser, "", "user id to register as (default $CHIRP_USER_ID)")
	cmd.Flags().BoolVar(&useInbox, flagInbox, false, "cache received notifications in the local inbox")
	cmd.Flags().StringVar(&inboxPath, "inbox-path", "", "inbox database path (default $CHIRP_HOME/inbox.db or <config dir>/chirp/inbox.db)")

	return cmd
}

func printNotification(w io.Writer, n storage.Notification) {
	marker := "●"
	if n.Read {
		marker = " "
	}
	_, _ = fmt.Fprintf(w, "%s %s  %s  (%s)\n", marker, n.Timestamp.Local().Format("2006-01-02 15:04:05"), n.Message, n.ID)
}
