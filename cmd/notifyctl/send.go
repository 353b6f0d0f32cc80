package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garrettladley/chirp/internal/client/api"
	"github.com/garrettladley/chirp/internal/config"
	"github.com/garrettladley/chirp/internal/queue"
)

func sendCmd() *cobra.Command {
	var (
		to      string
		message string
		kind    string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Publish a notification event",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Read()
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}

			id, err := api.NewClient(cfg.ServerURL, cfg.APIKey).Publish(cmd.Context(), queue.Event{
				RecipientID: to,
				Message:     message,
				Kind:        queue.Kind(kind),
			})
			if err != nil {
				return fmt.Errorf("failed to send: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "queued %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "recipient user id")
	cmd.Flags().StringVar(&message, "message", "", "notification text")
	cmd.Flags().StringVar(&kind, "kind", string(queue.KindDirect), "event kind (direct, like, retweet, follow)")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}
