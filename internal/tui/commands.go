package tui

import (
	"context"

	tea "charm.land/bubbletea/v2"

	"github.com/garrettladley/chirp/internal/client/socket"
	"github.com/garrettladley/chirp/internal/storage"
)

// StartSocketCmd runs the socket client and pushes notifications to notifCh.
// The channel bridges the blocking client with bubbletea's message loop.
func StartSocketCmd(ctx context.Context, client *socket.Client, notifCh chan<- storage.Notification) tea.Cmd {
	return func() tea.Msg {
		err := client.Connect(ctx, func(ctx context.Context, n storage.Notification) {
			select {
			case notifCh <- n:
			case <-ctx.Done():
			}
		})
		if ctx.Err() != nil {
			err = nil
		}
		return DisconnectedMsg{Err: err}
	}
}

// ListenNotificationsCmd waits for the next notification. Re-issue it after
// every NotificationMsg.
func ListenNotificationsCmd(ctx context.Context, notifCh <-chan storage.Notification) tea.Cmd {
	return func() tea.Msg {
		select {
		case n, ok := <-notifCh:
			if !ok {
				return DisconnectedMsg{}
			}
			return NotificationMsg{Notification: n}
		case <-ctx.Done():
			return DisconnectedMsg{}
		}
	}
}
