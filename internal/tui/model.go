package tui

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/garrettladley/chirp/internal/client/socket"
	"github.com/garrettladley/chirp/internal/storage"
	"github.com/garrettladley/chirp/internal/tui/theme"
	"github.com/garrettladley/chirp/internal/version"
)

var _ tea.Model = (*Model)(nil)

const maxNotifications = 500

type Deps struct {
	Ctx              context.Context
	Cancel           context.CancelFunc
	UserID           string
	Client           *socket.Client
	NotificationChan chan storage.Notification
}

type Model struct {
	ready          bool
	viewportWidth  int
	viewportHeight int
	theme          theme.Theme
	deps           Deps

	// notifications are newest first
	notifications []storage.Notification
	cursor        int
	disconnected  bool
	err           error
}

func New(deps Deps) Model {
	return Model{
		theme: theme.New(),
		deps:  deps,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		StartSocketCmd(m.deps.Ctx, m.deps.Client, m.deps.NotificationChan),
		ListenNotificationsCmd(m.deps.Ctx, m.deps.NotificationChan),
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewportWidth = msg.Width
		m.viewportHeight = msg.Height
		m.ready = true

	case tea.KeyMsg:
		return m, m.handleKey(msg.String())

	case NotificationMsg:
		m.add(msg.Notification)
		return m, ListenNotificationsCmd(m.deps.Ctx, m.deps.NotificationChan)

	case DisconnectedMsg:
		m.disconnected = true
		m.err = msg.Err
	}

	return m, nil
}

func (m *Model) handleKey(key string) tea.Cmd {
	switch key {
	case "q", "ctrl+c":
		if m.deps.Cancel != nil {
			m.deps.Cancel()
		}
		return tea.Quit
	case "j", "down":
		if m.cursor < len(m.notifications)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "g", "home":
		m.cursor = 0
	}
	return nil
}

func (m *Model) add(n storage.Notification) {
	m.notifications = append([]storage.Notification{n}, m.notifications...)
	if len(m.notifications) > maxNotifications {
		m.notifications = m.notifications[:maxNotifications]
	}
	// keep the selected row in place as new rows arrive above it
	if m.cursor > 0 {
		m.cursor = min(m.cursor+1, len(m.notifications)-1)
	}
}

func (m *Model) View() tea.View {
	view := tea.NewView("")
	view.AltScreen = true
	view.BackgroundColor = m.theme.Background()

	if !m.ready {
		return view
	}

	view.SetContent(m.render())
	return view
}

func (m *Model) render() string {
	header := m.theme.Accent().Render("chirp") + m.theme.Dim().Render("  "+m.deps.UserID)
	footer := m.footerView()

	listHeight := max(m.viewportHeight-lipgloss.Height(header)-lipgloss.Height(footer)-1, 1)

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingLeft(2).Render(header),
		"",
		lipgloss.NewStyle().Height(listHeight).PaddingLeft(2).Render(m.listView(listHeight)),
		footer,
	)
}

func (m *Model) listView(height int) string {
	if len(m.notifications) == 0 {
		return m.theme.Dim().Render("waiting for notifications…")
	}

	// scroll so the cursor stays visible
	start := 0
	if m.cursor >= height {
		start = m.cursor - height + 1
	}
	end := min(start+height, len(m.notifications))

	rows := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		n := m.notifications[i]
		marker := m.theme.Accent().Render("●")
		if n.Read {
			marker = " "
		}
		row := fmt.Sprintf("%s %s  %s", marker, m.theme.Dim().Render(n.Timestamp.Local().Format("15:04:05")), n.Message)
		if i == m.cursor {
			row = m.theme.Selected().Render(row)
		}
		rows = append(rows, row)
	}
	return strings.Join(rows, "\n")
}

func (m *Model) footerView() string {
	var status string
	switch {
	case m.err != nil:
		status = m.theme.Status(theme.ColorError).Render("disconnected: " + m.err.Error())
	case m.disconnected:
		status = m.theme.Status(theme.ColorWarn).Render("stopped")
	default:
		status = m.theme.Status(theme.ColorOK).Render(fmt.Sprintf("listening · %d received", len(m.notifications)))
	}

	left := m.theme.Dim().Render(version.Get() + "  q quit · j/k move")
	spacer := strings.Repeat(" ", max(m.viewportWidth-lipgloss.Width(left)-lipgloss.Width(status)-4, 0))

	return lipgloss.NewStyle().
		PaddingLeft(2).
		PaddingRight(2).
		Render(left + spacer + status)
}
